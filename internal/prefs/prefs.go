package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DevicePreferences remembers the last selection and enablement per physical
// machine, keyed by the host's stable machine ID.
type DevicePreferences struct {
	MachineID string `gorm:"primaryKey" json:"machine_id"`
	Hostname  string `json:"hostname"`

	ScreenID     string `json:"screen_id"`
	MicrophoneID string `json:"microphone_id"`
	CameraID     string `json:"camera_id"`

	DisplayEnabled    bool `json:"display_enabled"`
	MicrophoneEnabled bool `json:"microphone_enabled"`
	CameraEnabled     bool `json:"camera_enabled"`

	Quality                 string `json:"quality"`
	UseHardwareAcceleration bool   `json:"use_hardware_acceleration"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists device preferences in a local SQLite database.
type Store struct {
	logger hclog.Logger
	db     *gorm.DB
}

// Open connects to the preference database, creating it and its parent
// directory on first use.
func Open(logger hclog.Logger, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create preference directory %s: %w", dir, err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open preference database %s: %w", path, err)
	}
	if err := db.AutoMigrate(&DevicePreferences{}); err != nil {
		return nil, fmt.Errorf("failed to migrate preference schema: %w", err)
	}

	logger.Named("prefs").Debug("preference store opened", "path", path)
	return &Store{logger: logger.Named("prefs"), db: db}, nil
}

// Load returns the stored preferences for a machine, or (nil, nil) when none
// have been saved yet.
func (s *Store) Load(machineID string) (*DevicePreferences, error) {
	var p DevicePreferences
	err := s.db.First(&p, "machine_id = ?", machineID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences for %s: %w", machineID, err)
	}
	return &p, nil
}

// Save upserts the preferences for a machine.
func (s *Store) Save(p DevicePreferences) error {
	if p.MachineID == "" {
		return fmt.Errorf("machine ID must not be empty")
	}
	p.UpdatedAt = time.Now()
	if err := s.db.Save(&p).Error; err != nil {
		return fmt.Errorf("failed to save preferences for %s: %w", p.MachineID, err)
	}
	return nil
}
