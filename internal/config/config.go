package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" json:"server"`
	Recording RecordingConfig `yaml:"recording" json:"recording"`
	Transcode TranscodeConfig `yaml:"transcode" json:"transcode"`
	Database  DatabaseConfig  `yaml:"database" json:"database"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// ServerConfig holds the control API configuration
type ServerConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

// RecordingConfig holds recorder configuration
type RecordingConfig struct {
	ChunkInterval   time.Duration `yaml:"chunk_interval" json:"chunk_interval"`
	DurationSample  time.Duration `yaml:"duration_sample" json:"duration_sample"`
	VideoBitsPerSec int           `yaml:"video_bits_per_sec" json:"video_bits_per_sec"`
	AudioBitsPerSec int           `yaml:"audio_bits_per_sec" json:"audio_bits_per_sec"`
	OutputDir       string        `yaml:"output_dir" json:"output_dir"`
}

// TranscodeConfig holds transcode pipeline configuration
type TranscodeConfig struct {
	FFmpegPath     string `yaml:"ffmpeg_path" json:"ffmpeg_path"`
	FFprobePath    string `yaml:"ffprobe_path" json:"ffprobe_path"`
	TempDir        string `yaml:"temp_dir" json:"temp_dir"`
	DefaultQuality string `yaml:"default_quality" json:"default_quality"`
	EncoderPreset  string `yaml:"encoder_preset" json:"encoder_preset"`
	UseHardware    bool   `yaml:"use_hardware" json:"use_hardware"`
}

// DatabaseConfig holds the preference store configuration
type DatabaseConfig struct {
	Path string `yaml:"path" json:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	JSON  bool   `yaml:"json" json:"json"`
}

// Default returns the configuration defaults
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8090,
		},
		Recording: RecordingConfig{
			ChunkInterval:   time.Second,
			DurationSample:  500 * time.Millisecond,
			VideoBitsPerSec: 5_000_000,
			AudioBitsPerSec: 128_000,
			OutputDir:       outputDir(),
		},
		Transcode: TranscodeConfig{
			FFmpegPath:     "ffmpeg",
			FFprobePath:    "ffprobe",
			TempDir:        os.TempDir(),
			DefaultQuality: "1080p",
			EncoderPreset:  "medium",
			UseHardware:    true,
		},
		Database: DatabaseConfig{
			Path: filepath.Join(dataDir(), "loomcast.db"),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from an optional YAML file, then applies
// environment overrides on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Recording.ChunkInterval <= 0 {
		return fmt.Errorf("chunk_interval must be positive")
	}
	if c.Transcode.FFmpegPath == "" {
		return fmt.Errorf("ffmpeg_path must not be empty")
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOOMCAST_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("LOOMCAST_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LOOMCAST_FFMPEG_PATH"); v != "" {
		cfg.Transcode.FFmpegPath = v
	}
	if v := os.Getenv("LOOMCAST_FFPROBE_PATH"); v != "" {
		cfg.Transcode.FFprobePath = v
	}
	if v := os.Getenv("LOOMCAST_TEMP_DIR"); v != "" {
		cfg.Transcode.TempDir = v
	}
	if v := os.Getenv("LOOMCAST_OUTPUT_DIR"); v != "" {
		cfg.Recording.OutputDir = v
	}
	if v := os.Getenv("LOOMCAST_DEFAULT_QUALITY"); v != "" {
		cfg.Transcode.DefaultQuality = v
	}
	if v := os.Getenv("LOOMCAST_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("LOOMCAST_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func outputDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "Videos")
	}
	return "."
}

func dataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "loomcast")
	}
	return "."
}
