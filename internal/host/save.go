package host

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/loomcast/loomcast/internal/transcode"
)

// SaveOptions steer where and how a finished recording lands on disk.
type SaveOptions struct {
	// FileName overrides the generated name; extension included.
	FileName string `json:"file_name,omitempty"`
	// Directory overrides the chooser's default output directory.
	Directory string `json:"directory,omitempty"`
	// Settings overrides the worker's default transcode settings.
	Settings *transcode.Settings `json:"settings,omitempty"`
}

// SaveRequest carries an assembled raw recording across the host boundary.
type SaveRequest struct {
	Buffer   []byte
	MimeType string
	Options  SaveOptions
}

// SaveResult is the outcome of a save: failures arrive as a result value
// with Success=false, never as a panic.
type SaveResult struct {
	Success  bool   `json:"success"`
	FilePath string `json:"file_path,omitempty"`
	Error    string `json:"error,omitempty"`
}

// RecordingSaver accepts a finished recording and produces a final file.
type RecordingSaver interface {
	SaveRecording(ctx context.Context, req SaveRequest) (SaveResult, error)
}

// PathChooser picks the output path for a save. It stands in for the host's
// save-location dialog.
type PathChooser interface {
	ChoosePath(opts SaveOptions) (string, error)
}

// TimestampPathChooser names recordings by wall-clock time in a fixed
// directory.
type TimestampPathChooser struct {
	Dir string
	Now func() time.Time
}

// ChoosePath returns <dir>/recording-<timestamp>.mp4, honoring any
// per-request overrides.
func (c *TimestampPathChooser) ChoosePath(opts SaveOptions) (string, error) {
	dir := c.Dir
	if opts.Directory != "" {
		dir = opts.Directory
	}
	if dir == "" {
		return "", fmt.Errorf("no output directory configured")
	}
	name := opts.FileName
	if name == "" {
		now := time.Now
		if c.Now != nil {
			now = c.Now
		}
		name = fmt.Sprintf("recording-%s.mp4", now().Format("2006-01-02-15-04-05"))
	}
	return filepath.Join(dir, name), nil
}
