package transcode

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/loomcast/loomcast/internal/config"
	"github.com/loomcast/loomcast/internal/hwaccel"
)

// Result is the outcome of one conversion.
type Result struct {
	Success         bool   `json:"success"`
	OutputPath      string `json:"output_path,omitempty"`
	Error           string `json:"error,omitempty"`
	DurationSeconds int    `json:"duration_seconds"`
	FileSizeBytes   int64  `json:"file_size_bytes"`
}

// Pipeline converts a raw in-memory recording into a final quality-tuned
// video file by spawning the external ffmpeg process.
type Pipeline struct {
	logger      hclog.Logger
	ffmpegPath  string
	ffprobePath string
	tempDir     string
	detector    *hwaccel.Detector
}

// NewPipeline creates a transcode pipeline.
func NewPipeline(logger hclog.Logger, cfg config.TranscodeConfig, detector *hwaccel.Detector) *Pipeline {
	return &Pipeline{
		logger:      logger.Named("transcode"),
		ffmpegPath:  cfg.FFmpegPath,
		ffprobePath: cfg.FFprobePath,
		tempDir:     cfg.TempDir,
		detector:    detector,
	}
}

// Convert persists the raw buffer to a temporary file, runs ffmpeg with the
// derived argument set, and reports progress from the diagnostic stream.
// Failures are returned as a Result, never as a panic or partial state; the
// temporary file is removed on every exit path.
func (p *Pipeline) Convert(ctx context.Context, input []byte, outputPath string, s Settings, onProgress ProgressFunc) Result {
	tempPath := filepath.Join(p.tempDir, fmt.Sprintf("recording-%s.webm", uuid.NewString()))
	if err := os.WriteFile(tempPath, input, 0o600); err != nil {
		return Result{Success: false, Error: fmt.Sprintf("failed to write temp input: %v", err)}
	}
	defer func() {
		if err := os.Remove(tempPath); err != nil && !os.IsNotExist(err) {
			// Cleanup failure must not mask the conversion result.
			p.logger.Warn("failed to remove temp input", "path", tempPath, "error", err)
		}
	}()

	// With no preset and no explicit dimensions, seed them from the source.
	if _, hasPreset := Preset(s.Quality); !hasPreset && (s.Width == 0 || s.Height == 0) {
		if info, err := p.ProbeFile(ctx, tempPath); err == nil && info.Width > 0 {
			s.Width, s.Height = info.Width, info.Height
		} else if err != nil {
			p.logger.Debug("probe failed, leaving source dimensions unchanged", "error", err)
		}
	}

	accel := p.detector.Accel()
	args := BuildArgs(tempPath, outputPath, s, accel)
	p.logger.Info("starting conversion",
		"output", outputPath,
		"quality", s.Quality,
		"hw_accel", s.UseHardwareAcceleration && accel.Available)
	p.logger.Debug("ffmpeg arguments", "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Result{Success: false, Error: fmt.Sprintf("failed to open diagnostic pipe: %v", err)}
	}
	if err := cmd.Start(); err != nil {
		return Result{Success: false, Error: fmt.Sprintf("failed to start encoder: %v", err)}
	}

	parser := &progressParser{}
	var diagnostics strings.Builder
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	scanner.Split(scanEncoderLines)
	for scanner.Scan() {
		line := scanner.Text()
		diagnostics.WriteString(line)
		diagnostics.WriteByte('\n')
		if sample, ok := parser.parseLine(line); ok && onProgress != nil {
			onProgress(sample)
		}
	}

	if err := cmd.Wait(); err != nil {
		msg := diagnostics.String()
		if strings.TrimSpace(msg) == "" {
			msg = err.Error()
		}
		p.logger.Error("conversion failed", "error", err)
		return Result{Success: false, Error: msg}
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return Result{Success: false, Error: fmt.Sprintf("encoder exited cleanly but output is missing: %v", err)}
	}

	p.logger.Info("conversion complete",
		"output", outputPath,
		"duration_seconds", parser.totalSeconds,
		"size_bytes", info.Size())
	return Result{
		Success:         true,
		OutputPath:      outputPath,
		DurationSeconds: parser.totalSeconds,
		FileSizeBytes:   info.Size(),
	}
}

// scanEncoderLines splits on \n and \r: ffmpeg rewrites its progress line
// in place with bare carriage returns.
func scanEncoderLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
