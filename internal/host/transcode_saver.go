package host

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/loomcast/loomcast/internal/hwaccel"
	"github.com/loomcast/loomcast/internal/transcode"
)

// ProgressFunc receives conversion progress for the save currently running.
type ProgressFunc func(jobID string, p transcode.Progress)

// TranscodeSaver implements RecordingSaver on top of the transcode worker.
// It is the worker's only consumer: all envelopes flow through here, one
// round trip at a time, so callers never race on the response channel.
type TranscodeSaver struct {
	logger     hclog.Logger
	worker     *transcode.Worker
	chooser    PathChooser
	onProgress ProgressFunc

	mu sync.Mutex
}

// NewTranscodeSaver creates a saver. onProgress may be nil.
func NewTranscodeSaver(logger hclog.Logger, worker *transcode.Worker, chooser PathChooser, onProgress ProgressFunc) *TranscodeSaver {
	return &TranscodeSaver{
		logger:     logger.Named("saver"),
		worker:     worker,
		chooser:    chooser,
		onProgress: onProgress,
	}
}

// SaveRecording picks an output path, submits the buffer to the worker, and
// relays progress until the job completes. Encoder failures come back as a
// SaveResult with Success=false; only boundary-level faults (no path, worker
// gone) are returned as errors.
func (s *TranscodeSaver) SaveRecording(ctx context.Context, req SaveRequest) (SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	outputPath, err := s.chooser.ChoosePath(req.Options)
	if err != nil {
		return SaveResult{}, fmt.Errorf("failed to choose output path: %w", err)
	}

	jobID := uuid.NewString()
	s.logger.Info("saving recording",
		"job_id", jobID,
		"mime_type", req.MimeType,
		"bytes", len(req.Buffer),
		"output", outputPath)

	submit := transcode.Request{
		Type:       transcode.RequestConvert,
		ID:         jobID,
		Buffer:     req.Buffer,
		OutputPath: outputPath,
		Settings:   req.Options.Settings,
	}
	select {
	case s.worker.Requests() <- submit:
	case <-ctx.Done():
		return SaveResult{}, ctx.Err()
	}

	for {
		select {
		case resp := <-s.worker.Responses():
			if resp.ID != jobID {
				continue
			}
			switch resp.Type {
			case transcode.ResponseProgress:
				if s.onProgress != nil && resp.Progress != nil {
					s.onProgress(jobID, *resp.Progress)
				}
			case transcode.ResponseComplete:
				return SaveResult{Success: true, FilePath: resp.Result.OutputPath}, nil
			case transcode.ResponseError:
				return SaveResult{Success: false, Error: resp.Error}, nil
			}
		case <-ctx.Done():
			return SaveResult{}, ctx.Err()
		}
	}
}

// Capability asks the worker for the cached hardware acceleration probe.
func (s *TranscodeSaver) Capability(ctx context.Context) (hwaccel.Acceleration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	select {
	case s.worker.Requests() <- transcode.Request{Type: transcode.RequestGetCapability, ID: id}:
	case <-ctx.Done():
		return hwaccel.Acceleration{}, ctx.Err()
	}
	for {
		select {
		case resp := <-s.worker.Responses():
			if resp.ID == id && resp.Type == transcode.ResponseCapability {
				return *resp.Capability, nil
			}
		case <-ctx.Done():
			return hwaccel.Acceleration{}, ctx.Err()
		}
	}
}

// UpdateSettings replaces the worker's default transcode settings.
func (s *TranscodeSaver) UpdateSettings(ctx context.Context, settings transcode.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	select {
	case s.worker.Requests() <- transcode.Request{Type: transcode.RequestUpdateSettings, ID: id, Settings: &settings}:
	case <-ctx.Done():
		return ctx.Err()
	}
	for {
		select {
		case resp := <-s.worker.Responses():
			if resp.ID == id && resp.Type == transcode.ResponseSettingsUpdated {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
