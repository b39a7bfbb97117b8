package transcode

import (
	"context"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/loomcast/loomcast/internal/hwaccel"
)

// RequestType names an inbound worker message.
type RequestType string

const (
	RequestConvert        RequestType = "convert"
	RequestGetCapability  RequestType = "getCapability"
	RequestUpdateSettings RequestType = "updateSettings"
)

// ResponseType names an outbound worker message.
type ResponseType string

const (
	ResponseProgress        ResponseType = "progress"
	ResponseComplete        ResponseType = "complete"
	ResponseError           ResponseType = "error"
	ResponseCapability      ResponseType = "capability"
	ResponseSettingsUpdated ResponseType = "settingsUpdated"
)

// Request is the typed envelope sent to the worker.
type Request struct {
	Type       RequestType `json:"type"`
	ID         string      `json:"id"`
	Buffer     []byte      `json:"-"`
	OutputPath string      `json:"output_path,omitempty"`
	Settings   *Settings   `json:"settings,omitempty"`
}

// Response is the typed envelope emitted by the worker.
type Response struct {
	Type       ResponseType         `json:"type"`
	ID         string               `json:"id"`
	Progress   *Progress            `json:"progress,omitempty"`
	Result     *Result              `json:"result,omitempty"`
	Capability *hwaccel.Acceleration `json:"capability,omitempty"`
	Error      string               `json:"error,omitempty"`
}

// Worker runs conversions off the interactive path. All communication is
// message passing over the request/response channels; the worker shares no
// mutable state with its callers. Conversions are processed one at a time.
type Worker struct {
	logger   hclog.Logger
	pipeline *Pipeline
	detector *hwaccel.Detector

	mu       sync.Mutex
	defaults Settings

	requests  chan Request
	responses chan Response
}

// NewWorker creates a transcode worker.
func NewWorker(logger hclog.Logger, pipeline *Pipeline, detector *hwaccel.Detector, defaults Settings) *Worker {
	return &Worker{
		logger:    logger.Named("transcode-worker"),
		pipeline:  pipeline,
		detector:  detector,
		defaults:  defaults,
		requests:  make(chan Request, 4),
		responses: make(chan Response, 64),
	}
}

// Requests is the channel callers submit envelopes on.
func (w *Worker) Requests() chan<- Request {
	return w.requests
}

// Responses delivers progress, completion and error envelopes. Callers must
// drain it while a conversion is running.
func (w *Worker) Responses() <-chan Response {
	return w.responses
}

// Run processes requests until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-w.requests:
			w.handle(ctx, req)
		}
	}
}

func (w *Worker) handle(ctx context.Context, req Request) {
	switch req.Type {
	case RequestConvert:
		settings := w.Defaults()
		if req.Settings != nil {
			settings = *req.Settings
		}
		result := w.pipeline.Convert(ctx, req.Buffer, req.OutputPath, settings, func(p Progress) {
			w.emit(Response{Type: ResponseProgress, ID: req.ID, Progress: &p})
		})
		if result.Success {
			w.emit(Response{Type: ResponseComplete, ID: req.ID, Result: &result})
		} else {
			w.emit(Response{Type: ResponseError, ID: req.ID, Result: &result, Error: result.Error})
		}

	case RequestGetCapability:
		accel := w.detector.Accel()
		w.emit(Response{Type: ResponseCapability, ID: req.ID, Capability: &accel})

	case RequestUpdateSettings:
		if req.Settings != nil {
			w.mu.Lock()
			w.defaults = *req.Settings
			w.mu.Unlock()
		}
		w.emit(Response{Type: ResponseSettingsUpdated, ID: req.ID})

	default:
		w.logger.Warn("unknown request type", "type", req.Type)
		w.emit(Response{Type: ResponseError, ID: req.ID, Error: "unknown request type: " + string(req.Type)})
	}
}

// Defaults returns the worker's current default settings.
func (w *Worker) Defaults() Settings {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.defaults
}

// emit delivers a response without ever blocking the conversion; if the
// consumer has fallen behind, the oldest envelope is dropped.
func (w *Worker) emit(resp Response) {
	select {
	case w.responses <- resp:
	default:
		select {
		case <-w.responses:
		default:
		}
		select {
		case w.responses <- resp:
		default:
		}
	}
}
