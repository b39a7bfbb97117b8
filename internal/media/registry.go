package media

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
)

// DesktopSourceLister enumerates capturable displays and windows. The
// production implementation lives at the host boundary.
type DesktopSourceLister interface {
	ListDesktopSources(ctx context.Context) ([]CaptureSource, error)
}

// DeviceEnumerator enumerates microphones and cameras.
type DeviceEnumerator interface {
	// WarmUpPermissions attempts to open (and immediately release) an
	// audio+video stream purely so the platform unlocks device labels.
	// Denial is not an error.
	WarmUpPermissions(ctx context.Context)
	EnumerateDevices(ctx context.Context) ([]Device, error)
}

// Registry produces the normalized source listing. It holds no state and may
// be called repeatedly to pick up hot-plugged devices.
type Registry struct {
	logger  hclog.Logger
	lister  DesktopSourceLister
	devices DeviceEnumerator
}

// NewRegistry creates a source registry.
func NewRegistry(logger hclog.Logger, lister DesktopSourceLister, devices DeviceEnumerator) *Registry {
	return &Registry{
		logger:  logger.Named("media-registry"),
		lister:  lister,
		devices: devices,
	}
}

// ListSources enumerates displays, windows, microphones and cameras in their
// normalized shape.
func (r *Registry) ListSources(ctx context.Context) (*Sources, error) {
	r.devices.WarmUpPermissions(ctx)

	displays, err := r.lister.ListDesktopSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list desktop sources: %w", err)
	}

	sources := &Sources{
		Displays:    make([]CaptureSource, 0, len(displays)),
		AudioInputs: []Device{},
		VideoInputs: []Device{},
	}
	for _, d := range displays {
		sources.Displays = append(sources.Displays, NormalizeSource(d))
	}

	devices, err := r.devices.EnumerateDevices(ctx)
	if err != nil {
		// Device enumeration failing is not fatal to the listing; the
		// display half is still useful.
		r.logger.Warn("device enumeration failed", "error", err)
		return sources, nil
	}

	for _, dev := range devices {
		dev = NormalizeDevice(dev)
		switch dev.Kind {
		case AudioInput:
			sources.AudioInputs = append(sources.AudioInputs, dev)
		case VideoInput:
			sources.VideoInputs = append(sources.VideoInputs, dev)
		}
	}

	r.logger.Debug("enumerated sources",
		"displays", len(sources.Displays),
		"audio_inputs", len(sources.AudioInputs),
		"video_inputs", len(sources.VideoInputs))

	return sources, nil
}
