package media

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/driver"

	// Screen capture drivers register themselves on import.
	_ "github.com/pion/mediadevices/pkg/driver/screen"
)

// ScreenLister enumerates capturable displays through the pion/mediadevices
// driver registry.
type ScreenLister struct {
	logger hclog.Logger
}

// NewScreenLister creates the production desktop source lister.
func NewScreenLister(logger hclog.Logger) *ScreenLister {
	return &ScreenLister{logger: logger.Named("screens")}
}

// ListDesktopSources lists the displays known to the screen drivers.
func (l *ScreenLister) ListDesktopSources(ctx context.Context) ([]CaptureSource, error) {
	var sources []CaptureSource
	for i, info := range mediadevices.EnumerateDevices() {
		if info.DeviceType != driver.Screen {
			continue
		}
		name := info.Label
		if name == "" {
			name = fmt.Sprintf("Entire Screen %d", i)
		}
		sources = append(sources, CaptureSource{
			ID:        "screen:" + info.DeviceID,
			Name:      name,
			DisplayID: info.DeviceID,
		})
	}
	l.logger.Debug("enumerated displays", "count", len(sources))
	return sources, nil
}
