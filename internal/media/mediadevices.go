package media

import (
	"context"

	"github.com/hashicorp/go-hclog"
	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/driver"

	// Capture drivers register themselves on import.
	_ "github.com/pion/mediadevices/pkg/driver/camera"
	_ "github.com/pion/mediadevices/pkg/driver/microphone"
)

// MediaDevicesEnumerator enumerates microphones and cameras through the
// pion/mediadevices driver registry.
type MediaDevicesEnumerator struct {
	logger hclog.Logger
}

// NewMediaDevicesEnumerator creates the production device enumerator.
func NewMediaDevicesEnumerator(logger hclog.Logger) *MediaDevicesEnumerator {
	return &MediaDevicesEnumerator{logger: logger.Named("media-devices")}
}

// WarmUpPermissions opens a short-lived audio+video stream so the platform
// unlocks device labels. Failure only degrades labels, so it is swallowed.
func (e *MediaDevicesEnumerator) WarmUpPermissions(ctx context.Context) {
	stream, err := mediadevices.GetUserMedia(mediadevices.MediaStreamConstraints{
		Audio: func(c *mediadevices.MediaTrackConstraints) {},
		Video: func(c *mediadevices.MediaTrackConstraints) {},
	})
	if err != nil {
		e.logger.Warn("permission warm-up failed, device labels may be anonymous", "error", err)
		return
	}
	for _, track := range stream.GetTracks() {
		track.Close()
	}
}

// EnumerateDevices lists microphones and cameras known to the drivers.
func (e *MediaDevicesEnumerator) EnumerateDevices(ctx context.Context) ([]Device, error) {
	infos := mediadevices.EnumerateDevices()
	devices := make([]Device, 0, len(infos))
	for _, info := range infos {
		// Screens are listed by the desktop source lister, not here.
		if info.DeviceType == driver.Screen {
			continue
		}
		var kind DeviceKind
		switch info.Kind {
		case mediadevices.AudioInput:
			kind = AudioInput
		case mediadevices.VideoInput:
			kind = VideoInput
		default:
			continue
		}
		devices = append(devices, Device{
			DeviceID: info.DeviceID,
			Label:    info.Label,
			Kind:     kind,
		})
	}
	return devices, nil
}
