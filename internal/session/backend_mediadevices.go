package session

import (
	"context"
	"fmt"
	"io"

	"github.com/hashicorp/go-hclog"
	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/prop"

	// Capture drivers register themselves on import.
	_ "github.com/pion/mediadevices/pkg/driver/camera"
	_ "github.com/pion/mediadevices/pkg/driver/microphone"
	_ "github.com/pion/mediadevices/pkg/driver/screen"
)

// Default camera capture parameters, matching the preview surface.
const (
	cameraWidth  = 1280
	cameraHeight = 720
)

// MediaDevicesBackend acquires capture streams through pion/mediadevices.
type MediaDevicesBackend struct {
	logger hclog.Logger
}

// NewMediaDevicesBackend creates the production capture backend.
func NewMediaDevicesBackend(logger hclog.Logger) *MediaDevicesBackend {
	return &MediaDevicesBackend{logger: logger.Named("capture")}
}

// Acquire opens a live stream for the given kind and device.
func (b *MediaDevicesBackend) Acquire(ctx context.Context, kind Kind, deviceID string) (Stream, error) {
	switch kind {
	case KindScreen:
		return b.acquireScreen(deviceID)
	case KindMicrophone:
		return b.acquireMicrophone(deviceID)
	case KindCamera:
		return b.acquireCamera(deviceID)
	default:
		return nil, fmt.Errorf("unknown source kind %q", kind)
	}
}

func (b *MediaDevicesBackend) acquireScreen(deviceID string) (Stream, error) {
	stream, err := mediadevices.GetDisplayMedia(mediadevices.MediaStreamConstraints{
		Video: func(c *mediadevices.MediaTrackConstraints) {
			if deviceID != "" {
				c.DeviceID = prop.String(deviceID)
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open screen capture for %s: %w", deviceID, err)
	}
	return newMediaStream(stream, StreamSettings{DeviceID: deviceID}), nil
}

func (b *MediaDevicesBackend) acquireMicrophone(deviceID string) (Stream, error) {
	stream, err := mediadevices.GetUserMedia(mediadevices.MediaStreamConstraints{
		Audio: func(c *mediadevices.MediaTrackConstraints) {
			if deviceID != "" {
				c.DeviceID = prop.String(deviceID)
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open microphone %s: %w", deviceID, err)
	}
	return newMediaStream(stream, StreamSettings{DeviceID: deviceID}), nil
}

func (b *MediaDevicesBackend) acquireCamera(deviceID string) (Stream, error) {
	stream, err := mediadevices.GetUserMedia(mediadevices.MediaStreamConstraints{
		Video: func(c *mediadevices.MediaTrackConstraints) {
			if deviceID != "" {
				c.DeviceID = prop.String(deviceID)
			}
			c.Width = prop.Int(cameraWidth)
			c.Height = prop.Int(cameraHeight)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %s: %w", deviceID, err)
	}
	return newMediaStream(stream, StreamSettings{
		DeviceID: deviceID,
		Width:    cameraWidth,
		Height:   cameraHeight,
	}), nil
}

// mediaStream wraps a pion MediaStream as a session Stream. It also exposes
// an encoded packet reader so the recorder can consume it directly.
type mediaStream struct {
	stream   mediadevices.MediaStream
	settings StreamSettings
}

func newMediaStream(stream mediadevices.MediaStream, settings StreamSettings) *mediaStream {
	return &mediaStream{stream: stream, settings: settings}
}

func (m *mediaStream) ID() string {
	if tracks := m.stream.GetVideoTracks(); len(tracks) > 0 {
		return tracks[0].ID()
	}
	if tracks := m.stream.GetAudioTracks(); len(tracks) > 0 {
		return tracks[0].ID()
	}
	return ""
}

func (m *mediaStream) Settings() StreamSettings {
	return m.settings
}

func (m *mediaStream) Stop() {
	for _, track := range m.stream.GetTracks() {
		track.Close()
	}
}

// NewEncodedReader returns an encoded packet reader for the stream's primary
// track using the named codec.
func (m *mediaStream) NewEncodedReader(codec string) (io.ReadCloser, error) {
	tracks := m.stream.GetVideoTracks()
	if len(tracks) == 0 {
		tracks = m.stream.GetAudioTracks()
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("stream has no tracks")
	}
	return tracks[0].NewEncodedIOReader(codec)
}
