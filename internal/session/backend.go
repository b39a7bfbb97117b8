package session

import "context"

// Kind identifies one of the three capture source kinds the session manages.
type Kind string

const (
	KindScreen     Kind = "screen"
	KindMicrophone Kind = "microphone"
	KindCamera     Kind = "camera"
)

// Kinds lists every source kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindScreen, KindMicrophone, KindCamera}
}

// StreamSettings carries the capture parameters of a live stream so an
// isolated surface can re-acquire the same physical device.
type StreamSettings struct {
	DeviceID  string  `json:"device_id,omitempty"`
	Width     int     `json:"width,omitempty"`
	Height    int     `json:"height,omitempty"`
	FrameRate float64 `json:"frame_rate,omitempty"`
}

// Stream is an open, resource-holding capture handle. It must be stopped
// explicitly to release the hardware.
type Stream interface {
	ID() string
	Settings() StreamSettings
	Stop()
}

// CaptureBackend opens live capture streams from the host platform.
type CaptureBackend interface {
	Acquire(ctx context.Context, kind Kind, deviceID string) (Stream, error)
}
