package session

// NotificationType names an outbound message to the floating camera-preview
// surface.
type NotificationType string

const (
	NotifyShowCameraWindow        NotificationType = "show-camera-window"
	NotifyHideCameraWindow        NotificationType = "hide-camera-window"
	NotifySetCameraWindowPosition NotificationType = "set-camera-window-position"
	NotifyCameraStreamReady       NotificationType = "camera-stream-ready"
)

// Notification is the typed envelope delivered to the preview surface.
// Delivery is best-effort; the session never blocks on it.
type Notification struct {
	Type     NotificationType `json:"type"`
	StreamID string           `json:"stream_id,omitempty"`
	Settings StreamSettings   `json:"settings,omitempty"`
	X        int              `json:"x,omitempty"`
	Y        int              `json:"y,omitempty"`
}

// Notifier receives outbound notifications. Implementations must not block.
type Notifier interface {
	Notify(Notification)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(Notification) {}
