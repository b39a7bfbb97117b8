package media

// SourceType distinguishes full-screen capture targets from single windows.
type SourceType string

const (
	SourceScreen SourceType = "screen"
	SourceWindow SourceType = "window"
)

// CaptureSource is a capturable display or window as reported by the host.
// Identity is ID; sources are immutable once listed.
type CaptureSource struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Type      SourceType `json:"type"`
	Thumbnail string     `json:"thumbnail,omitempty"`
	DisplayID string     `json:"display_id,omitempty"`
}

// DeviceKind mirrors the platform device-enumeration kinds.
type DeviceKind string

const (
	AudioInput DeviceKind = "audioinput"
	VideoInput DeviceKind = "videoinput"
)

// Device is a microphone or camera. Identity is DeviceID; Label may be empty
// until capture permission has been granted.
type Device struct {
	DeviceID string     `json:"device_id"`
	Label    string     `json:"label"`
	Kind     DeviceKind `json:"kind"`
}

// Sources is the full enumeration result.
type Sources struct {
	Displays    []CaptureSource `json:"displays"`
	AudioInputs []Device        `json:"audio_inputs"`
	VideoInputs []Device        `json:"video_inputs"`
}
