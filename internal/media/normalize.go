package media

import (
	"fmt"
	"strings"
)

// mainScreenLabel is the canonical name for the full-desktop capture target,
// replacing the locale-dependent "Entire Screen" variants the platforms emit.
const mainScreenLabel = "Main Screen"

// ClassifySource tags a desktop source as screen or window based on the id
// shape the host capturer uses ("screen:0:0", "window:1234:2").
func ClassifySource(id string) SourceType {
	if strings.HasPrefix(id, "screen:") {
		return SourceScreen
	}
	return SourceWindow
}

// NormalizeSource rewrites a source name into its stable cross-platform form
// and fills in the Type tag.
func NormalizeSource(src CaptureSource) CaptureSource {
	if src.Type == "" {
		src.Type = ClassifySource(src.ID)
	}
	switch src.Type {
	case SourceScreen:
		src.Name = normalizeScreenName(src.Name)
	case SourceWindow:
		src.Name = normalizeWindowName(src.Name)
	}
	return src
}

func normalizeScreenName(name string) string {
	if strings.Contains(strings.ToLower(name), "entire") {
		return mainScreenLabel
	}
	return name
}

// normalizeWindowName drops window-manager decoration by truncating the
// title at the first " - " separator.
func normalizeWindowName(name string) string {
	if idx := strings.Index(name, " - "); idx >= 0 {
		return strings.TrimSpace(name[:idx])
	}
	return strings.TrimSpace(name)
}

// NormalizeDevice substitutes a placeholder label when enumeration ran
// without granted permissions and the platform withheld the real one.
func NormalizeDevice(dev Device) Device {
	if dev.Label != "" {
		return dev
	}
	switch dev.Kind {
	case AudioInput:
		dev.Label = fmt.Sprintf("Microphone %s", dev.DeviceID)
	case VideoInput:
		dev.Label = fmt.Sprintf("Camera %s", dev.DeviceID)
	default:
		dev.Label = fmt.Sprintf("Device %s", dev.DeviceID)
	}
	return dev
}
