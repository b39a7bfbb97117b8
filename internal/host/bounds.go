package host

import "fmt"

// Bounds is a display rectangle in virtual-desktop coordinates.
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DisplayBoundsProvider resolves the geometry of a display so the floating
// camera preview can be positioned relative to it.
type DisplayBoundsProvider interface {
	DisplayBounds(displayID string) (Bounds, error)
}

// StaticBoundsProvider serves display geometry from a fixed table, with a
// primary display fallback for unknown IDs.
type StaticBoundsProvider struct {
	Primary  Bounds
	Displays map[string]Bounds
}

// NewStaticBoundsProvider creates a provider with a single primary display.
func NewStaticBoundsProvider(primary Bounds) *StaticBoundsProvider {
	return &StaticBoundsProvider{Primary: primary, Displays: map[string]Bounds{}}
}

// DisplayBounds returns the bounds for the given display, or the primary
// display's bounds when the ID is unknown or empty.
func (p *StaticBoundsProvider) DisplayBounds(displayID string) (Bounds, error) {
	if b, ok := p.Displays[displayID]; ok {
		return b, nil
	}
	if p.Primary.Width > 0 && p.Primary.Height > 0 {
		return p.Primary, nil
	}
	return Bounds{}, fmt.Errorf("unknown display: %s", displayID)
}
