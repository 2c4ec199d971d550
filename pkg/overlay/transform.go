// ABOUTME: Scaling transform from session coordinates to device coordinates
// ABOUTME: Recomputed on every CONFIGURE from surface, session, and display sizes

package overlay

import (
	"image"
	"math"
)

// Size is a width/height pair in pixels.
type Size struct {
	Width  int
	Height int
}

// Empty reports whether either dimension is non-positive.
func (s Size) Empty() bool { return s.Width <= 0 || s.Height <= 0 }

// Transform maps session (pre-scale) coordinates onto the device display.
type Transform struct {
	WidthScale  float64
	HeightScale float64
	DeltaX      int
	DeltaY      int
}

// Identity leaves coordinates unchanged.
var Identity = Transform{WidthScale: 1, HeightScale: 1}

// NewTransform stretches the session frame over the surface and centres the
// surface on the display. An unknown session size yields the identity scale;
// an unknown or smaller display yields no offset.
func NewTransform(surface, session, display Size) Transform {
	t := Identity
	if !session.Empty() && !surface.Empty() {
		t.WidthScale = float64(surface.Width) / float64(session.Width)
		t.HeightScale = float64(surface.Height) / float64(session.Height)
	}
	if !display.Empty() && !surface.Empty() {
		if display.Width > surface.Width {
			t.DeltaX = (display.Width - surface.Width) / 2
		}
		if display.Height > surface.Height {
			t.DeltaY = (display.Height - surface.Height) / 2
		}
	}
	return t
}

// Apply returns the device rectangle for a session-space box.
func (t Transform) Apply(x, y, w, h int) image.Rectangle {
	x0 := int(math.Round(float64(x)*t.WidthScale)) + t.DeltaX
	y0 := int(math.Round(float64(y)*t.HeightScale)) + t.DeltaY
	dw := int(math.Round(float64(w) * t.WidthScale))
	dh := int(math.Round(float64(h) * t.HeightScale))
	return image.Rect(x0, y0, x0+dw, y0+dh)
}
