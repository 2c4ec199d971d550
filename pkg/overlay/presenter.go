// ABOUTME: Surface presenter collaborator interface
// ABOUTME: The render worker adds and removes positioned views through it, never concurrently

package overlay

import "image"

// ViewHandle identifies a view added to a presenter.
type ViewHandle uint64

// View describes one overlay image placed on the display.
// Bounds are device coordinates after the scaling transform.
type View struct {
	ID     int
	Image  image.Image
	Bounds image.Rectangle
	Z      int
}

// Presenter paints and removes overlay views on the shared display surface.
// Calls come from the render goroutine only.
type Presenter interface {
	AddView(v View) (ViewHandle, error)
	RemoveView(h ViewHandle) error
}
