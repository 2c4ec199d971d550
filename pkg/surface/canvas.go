// ABOUTME: In-memory display compositor implementing the overlay presenter interface
// ABOUTME: Scales each view into its bounds with CatmullRom and composites in z then arrival order

package surface

import (
	"fmt"
	goimage "image"
	"image/color"
	"sort"
	"sync"

	"golang.org/x/image/draw"

	"github.com/mauromedda/overlay-go/pkg/overlay"
)

// Canvas is a display-sized RGBA surface holding live overlay views.
// Safe for concurrent use: the engine adds/removes while a UI snapshots.
type Canvas struct {
	mu         sync.Mutex
	size       overlay.Size
	background color.Color
	next       overlay.ViewHandle
	seq        uint64
	views      map[overlay.ViewHandle]*placed
	frame      *goimage.RGBA
	dirty      bool
}

// placed is a view pre-scaled to its bounds.
type placed struct {
	view   overlay.View
	seq    uint64
	scaled goimage.Image
}

// NewCanvas creates a canvas of the given display size with a transparent background.
func NewCanvas(size overlay.Size) *Canvas {
	return &Canvas{
		size:       size,
		background: color.Transparent,
		views:      make(map[overlay.ViewHandle]*placed),
		dirty:      true,
	}
}

// SetBackground sets the colour painted under all views.
func (c *Canvas) SetBackground(bg color.Color) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.background = bg
	c.dirty = true
}

// AddView implements overlay.Presenter.
func (c *Canvas) AddView(v overlay.View) (overlay.ViewHandle, error) {
	if v.Image == nil {
		return 0, fmt.Errorf("view %d has no image", v.ID)
	}
	if v.Bounds.Empty() {
		return 0, fmt.Errorf("view %d has empty bounds %v", v.ID, v.Bounds)
	}

	scaled := scaleTo(v.Image, v.Bounds.Dx(), v.Bounds.Dy())

	c.mu.Lock()
	defer c.mu.Unlock()
	c.next++
	c.seq++
	c.views[c.next] = &placed{view: v, seq: c.seq, scaled: scaled}
	c.dirty = true
	return c.next, nil
}

// RemoveView implements overlay.Presenter.
func (c *Canvas) RemoveView(h overlay.ViewHandle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.views[h]; !ok {
		return fmt.Errorf("unknown view handle %d", h)
	}
	delete(c.views, h)
	c.dirty = true
	return nil
}

// Views returns the live views in compositing order.
func (c *Canvas) Views() []overlay.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	ordered := c.orderedLocked()
	out := make([]overlay.View, len(ordered))
	for i, p := range ordered {
		out[i] = p.view
	}
	return out
}

// Len returns the number of live views.
func (c *Canvas) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.views)
}

// Snapshot returns a copy of the composed frame.
func (c *Canvas) Snapshot() *goimage.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dirty || c.frame == nil {
		c.composeLocked()
	}
	out := goimage.NewRGBA(c.frame.Bounds())
	copy(out.Pix, c.frame.Pix)
	return out
}

func (c *Canvas) orderedLocked() []*placed {
	out := make([]*placed, 0, len(c.views))
	for _, p := range c.views {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].view.Z != out[j].view.Z {
			return out[i].view.Z < out[j].view.Z
		}
		return out[i].seq < out[j].seq
	})
	return out
}

func (c *Canvas) composeLocked() {
	w, h := c.size.Width, c.size.Height
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	frame := goimage.NewRGBA(goimage.Rect(0, 0, w, h))
	draw.Draw(frame, frame.Bounds(), goimage.NewUniform(c.background), goimage.Point{}, draw.Src)
	for _, p := range c.orderedLocked() {
		draw.Draw(frame, p.view.Bounds, p.scaled, goimage.Point{}, draw.Over)
	}
	c.frame = frame
	c.dirty = false
}

// scaleTo resizes src to w x h using CatmullRom interpolation.
func scaleTo(src goimage.Image, w, h int) goimage.Image {
	b := src.Bounds()
	if b.Dx() == w && b.Dy() == h && b.Min == (goimage.Point{}) {
		return src
	}
	dst := goimage.NewRGBA(goimage.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

// DefaultSize is used when neither display nor surface size is configured.
var DefaultSize = overlay.Size{Width: 1920, Height: 1080}

// SizeFor picks the canvas size for an engine config: the display when
// known, otherwise the surface, otherwise DefaultSize.
func SizeFor(cfg overlay.Config) overlay.Size {
	switch {
	case !cfg.Display.Empty():
		return cfg.Display
	case !cfg.Surface.Empty():
		return cfg.Surface
	}
	return DefaultSize
}
