// ABOUTME: Overlay records, the id-keyed registry, and the FIFO queues of the render worker
// ABOUTME: Everything here is owned by the render goroutine and is not safe for concurrent use

package overlay

import (
	"image"
	"sort"
)

// record is the registry entry for one overlay id.
type record struct {
	id    int
	x, y  int
	w, h  int
	z     int
	image image.Image

	renderTime    int64
	hasRenderTime bool
	clearTime     int64
	hasClearTime  bool

	presented bool
	view      ViewHandle

	// replaces is the presented record this one superseded. Its view stays
	// up until this record is presented or retired.
	replaces *record
}

// release drops the pixel reference. The record must not be presented.
func (r *record) release() {
	r.image = nil
}

func (r *record) info() OverlayInfo {
	return OverlayInfo{
		ID:            r.id,
		X:             r.x,
		Y:             r.y,
		W:             r.w,
		H:             r.h,
		Z:             r.z,
		HasImage:      r.image != nil,
		RenderTime:    r.renderTime,
		HasRenderTime: r.hasRenderTime,
		ClearTime:     r.clearTime,
		HasClearTime:  r.hasClearTime,
		Presented:     r.presented,
	}
}

// OverlayInfo is a copy of a registry entry as seen by the render worker.
type OverlayInfo struct {
	ID            int
	X, Y, W, H    int
	Z             int
	HasImage      bool
	RenderTime    int64
	HasRenderTime bool
	ClearTime     int64
	HasClearTime  bool
	Presented     bool
}

type registry struct {
	byID map[int]*record
}

func newRegistry() *registry {
	return &registry{byID: make(map[int]*record)}
}

func (g *registry) get(id int) *record { return g.byID[id] }

func (g *registry) put(r *record) { g.byID[r.id] = r }

func (g *registry) remove(id int) { delete(g.byID, id) }

func (g *registry) len() int { return len(g.byID) }

// current reports whether r is still the live entry for its id.
func (g *registry) current(r *record) bool {
	return r != nil && g.byID[r.id] == r
}

// snapshot returns entries sorted by id.
func (g *registry) snapshot() []OverlayInfo {
	out := make([]OverlayInfo, 0, len(g.byID))
	for _, r := range g.byID {
		out = append(out, r.info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ids returns the registered ids in ascending order.
func (g *registry) ids() []int {
	out := make([]int, 0, len(g.byID))
	for id := range g.byID {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// fifo is a queue of record references. Entries point at the record instance
// that was current when queued so superseded entries can be recognised.
type fifo struct {
	items []*record
}

func (q *fifo) push(r *record) { q.items = append(q.items, r) }

func (q *fifo) peek() *record {
	if len(q.items) == 0 {
		return nil
	}
	return q.items[0]
}

func (q *fifo) pop() {
	if len(q.items) == 0 {
		return
	}
	q.items[0] = nil
	q.items = q.items[1:]
}

func (q *fifo) len() int { return len(q.items) }

func (q *fifo) reset() {
	clear(q.items)
	q.items = q.items[:0]
}
