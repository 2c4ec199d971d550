// ABOUTME: Presenter decorator that counts add/remove calls per overlay id
// ABOUTME: Used for CLI summaries and to inject presenter failures in tests

package surface

import (
	"sort"
	"sync"

	"github.com/mauromedda/overlay-go/pkg/overlay"
)

// Recorder wraps a presenter and tallies its calls.
type Recorder struct {
	next overlay.Presenter

	mu      sync.Mutex
	ids     map[overlay.ViewHandle]int
	adds    map[int]int
	removes map[int]int
	addErr  error
	rmErr   error
}

// NewRecorder wraps next.
func NewRecorder(next overlay.Presenter) *Recorder {
	return &Recorder{
		next:    next,
		ids:     make(map[overlay.ViewHandle]int),
		adds:    make(map[int]int),
		removes: make(map[int]int),
	}
}

// FailAdds makes every later AddView return err without reaching the wrapped presenter.
func (r *Recorder) FailAdds(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addErr = err
}

// FailRemoves makes every later RemoveView return err after forwarding the call.
func (r *Recorder) FailRemoves(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rmErr = err
}

// AddView implements overlay.Presenter.
func (r *Recorder) AddView(v overlay.View) (overlay.ViewHandle, error) {
	r.mu.Lock()
	err := r.addErr
	r.mu.Unlock()
	if err != nil {
		return 0, err
	}

	h, err := r.next.AddView(v)
	if err != nil {
		return 0, err
	}
	r.mu.Lock()
	r.ids[h] = v.ID
	r.adds[v.ID]++
	r.mu.Unlock()
	return h, nil
}

// RemoveView implements overlay.Presenter.
func (r *Recorder) RemoveView(h overlay.ViewHandle) error {
	err := r.next.RemoveView(h)

	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.ids[h]; ok {
		r.removes[id]++
		delete(r.ids, h)
	}
	if err != nil {
		return err
	}
	return r.rmErr
}

// Tally is the add/remove count for one overlay id.
type Tally struct {
	ID      int
	Adds    int
	Removes int
}

// Tallies returns per-id counts sorted by id.
func (r *Recorder) Tallies() []Tally {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[int]struct{}, len(r.adds))
	for id := range r.adds {
		seen[id] = struct{}{}
	}
	for id := range r.removes {
		seen[id] = struct{}{}
	}
	out := make([]Tally, 0, len(seen))
	for id := range seen {
		out = append(out, Tally{ID: id, Adds: r.adds[id], Removes: r.removes[id]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Live returns how many views are currently held by the wrapped presenter.
func (r *Recorder) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}
