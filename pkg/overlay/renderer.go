// ABOUTME: Render worker: caches drafts, runs the presentation tick, and handles control events
// ABOUTME: Sole owner of the registry, the render and clear FIFOs, and the scaling transform

package overlay

import (
	"time"

	"github.com/mauromedda/overlay-go/internal/log"
)

type renderer struct {
	e   *Engine
	log *log.Logger

	reg       *registry
	renderQ   fifo
	clearQ    fifo
	transform Transform

	dec    *decoder
	ticker *time.Ticker
}

func newRenderer(e *Engine) *renderer {
	return &renderer{
		e:         e,
		log:       e.log.With("render"),
		reg:       newRegistry(),
		transform: Identity,
	}
}

// run is the render worker loop. It returns after STOP has been handled.
func (r *renderer) run() error {
	defer close(r.e.done)
	defer r.e.bus.Close()
	defer r.setTicking(false)

	for {
		var tick <-chan time.Time
		if r.ticker != nil {
			tick = r.ticker.C
		}

		select {
		case c := <-r.e.controlCh:
			if r.control(c) {
				return nil
			}
		case d := <-r.e.cacheCh:
			r.cache(d)
		case reply := <-r.e.queryCh:
			reply <- r.reg.snapshot()
		case <-tick:
			r.tick()
		}
	}
}

func (r *renderer) setTicking(on bool) {
	switch {
	case on && r.ticker == nil:
		r.ticker = time.NewTicker(r.e.cfg.TickInterval)
	case !on && r.ticker != nil:
		r.ticker.Stop()
		r.ticker = nil
	}
}

// cache applies a decoded draft to the registry and queues it.
func (r *renderer) cache(d draft) {
	id := d.hdr.ID
	switch d.hdr.Mode {
	case ModeActive:
		if d.image == nil {
			r.updateGeometry(d)
			return
		}
		if clk := r.e.clk.load(); clk.flushed(d.ts) {
			r.log.Debug("rejecting flushed overlay id=%d ts=%d flush=%d", id, d.ts, clk.flushTS)
			r.e.stats.flushDrops.Add(1)
			r.e.notify(Notification{Kind: NoteDropped, ID: id, Reason: DropFlushed})
			return
		}
		var prev *record
		if old := r.reg.get(id); old != nil {
			if old.presented {
				prev = old
			} else {
				prev, old.replaces = old.replaces, nil
				r.retire(old)
			}
		}
		rec := &record{
			id:            id,
			x:             d.hdr.X,
			y:             d.hdr.Y,
			w:             d.hdr.W,
			h:             d.hdr.H,
			z:             d.hdr.Z,
			image:         d.image,
			renderTime:    d.ts,
			hasRenderTime: true,
			replaces:      prev,
		}
		r.reg.put(rec)
		r.renderQ.push(rec)

	case ModeDeactive, ModeDeferred:
		rec := r.reg.get(id)
		if rec == nil {
			r.log.Debug("%s for unknown overlay id=%d, nothing to clear", d.hdr.Mode, id)
			return
		}
		rec.clearTime = d.ts
		rec.hasClearTime = true
		r.clearQ.push(rec)
	}
}

// updateGeometry applies a pixel-less ACTIVE update to an existing record.
// It takes effect when the record is next presented.
func (r *renderer) updateGeometry(d draft) {
	rec := r.reg.get(d.hdr.ID)
	if rec == nil {
		r.log.Debug("control-only update for unknown overlay id=%d", d.hdr.ID)
		return
	}
	rec.x, rec.y, rec.w, rec.h, rec.z = d.hdr.X, d.hdr.Y, d.hdr.W, d.hdr.H, d.hdr.Z
}

// tick evaluates the head of the render queue, then drains due clears.
// Only one live render entry is evaluated per tick, so a head whose time has
// not come blocks every entry behind it.
func (r *renderer) tick() {
	clk := r.e.clk.load()

	for rec := r.renderQ.peek(); rec != nil; rec = r.renderQ.peek() {
		if !r.reg.current(rec) {
			r.renderQ.pop()
			r.e.stats.staleEntries.Add(1)
			continue
		}
		if clk.delay(r.e.clock, rec.renderTime) < r.e.cfg.PresentationTolerance {
			r.renderQ.pop()
			r.present(rec)
		}
		break
	}

	for rec := r.clearQ.peek(); rec != nil; rec = r.clearQ.peek() {
		if !r.reg.current(rec) {
			r.clearQ.pop()
			r.e.stats.staleEntries.Add(1)
			continue
		}
		if !rec.presented || clk.delay(r.e.clock, rec.clearTime) >= 0 {
			break
		}
		r.clearQ.pop()
		r.retire(rec)
	}
}

func (r *renderer) present(rec *record) {
	bounds := r.transform.Apply(rec.x, rec.y, rec.w, rec.h)
	h, err := r.e.presenter.AddView(View{ID: rec.id, Image: rec.image, Bounds: bounds, Z: rec.z})
	if prev := rec.replaces; prev != nil {
		rec.replaces = nil
		r.retire(prev)
	}
	if err != nil {
		r.log.Error("presenting overlay id=%d: %v", rec.id, err)
		rec.release()
		r.reg.remove(rec.id)
		return
	}
	rec.view = h
	rec.presented = true
	r.e.stats.presented.Add(1)
	r.e.notify(Notification{Kind: NotePresented, ID: rec.id})
	r.log.Debug("presented overlay id=%d at %v", rec.id, bounds)
}

// retire removes the record's view if presented, releases its pixels, and
// drops it from the registry if it is still the live entry. A superseded
// view still waiting on rec goes with it.
func (r *renderer) retire(rec *record) {
	if prev := rec.replaces; prev != nil {
		rec.replaces = nil
		r.retire(prev)
	}
	if rec.presented {
		if err := r.e.presenter.RemoveView(rec.view); err != nil {
			r.log.Error("removing view for overlay id=%d: %v", rec.id, err)
		}
		rec.presented = false
		r.e.stats.removed.Add(1)
		r.e.notify(Notification{Kind: NoteRemoved, ID: rec.id})
	}
	rec.release()
	if r.reg.current(rec) {
		r.reg.remove(rec.id)
	}
}

// control handles one lifecycle or clock event. It reports true once STOP
// has completed and the loop must exit.
func (r *renderer) control(c Control) bool {
	state := r.e.state.load()
	if !state.accepts(c.Kind) {
		r.log.Error("%s not allowed in state %s, ignoring", c.Kind, state)
		return false
	}

	switch c.Kind {
	case CtlConfigure:
		r.transform = NewTransform(r.e.cfg.Surface, c.Session, r.e.cfg.Display)
		r.e.clk.update(func(s *sessionClock) {
			*s = sessionClock{latency: c.Latency, avSync: !c.AVSyncOff}
		})
		r.log.Info("configured session %dx%d latency=%dus avsync=%t",
			c.Session.Width, c.Session.Height, c.Latency, !c.AVSyncOff)
		r.e.setState(StateInitializing)

	case CtlStart:
		if r.dec != nil {
			r.log.Error("decode worker already running, ignoring START")
			return false
		}
		r.dec = r.e.startDecoder()
		r.setTicking(true)
		r.e.setState(StateRunning)

	case CtlPause:
		r.setTicking(false)
		r.e.setState(StatePaused)

	case CtlResume:
		r.e.clk.update(func(s *sessionClock) { s.flushPending = false })
		r.setTicking(true)
		r.e.setState(StateRunning)

	case CtlFlush:
		r.e.clk.update(func(s *sessionClock) {
			s.flushPending = true
			s.flushTS = c.Timestamp
		})
		r.log.Debug("flush at %d", c.Timestamp)

	case CtlBaseTime:
		r.e.clk.update(func(s *sessionClock) { s.base = c.Timestamp })

	case CtlDelayTime:
		r.e.clk.update(func(s *sessionClock) { s.latency = c.Latency })

	case CtlStop:
		r.shutdown()
		return true
	}
	return false
}

// shutdown tears everything down without presenting and signals the
// shutdown coordinator once the registry is empty.
func (r *renderer) shutdown() {
	r.e.setState(StateStopping)
	r.setTicking(false)

	if r.dec != nil {
		r.dec.stop()
		r.dec = nil
	}
	r.discardPending()

	r.renderQ.reset()
	r.clearQ.reset()
	for _, id := range r.reg.ids() {
		r.retire(r.reg.get(id))
	}

	close(r.e.drained)
	r.e.setState(StateNull)
	r.log.Info("stopped")
}

// discardPending empties the buffer and cache queues once no decode worker
// can write to them.
func (r *renderer) discardPending() {
	for {
		select {
		case b := <-r.e.bufferCh:
			id := -1
			if len(b.Data) > 0 {
				id = int(b.Data[0])
			}
			r.e.notify(Notification{Kind: NoteDropped, ID: id, Reason: DropStopped})
		case d := <-r.e.cacheCh:
			d.image = nil
			r.e.notify(Notification{Kind: NoteDropped, ID: d.hdr.ID, Reason: DropStopped})
		default:
			return
		}
	}
}
