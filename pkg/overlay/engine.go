// ABOUTME: Engine wires ingest, the decode worker, the render worker, and the shutdown handshake
// ABOUTME: Producers call UpdateEvent; buffers go to decode, control events go straight to render

package overlay

import (
	"errors"
	"image"
	"os"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mauromedda/overlay-go/internal/eventbus"
	"github.com/mauromedda/overlay-go/internal/log"
)

// Engine is the overlay compositing and timing engine for one streaming session.
//
// Goroutine topology:
//   - render worker: started by New, owns the registry, queues, transform, clock
//   - decode worker: started by START, stopped and joined by STOP
//
// All exported methods are safe for concurrent use.
type Engine struct {
	cfg       Config
	session   string
	log       *log.Logger
	clock     Clock
	codec     Codec
	presenter Presenter

	bus   *eventbus.Bus[Notification]
	stats counters
	clk   clockCell
	state stateCell

	controlCh chan Control
	bufferCh  chan Buffer
	cacheCh   chan draft
	queryCh   chan chan []OverlayInfo

	workers errgroup.Group
	drained chan struct{} // closed by the render worker once the registry is empty at STOP
	done    chan struct{} // closed when the render worker returns

	stop stopOnce
}

// draft is a decoded update handed from the decode worker to the render worker.
type draft struct {
	hdr   Header
	ts    int64
	image image.Image
}

// New creates an engine presenting onto p and starts its render worker.
// The engine starts in StateNull; send CONFIGURE and START to begin presenting.
func New(cfg Config, p Presenter, opts ...Option) *Engine {
	cfg = cfg.withDefaults()
	e := &Engine{
		cfg:       cfg,
		clock:     SystemClock{},
		codec:     StdCodec{},
		presenter: p,
		bus:       eventbus.New[Notification](),
		controlCh: make(chan Control, 16),
		bufferCh:  make(chan Buffer, cfg.QueueDepth),
		cacheCh:   make(chan draft, cfg.QueueDepth),
		queryCh:   make(chan chan []OverlayInfo),
		drained:   make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.session == "" {
		e.session = uuid.NewString()
	}
	if e.log == nil {
		e.log = log.New(os.Stderr, log.ForDebug(cfg.Debug))
	} else if cfg.Debug {
		e.log = e.log.WithLevel(log.LevelDebug)
	}
	e.log = e.log.With("overlay " + shortID(e.session))

	r := newRenderer(e)
	e.workers.Go(r.run)
	return e
}

func shortID(s string) string {
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// Session returns the engine's session id.
func (e *Engine) Session() string { return e.session }

// State returns the current lifecycle state.
func (e *Engine) State() State { return e.state.load() }

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats { return e.stats.snapshot() }

// Subscribe registers for notifications. The channel is closed on unsubscribe
// or once the engine has stopped. Slow subscribers miss notifications.
func (e *Engine) Subscribe(buffer int) (<-chan Notification, func()) {
	return e.bus.Subscribe(buffer)
}

// UpdateEvent is the producer entry point. A "BUFFER" event is
// (tag, timestamp, size, []byte); anything else is a tagged control event.
// Errors are logged and never returned to the producer.
func (e *Engine) UpdateEvent(fields []any) {
	if len(fields) == 0 {
		return
	}
	if tag, _ := fields[0].(string); tag == TagBuffer {
		b, err := ParseBuffer(fields)
		if errors.Is(err, ErrShortHeader) {
			e.stats.shortFrames.Add(1)
			return
		}
		if err != nil {
			e.log.Warn("ignoring buffer event: %v", err)
			return
		}
		e.PushBuffer(b.Timestamp, b.Data)
		return
	}

	c, err := ParseControl(fields)
	if err != nil {
		e.log.Warn("ignoring control event: %v", err)
		return
	}
	e.PushControl(c)
}

// PushBuffer queues a raw overlay buffer for the decode worker.
// Buffers shorter than HeaderSize are dropped silently.
func (e *Engine) PushBuffer(ts int64, data []byte) {
	if len(data) < HeaderSize {
		e.stats.shortFrames.Add(1)
		return
	}
	e.stats.buffers.Add(1)
	select {
	case <-e.done:
		return
	default:
	}
	select {
	case e.bufferCh <- Buffer{Timestamp: ts, Data: data}:
	default:
		e.log.Warn("decode queue full, dropping buffer id=%d ts=%d", data[0], ts)
		e.notify(Notification{Kind: NoteDropped, ID: int(data[0]), Reason: DropQueueFull})
	}
}

// PushControl queues a control event for the render worker. A STOP sent
// this way starts the shutdown without waiting for it; use Stop or Release
// to block until overlays are reclaimed.
func (e *Engine) PushControl(c Control) {
	select {
	case e.controlCh <- c:
	case <-e.done:
		e.log.Debug("engine stopped, dropping %s", c.Kind)
	}
}

// Overlays returns a snapshot of the registry sorted by id. It returns nil
// once the engine has stopped.
func (e *Engine) Overlays() []OverlayInfo {
	reply := make(chan []OverlayInfo, 1)
	select {
	case e.queryCh <- reply:
	case <-e.done:
		return nil
	}
	return <-reply
}

func (e *Engine) notify(n Notification) {
	n.Session = e.session
	n.At = e.clk.load().now(e.clock)
	e.bus.Publish(n)
}

func (e *Engine) setState(s State) {
	if e.state.swap(s) == s {
		return
	}
	e.log.Debug("state -> %s", s)
	e.notify(Notification{Kind: NoteStateChanged, State: s})
}
