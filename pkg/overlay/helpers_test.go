// ABOUTME: Shared test doubles for the overlay engine: fake clock, recording presenter, fixtures
// ABOUTME: Includes a polling waitFor helper for assertions on asynchronous workers

package overlay

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mauromedda/overlay-go/internal/eventbus"
	"github.com/mauromedda/overlay-go/internal/log"
)

const testEpoch = 1_000_000_000

type fakeClock struct {
	us atomic.Int64
}

func newFakeClock() *fakeClock {
	c := &fakeClock{}
	c.us.Store(testEpoch)
	return c
}

func (c *fakeClock) NowMicros() int64 { return c.us.Load() }

func (c *fakeClock) advance(d int64) { c.us.Add(d) }

type recPresenter struct {
	mu      sync.Mutex
	next    ViewHandle
	live    map[ViewHandle]View
	adds    []View
	removes map[int]int
	addErr  error
	block   chan struct{}
	blocked int
}

func newRecPresenter() *recPresenter {
	return &recPresenter{
		live:    make(map[ViewHandle]View),
		removes: make(map[int]int),
	}
}

func (p *recPresenter) AddView(v View) (ViewHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.addErr != nil {
		return 0, p.addErr
	}
	p.next++
	p.live[p.next] = v
	p.adds = append(p.adds, v)
	return p.next, nil
}

func (p *recPresenter) RemoveView(h ViewHandle) error {
	p.mu.Lock()
	block := p.block
	if block != nil {
		p.blocked++
	}
	p.mu.Unlock()
	if block != nil {
		<-block
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.live[h]
	if !ok {
		return errors.New("unknown view")
	}
	delete(p.live, h)
	p.removes[v.ID]++
	return nil
}

func (p *recPresenter) addedIDs() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]int, 0, len(p.adds))
	for _, v := range p.adds {
		ids = append(ids, v.ID)
	}
	return ids
}

// blockedCount is the number of RemoveView calls that waited on block.
func (p *recPresenter) blockedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.blocked
}

func (p *recPresenter) addCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.adds)
}

func (p *recPresenter) removeCount(id int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.removes[id]
}

func (p *recPresenter) liveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.live)
}

func (p *recPresenter) lastAdd() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.adds) == 0 {
		return View{}
	}
	return p.adds[len(p.adds)-1]
}

// testImage is a 2x2 opaque image.
func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := range 2 {
		for x := range 2 {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	return img
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage()); err != nil {
		t.Fatalf("encoding test PNG: %v", err)
	}
	return buf.Bytes()
}

// bareEngine builds an Engine without starting any goroutine so renderer and
// decode steps can be driven directly.
func bareEngine(clk Clock, p Presenter) *Engine {
	cfg := Config{Surface: Size{Width: 1280, Height: 720}}.withDefaults()
	return &Engine{
		cfg:       cfg,
		session:   "test-session",
		log:       log.Discard(),
		clock:     clk,
		codec:     StdCodec{},
		presenter: p,
		bus:       eventbus.New[Notification](),
		controlCh: make(chan Control, 4),
		bufferCh:  make(chan Buffer, 4),
		cacheCh:   make(chan draft, 4),
		queryCh:   make(chan chan []OverlayInfo),
		drained:   make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// configuredRenderer returns a renderer after CONFIGURE 1280x720 with the
// session clock anchored so that session time is 0 now.
func configuredRenderer(clk *fakeClock, p Presenter, avSyncOff bool) *renderer {
	r := newRenderer(bareEngine(clk, p))
	r.control(Control{Kind: CtlConfigure, AVSyncOff: avSyncOff, Session: Size{Width: 1280, Height: 720}})
	r.control(Control{Kind: CtlBaseTime, Timestamp: clk.NowMicros()})
	return r
}

func activeDraft(id int, ts int64) draft {
	return draft{
		hdr:   Header{ID: id, Mode: ModeActive, HasImage: true, X: 10, Y: 20, W: 100, H: 50, Z: zBase},
		ts:    ts,
		image: testImage(),
	}
}

func clearDraft(id int, mode Mode, ts int64) draft {
	return draft{hdr: Header{ID: id, Mode: mode}, ts: ts}
}

// newTestEngine starts a full engine on a fake clock and registers Release on cleanup.
func newTestEngine(t *testing.T, cfg Config, opts ...Option) (*Engine, *fakeClock, *recPresenter) {
	t.Helper()
	clk := newFakeClock()
	p := newRecPresenter()
	if cfg.Surface.Empty() {
		cfg.Surface = Size{Width: 1280, Height: 720}
	}
	opts = append([]Option{WithClock(clk), WithLogger(log.Discard())}, opts...)
	e := New(cfg, p, opts...)
	t.Cleanup(func() { _ = e.Release() })
	return e, clk, p
}

// startSession sends CONFIGURE, BASETIME (session time 0 = now), and START.
func startSession(e *Engine, clk *fakeClock, avSyncOff string) {
	e.UpdateEvent([]any{"CONFIGURE", "0", avSyncOff, "1280x720"})
	e.UpdateEvent([]any{"BASETIME", strconv.FormatInt(clk.NowMicros(), 10)})
	e.UpdateEvent([]any{"START"})
}

func pushOverlay(e *Engine, ts int64, h Header, payload []byte) {
	buf := EncodeBuffer(h, payload)
	e.UpdateEvent([]any{"BUFFER", strconv.FormatInt(ts, 10), strconv.Itoa(len(buf)), buf})
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func hasOverlay(e *Engine, id int) bool {
	for _, o := range e.Overlays() {
		if o.ID == id {
			return true
		}
	}
	return false
}
