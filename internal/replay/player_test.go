// ABOUTME: Tests for replay playback into an ingest target
// ABOUTME: Verifies buffer encoding, image loading, scheduling, skips, and cancellation

package replay

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mauromedda/overlay-go/internal/log"
	"github.com/mauromedda/overlay-go/pkg/overlay"
)

type sink struct {
	mu     sync.Mutex
	events [][]any
}

func (s *sink) UpdateEvent(fields []any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, fields)
}

func TestPlayer_EncodesOverlay(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "logo.png"), []byte("PNGDATA"), 0o600); err != nil {
		t.Fatal(err)
	}
	s := &Script{Dir: dir}
	p := NewPlayer(s, log.Discard(), 1)

	fields, err := p.Fields(Step{Overlay: &OverlaySpec{ID: 7, Mode: "active", X: 1, Y: 2, W: 30, H: 40, Z: 5, Timestamp: 900, Image: "logo.png"}})
	if err != nil {
		t.Fatalf("Fields: %v", err)
	}

	buf, err := overlay.ParseBuffer(fields)
	if err != nil {
		t.Fatalf("ParseBuffer: %v", err)
	}
	if buf.Timestamp != 900 {
		t.Errorf("timestamp = %d, want 900", buf.Timestamp)
	}
	h, err := overlay.ParseHeader(buf.Data)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	want := overlay.Header{ID: 7, Mode: overlay.ModeActive, HasImage: true, X: 1, Y: 2, W: 30, H: 40, Z: 100005}
	if h != want {
		t.Errorf("header = %+v, want %+v", h, want)
	}
	if !bytes.Equal(buf.Data[overlay.HeaderSize:], []byte("PNGDATA")) {
		t.Error("payload not appended after the header")
	}
}

func TestPlayer_FieldErrors(t *testing.T) {
	t.Parallel()

	p := NewPlayer(&Script{Dir: t.TempDir()}, log.Discard(), 1)
	for _, o := range []OverlaySpec{
		{ID: 1, Mode: "sideways"},
		{ID: 1, Mode: "active", Z: 256},
		{ID: 1, Mode: "active", Image: "missing.png"},
		{ID: 300, Mode: "active"},
		{ID: -1, Mode: "active"},
		{ID: 1, Mode: "active", X: 70000},
		{ID: 1, Mode: "active", Y: -1},
		{ID: 1, Mode: "active", W: 65536},
		{ID: 1, Mode: "active", H: -5},
	} {
		if _, err := p.Fields(Step{Overlay: &o}); err == nil {
			t.Errorf("overlay %+v should fail", o)
		}
	}
	edge := OverlaySpec{ID: 255, Mode: "active", X: 65535, Y: 0, W: 65535, H: 65535, Z: 255}
	if _, err := p.Fields(Step{Overlay: &edge}); err != nil {
		t.Errorf("in-range edge values rejected: %v", err)
	}
	if _, err := p.Fields(Step{}); !errors.Is(err, ErrEmptyStep) {
		t.Errorf("empty step err = %v", err)
	}
}

func TestPlayer_PlaysInOrderAndSkipsBadSteps(t *testing.T) {
	t.Parallel()

	s := &Script{Steps: []Step{
		{At: 0, Event: []any{"START"}, Line: 1},
		{At: 1000, Overlay: &OverlaySpec{Mode: "bogus"}, Line: 2},
		{At: 2000, Buffer: &RawBuffer{Timestamp: 3, Data: make([]byte, overlay.HeaderSize)}, Line: 3},
	}}
	var out bytes.Buffer
	l := log.New(&out, log.ForDebug(false))
	target := &sink{}

	if err := NewPlayer(s, l, 10).Play(context.Background(), target); err != nil {
		t.Fatalf("Play: %v", err)
	}

	if len(target.events) != 2 {
		t.Fatalf("events = %d, want 2", len(target.events))
	}
	if target.events[0][0] != "START" || target.events[1][0] != overlay.TagBuffer {
		t.Errorf("events = %v", target.events)
	}
	if !strings.Contains(out.String(), "[replay] line 2 skipped") {
		t.Errorf("log = %q, want skip warning", out.String())
	}
}

func TestPlayer_HonoursSchedule(t *testing.T) {
	t.Parallel()

	s := &Script{Steps: []Step{{At: 40_000, Event: []any{"START"}}}}
	start := time.Now()
	if err := NewPlayer(s, log.Discard(), 1).Play(context.Background(), &sink{}); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("played after %v, want >= 40ms", elapsed)
	}
}

func TestPlayer_Cancel(t *testing.T) {
	t.Parallel()

	s := &Script{Steps: []Step{{At: int64(time.Hour / time.Microsecond), Event: []any{"STOP"}}}}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	target := &sink{}
	err := NewPlayer(s, log.Discard(), 1).Play(ctx, target)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Play = %v, want DeadlineExceeded", err)
	}
	if len(target.events) != 0 {
		t.Error("cancelled step was delivered")
	}
}

type fixedClock int64

func (c fixedClock) NowMicros() int64 { return int64(c) }

func TestPlayer_BaseTimeNow(t *testing.T) {
	t.Parallel()

	p := NewPlayer(&Script{}, log.Discard(), 1)
	p.UseClock(fixedClock(123_456))

	ev := []any{"basetime", "now"}
	got, err := p.Fields(Step{Event: ev})
	if err != nil {
		t.Fatalf("Fields: %v", err)
	}
	if got[1] != int64(123_456) {
		t.Errorf("BASETIME arg = %v, want 123456", got[1])
	}
	if ev[1] != "now" {
		t.Error("script step was mutated")
	}

	got, _ = p.Fields(Step{Event: []any{"BASETIME", "42"}})
	if got[1] != "42" {
		t.Errorf("explicit BASETIME changed to %v", got[1])
	}
}
