// ABOUTME: Tests for the decode worker's header handling, drop window, and codec failures
// ABOUTME: Calls decodeBuffer directly against a fake clock and a counting codec

package overlay

import (
	"errors"
	"image"
	"sync/atomic"
	"testing"

	"github.com/mauromedda/overlay-go/internal/log"
)

type countingCodec struct {
	calls atomic.Int32
	fail  bool
}

func (c *countingCodec) Decode(data []byte) (image.Image, error) {
	c.calls.Add(1)
	if c.fail {
		return nil, errors.New("corrupt payload")
	}
	return testImage(), nil
}

func decodeEngine(clk *fakeClock, codec Codec, avSync bool) *Engine {
	e := bareEngine(clk, newRecPresenter())
	e.codec = codec
	e.clk.update(func(s *sessionClock) {
		s.base = clk.NowMicros()
		s.avSync = avSync
	})
	return e
}

func TestDecodeBuffer_DropWindow(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	codec := &countingCodec{}
	e := decodeEngine(clk, codec, true)
	img := []byte{1, 2, 3}
	hdr := Header{ID: 1, Mode: ModeActive}

	_, ok := e.decodeBuffer(log.Discard(), Buffer{Timestamp: -DefaultDropWindow, Data: EncodeBuffer(hdr, img)})
	if ok {
		t.Fatal("buffer at exactly -200ms must be dropped")
	}
	if codec.calls.Load() != 0 {
		t.Error("dropped buffer must never be decoded")
	}
	if e.Stats().LateDrops != 1 {
		t.Errorf("LateDrops = %d, want 1", e.Stats().LateDrops)
	}

	d, ok := e.decodeBuffer(log.Discard(), Buffer{Timestamp: -DefaultDropWindow + 1, Data: EncodeBuffer(hdr, img)})
	if !ok || d.image == nil {
		t.Error("buffer just inside the window must be decoded")
	}
}

func TestDecodeBuffer_NoDropWithoutAVSync(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	e := decodeEngine(clk, &countingCodec{}, false)

	d, ok := e.decodeBuffer(log.Discard(), Buffer{Timestamp: -10_000_000, Data: EncodeBuffer(Header{ID: 1, Mode: ModeActive}, []byte{1})})
	if !ok || d.image == nil {
		t.Error("late buffers are kept when AV sync is off")
	}
}

func TestDecodeBuffer_FlushDrop(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	codec := &countingCodec{}
	e := decodeEngine(clk, codec, false)
	e.clk.update(func(s *sessionClock) { s.flushPending, s.flushTS = true, 5000 })

	if _, ok := e.decodeBuffer(log.Discard(), Buffer{Timestamp: 5000, Data: EncodeBuffer(Header{ID: 2, Mode: ModeActive}, []byte{1})}); ok {
		t.Error("buffer at the flush point must be dropped")
	}
	if codec.calls.Load() != 0 {
		t.Error("flushed buffer must not be decoded")
	}
	if _, ok := e.decodeBuffer(log.Discard(), Buffer{Timestamp: 5001, Data: EncodeBuffer(Header{ID: 2, Mode: ModeActive}, []byte{1})}); !ok {
		t.Error("buffer after the flush point must pass")
	}
}

func TestDecodeBuffer_ControlOnlySkipsPolicy(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	codec := &countingCodec{}
	e := decodeEngine(clk, codec, true)

	buf := EncodeHeader(Header{ID: 3, Mode: ModeDeactive, HasImage: true})
	d, ok := e.decodeBuffer(log.Discard(), Buffer{Timestamp: -10_000_000, Data: buf})
	if !ok {
		t.Fatal("header-only buffer is a control update, never dropped")
	}
	if d.image != nil || d.hdr.Mode != ModeDeactive || codec.calls.Load() != 0 {
		t.Errorf("unexpected draft %+v (decode calls %d)", d, codec.calls.Load())
	}

	buf = EncodeHeader(Header{ID: 3, Mode: ModeActive})
	buf = append(buf, 0xFF, 0xFF)
	if d, ok := e.decodeBuffer(log.Discard(), Buffer{Timestamp: 0, Data: buf}); !ok || d.image != nil {
		t.Error("payload without the image flag must not be decoded")
	}
}

func TestDecodeBuffer_DecodeFailureKeepsControlDraft(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	e := decodeEngine(clk, &countingCodec{fail: true}, true)

	d, ok := e.decodeBuffer(log.Discard(), Buffer{Timestamp: 0, Data: EncodeBuffer(Header{ID: 4, Mode: ModeActive, X: 3}, []byte{9})})
	if !ok {
		t.Fatal("decode failure still yields a draft")
	}
	if d.image != nil || d.hdr.X != 3 {
		t.Errorf("draft = %+v, want header without image", d)
	}
	if e.Stats().DecodeFailures != 1 {
		t.Errorf("DecodeFailures = %d, want 1", e.Stats().DecodeFailures)
	}
}

func TestDecodeBuffer_MalformedMode(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	e := decodeEngine(clk, &countingCodec{}, false)
	buf := make([]byte, HeaderSize)
	buf[1] = 0xC0
	if _, ok := e.decodeBuffer(log.Discard(), Buffer{Data: buf}); ok {
		t.Error("reserved mode must be dropped")
	}
}

func TestStdCodec(t *testing.T) {
	t.Parallel()

	img, err := StdCodec{}.Decode(testPNG(t))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Bounds().Dx() != 2 {
		t.Errorf("width = %d, want 2", img.Bounds().Dx())
	}

	if _, err := (StdCodec{}).Decode(nil); err == nil {
		t.Error("empty payload must fail")
	}
	if _, err := (StdCodec{}).Decode([]byte("not an image")); err == nil {
		t.Error("garbage payload must fail")
	}
}
