// ABOUTME: Decode worker: parses buffer headers, applies the drop window, and decodes images
// ABOUTME: Runs off the render path and hands drafts to the render worker's cache queue

package overlay

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/mauromedda/overlay-go/internal/log"
)

// decoder is the running decode worker. Created and joined by the render worker.
type decoder struct {
	cancel context.CancelFunc
	group  errgroup.Group
}

// startDecoder launches the decode worker goroutine.
func (e *Engine) startDecoder() *decoder {
	ctx, cancel := context.WithCancel(context.Background())
	d := &decoder{cancel: cancel}
	d.group.Go(func() error {
		e.decodeLoop(ctx)
		return nil
	})
	return d
}

// stop cancels pending work and waits for the worker to exit. A decode in
// flight runs to completion first.
func (d *decoder) stop() {
	d.cancel()
	_ = d.group.Wait()
}

func (e *Engine) decodeLoop(ctx context.Context) {
	l := e.log.With("decode")
	for {
		select {
		case <-ctx.Done():
			return
		case b := <-e.bufferCh:
			d, ok := e.decodeBuffer(l, b)
			if !ok {
				continue
			}
			select {
			case e.cacheCh <- d:
			case <-ctx.Done():
				return
			}
		}
	}
}

// decodeBuffer turns one buffer into a draft. ok is false when the buffer is
// dropped before reaching the render worker.
func (e *Engine) decodeBuffer(l *log.Logger, b Buffer) (draft, bool) {
	hdr, err := ParseHeader(b.Data)
	if err != nil {
		l.Debug("dropping malformed buffer ts=%d: %v", b.Timestamp, err)
		e.notify(Notification{Kind: NoteDropped, Reason: DropMalformed})
		return draft{}, false
	}

	d := draft{hdr: hdr, ts: b.Timestamp}
	payload := b.Data[HeaderSize:]
	if !hdr.HasImage || len(payload) == 0 {
		return d, true
	}

	clk := e.clk.load()
	if delay := clk.delay(e.clock, b.Timestamp); clk.avSync && delay <= -e.cfg.DropWindow {
		l.Debug("dropping late overlay id=%d ts=%d delay=%dus", hdr.ID, b.Timestamp, delay)
		e.stats.lateDrops.Add(1)
		e.notify(Notification{Kind: NoteDropped, ID: hdr.ID, Reason: DropLate})
		return draft{}, false
	}
	if clk.flushed(b.Timestamp) {
		l.Debug("dropping flushed overlay id=%d ts=%d flush=%d", hdr.ID, b.Timestamp, clk.flushTS)
		e.stats.flushDrops.Add(1)
		e.notify(Notification{Kind: NoteDropped, ID: hdr.ID, Reason: DropFlushed})
		return draft{}, false
	}

	img, err := e.codec.Decode(payload)
	if err != nil {
		l.Warn("decode failed for overlay id=%d: %v", hdr.ID, err)
		e.stats.decodeFailures.Add(1)
		e.notify(Notification{Kind: NoteDecodeFailed, ID: hdr.ID})
		return d, true
	}
	d.image = img
	return d, true
}
