// ABOUTME: Session clock state shared between the render worker (writer) and decode worker (reader)
// ABOUTME: Snapshots are immutable and swapped atomically so no lock guards the hot path

package overlay

import (
	"sync/atomic"
	"time"
)

// Clock supplies the wall time the session clock is anchored to, in microseconds.
type Clock interface {
	NowMicros() int64
}

// SystemClock reads time.Now.
type SystemClock struct{}

// NowMicros implements Clock.
func (SystemClock) NowMicros() int64 { return time.Now().UnixMicro() }

// sessionClock is one immutable version of the session timing parameters.
type sessionClock struct {
	base         int64 // µs, producer timeline origin on the wall clock
	latency      int64 // µs, decode_latency added to every delay
	avSync       bool
	flushPending bool
	flushTS      int64
}

// now returns the current position on the session timeline.
func (c *sessionClock) now(wall Clock) int64 {
	return wall.NowMicros() - c.base
}

// delay is how far ts lies ahead of the session clock once decode latency is added.
// Negative values mean ts has already passed.
func (c *sessionClock) delay(wall Clock, ts int64) int64 {
	return ts - c.now(wall) + c.latency
}

// flushed reports whether ts is invalidated by a pending flush.
func (c *sessionClock) flushed(ts int64) bool {
	return c.flushPending && ts <= c.flushTS
}

// clockCell holds the current snapshot. Only the render worker stores.
type clockCell struct {
	p atomic.Pointer[sessionClock]
}

func (c *clockCell) load() *sessionClock {
	if s := c.p.Load(); s != nil {
		return s
	}
	return &sessionClock{}
}

// update copies the current snapshot, applies fn, and publishes the copy.
func (c *clockCell) update(fn func(*sessionClock)) {
	next := *c.load()
	fn(&next)
	c.p.Store(&next)
}
