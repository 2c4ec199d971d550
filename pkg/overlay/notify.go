// ABOUTME: Notifications and counters published by the engine for observers
// ABOUTME: Covers presentation, removal, drops, decode failures, and lifecycle changes

package overlay

import "sync/atomic"

// NotificationKind classifies a Notification.
type NotificationKind int

const (
	NotePresented NotificationKind = iota
	NoteRemoved
	NoteDropped
	NoteDecodeFailed
	NoteStateChanged
)

// String returns the kind name.
func (k NotificationKind) String() string {
	switch k {
	case NotePresented:
		return "presented"
	case NoteRemoved:
		return "removed"
	case NoteDropped:
		return "dropped"
	case NoteDecodeFailed:
		return "decode_failed"
	case NoteStateChanged:
		return "state"
	default:
		return "unknown"
	}
}

// DropReason says why a buffer or draft never reached the registry.
type DropReason string

const (
	DropLate      DropReason = "late"      // outside the AV-sync window
	DropFlushed   DropReason = "flushed"   // at or before the pending flush point
	DropMalformed DropReason = "malformed" // unparsable header
	DropStopped   DropReason = "stopped"   // arrived while stopping
	DropQueueFull DropReason = "queue_full"
)

// Notification is one observable engine event.
type Notification struct {
	Session string
	Kind    NotificationKind
	ID      int
	Reason  DropReason
	State   State
	At      int64 // session clock, µs
}

// Stats is a snapshot of engine counters.
type Stats struct {
	Buffers        uint64
	ShortFrames    uint64
	LateDrops      uint64
	FlushDrops     uint64
	DecodeFailures uint64
	Presented      uint64
	Removed        uint64
	StaleEntries   uint64
}

type counters struct {
	buffers        atomic.Uint64
	shortFrames    atomic.Uint64
	lateDrops      atomic.Uint64
	flushDrops     atomic.Uint64
	decodeFailures atomic.Uint64
	presented      atomic.Uint64
	removed        atomic.Uint64
	staleEntries   atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Buffers:        c.buffers.Load(),
		ShortFrames:    c.shortFrames.Load(),
		LateDrops:      c.lateDrops.Load(),
		FlushDrops:     c.flushDrops.Load(),
		DecodeFailures: c.decodeFailures.Load(),
		Presented:      c.presented.Load(),
		Removed:        c.removed.Load(),
		StaleEntries:   c.staleEntries.Load(),
	}
}
