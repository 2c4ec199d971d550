// ABOUTME: Typed fan-out bus delivering events to buffered subscriber channels
// ABOUTME: Publish never blocks the publisher; full subscribers lose the event and it is counted

package eventbus

import (
	"sync"
	"sync/atomic"
)

// Bus is a typed event bus. Publishers are worker loops that must not stall,
// so delivery is a non-blocking send into each subscriber's channel.
type Bus[T any] struct {
	mu      sync.RWMutex
	subs    []*subscriber[T]
	nextID  int
	closed  bool
	dropped atomic.Uint64
}

type subscriber[T any] struct {
	id int
	ch chan T
}

// New creates a new event bus.
func New[T any]() *Bus[T] {
	return &Bus[T]{}
}

// Subscribe registers a subscriber with the given channel capacity and returns
// the receive side plus an unsubscribe function. Unsubscribe closes the channel.
func (b *Bus[T]) Subscribe(buffer int) (<-chan T, func()) {
	if buffer < 1 {
		buffer = 1
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	s := &subscriber[T]{id: b.nextID, ch: make(chan T, buffer)}
	b.nextID++
	if b.closed {
		close(s.ch)
		return s.ch, func() {}
	}
	b.subs = append(b.subs, s)

	var once sync.Once
	return s.ch, func() {
		once.Do(func() { b.remove(s.id) })
	}
}

func (b *Bus[T]) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			close(s.ch)
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish offers event to every subscriber in subscription order.
func (b *Bus[T]) Publish(event T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		select {
		case s.ch <- event:
		default:
			b.dropped.Add(1)
		}
	}
}

// Close closes every subscriber channel. Later subscribers get a closed channel.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, s := range b.subs {
		close(s.ch)
	}
	b.subs = nil
}

// Count returns the number of registered subscribers.
func (b *Bus[T]) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (b *Bus[T]) Dropped() uint64 {
	return b.dropped.Load()
}
