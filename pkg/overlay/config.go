// ABOUTME: Engine construction parameters and functional options
// ABOUTME: Zero values fall back to the 5ms tick, 100ms tolerance, and 200ms drop window

package overlay

import (
	"time"

	"github.com/mauromedda/overlay-go/internal/log"
)

// Defaults for Config fields left at zero.
const (
	DefaultTickInterval          = 5 * time.Millisecond
	DefaultPresentationTolerance = 100_000 // µs
	DefaultDropWindow            = 200_000 // µs
	DefaultStopTimeout           = 2 * time.Second
	DefaultQueueDepth            = 256
)

// Config holds the construction-time parameters of an Engine.
type Config struct {
	Surface Size // video surface the session frame is stretched over
	Display Size // device display, used to centre the surface; may be zero

	TickInterval          time.Duration
	PresentationTolerance int64 // µs lookahead within which a render is executed
	DropWindow            int64 // µs lateness beyond which AV-synced buffers are dropped
	StopTimeout           time.Duration
	QueueDepth            int

	Debug bool
}

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.PresentationTolerance <= 0 {
		c.PresentationTolerance = DefaultPresentationTolerance
	}
	if c.DropWindow <= 0 {
		c.DropWindow = DefaultDropWindow
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = DefaultStopTimeout
	}
	if c.QueueDepth <= 0 {
		c.QueueDepth = DefaultQueueDepth
	}
	return c
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock the session clock is anchored to.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithCodec replaces the image codec.
func WithCodec(c Codec) Option {
	return func(e *Engine) { e.codec = c }
}

// WithLogger sets the logger. With Config.Debug the engine logs at debug
// through its own copy and l's level is left alone.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithSessionID overrides the generated session id.
func WithSessionID(id string) Option {
	return func(e *Engine) { e.session = id }
}
