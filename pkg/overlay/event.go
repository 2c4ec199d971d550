// ABOUTME: Parsing of tagged ingest events into buffers and typed control events
// ABOUTME: Arguments arrive as strings or integers and are validated per tag

package overlay

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// TagBuffer marks an ingest event carrying an overlay buffer.
const TagBuffer = "BUFFER"

// ErrUnknownEvent is returned for tags this engine does not handle.
var ErrUnknownEvent = errors.New("overlay: unknown event")

// ControlKind is the tag of a control event.
type ControlKind string

const (
	CtlConfigure ControlKind = "CONFIGURE"
	CtlStart     ControlKind = "START"
	CtlStop      ControlKind = "STOP"
	CtlPause     ControlKind = "PAUSE"
	CtlResume    ControlKind = "RESUME"
	CtlFlush     ControlKind = "FLUSH"
	CtlBaseTime  ControlKind = "BASETIME"
	CtlDelayTime ControlKind = "DELAYTIME"
)

// Control is a decoded control event.
type Control struct {
	Kind ControlKind

	// CONFIGURE
	Latency   int64 // also DELAYTIME
	AVSyncOff bool
	Session   Size

	// FLUSH, BASETIME
	Timestamp int64
}

// Buffer is a decoded BUFFER event: a session timestamp and the raw header+payload.
type Buffer struct {
	Timestamp int64
	Data      []byte
}

// ParseBuffer decodes ("BUFFER", timestamp, size, []byte). Data is cut to size.
// Buffers smaller than HeaderSize return ErrShortHeader.
func ParseBuffer(fields []any) (Buffer, error) {
	if len(fields) < 4 {
		return Buffer{}, fmt.Errorf("BUFFER: want 4 fields, got %d", len(fields))
	}
	ts, err := argInt(fields[1])
	if err != nil {
		return Buffer{}, fmt.Errorf("BUFFER timestamp: %w", err)
	}
	size, err := argInt(fields[2])
	if err != nil {
		return Buffer{}, fmt.Errorf("BUFFER size: %w", err)
	}
	data, ok := fields[3].([]byte)
	if !ok {
		return Buffer{}, fmt.Errorf("BUFFER payload: want []byte, got %T", fields[3])
	}
	if size > int64(len(data)) {
		size = int64(len(data))
	}
	if size < HeaderSize {
		return Buffer{}, fmt.Errorf("%w: size %d", ErrShortHeader, size)
	}
	return Buffer{Timestamp: ts, Data: data[:size]}, nil
}

// ParseControl decodes a tagged control event.
func ParseControl(fields []any) (Control, error) {
	if len(fields) == 0 {
		return Control{}, fmt.Errorf("%w: empty event", ErrUnknownEvent)
	}
	tag, ok := fields[0].(string)
	if !ok {
		return Control{}, fmt.Errorf("%w: tag %T", ErrUnknownEvent, fields[0])
	}
	c := Control{Kind: ControlKind(strings.ToUpper(strings.TrimSpace(tag)))}
	args := fields[1:]

	switch c.Kind {
	case CtlStart, CtlStop, CtlPause, CtlResume:
		return c, nil

	case CtlConfigure:
		if len(args) < 3 {
			return Control{}, fmt.Errorf("CONFIGURE: want 3 args, got %d", len(args))
		}
		lat, err := argInt(args[0])
		if err != nil {
			return Control{}, fmt.Errorf("CONFIGURE latency: %w", err)
		}
		off, err := argInt(args[1])
		if err != nil {
			return Control{}, fmt.Errorf("CONFIGURE av sync: %w", err)
		}
		dims, ok := args[2].(string)
		if !ok {
			return Control{}, fmt.Errorf("CONFIGURE size: want \"WxH\", got %T", args[2])
		}
		size, err := ParseSize(dims)
		if err != nil {
			return Control{}, fmt.Errorf("CONFIGURE size: %w", err)
		}
		c.Latency, c.AVSyncOff, c.Session = lat, off != 0, size
		return c, nil

	case CtlFlush, CtlBaseTime, CtlDelayTime:
		if len(args) < 1 {
			return Control{}, fmt.Errorf("%s: missing argument", c.Kind)
		}
		v, err := argInt(args[0])
		if err != nil {
			return Control{}, fmt.Errorf("%s: %w", c.Kind, err)
		}
		if c.Kind == CtlDelayTime {
			c.Latency = v
		} else {
			c.Timestamp = v
		}
		return c, nil
	}
	return Control{}, fmt.Errorf("%w: %q", ErrUnknownEvent, tag)
}

// ParseSize parses "WxH".
func ParseSize(s string) (Size, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return Size{}, fmt.Errorf("invalid size %q", s)
	}
	wi, err := strconv.Atoi(w)
	if err != nil {
		return Size{}, fmt.Errorf("invalid width in %q", s)
	}
	hi, err := strconv.Atoi(h)
	if err != nil {
		return Size{}, fmt.Errorf("invalid height in %q", s)
	}
	if wi < 0 || hi < 0 {
		return Size{}, fmt.Errorf("negative size %q", s)
	}
	return Size{Width: wi, Height: hi}, nil
}

func argInt(v any) (int64, error) {
	switch n := v.(type) {
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("not an integer: %q", n)
		}
		return i, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint32:
		return int64(n), nil
	}
	return 0, fmt.Errorf("unsupported argument type %T", v)
}
