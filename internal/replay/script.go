// ABOUTME: JSONL replay scripts: timed ingest events, overlay buffers, and raw buffers
// ABOUTME: Lines decode through easyjson's lexer without reflection

package replay

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mailru/easyjson"
	"github.com/mailru/easyjson/jlexer"
)

// ErrEmptyStep is returned for a line carrying none of event, overlay, or buffer.
var ErrEmptyStep = errors.New("replay: step has no event, overlay, or buffer")

// Step is one scheduled script line. Exactly one of Event, Overlay, Buffer is set.
type Step struct {
	At      int64 // µs after playback start
	Event   []any
	Overlay *OverlaySpec
	Buffer  *RawBuffer
	Line    int
}

// OverlaySpec describes an overlay buffer to encode. Z is the wire z byte
// (0-255); Image is a file path relative to the script.
type OverlaySpec struct {
	ID        int
	Mode      string
	X, Y      int
	W, H      int
	Z         int
	Timestamp int64
	Image     string
}

// RawBuffer is a pre-encoded header+payload (base64 in the script).
type RawBuffer struct {
	Timestamp int64
	Data      []byte
}

// Script is a parsed replay file.
type Script struct {
	Dir   string // base for relative image paths
	Steps []Step
}

// ParseFile reads a script from disk.
func ParseFile(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.Dir = filepath.Dir(path)
	return s, nil
}

// Parse reads JSONL steps. Blank lines and lines starting with '#' are
// skipped. Steps are stably ordered by At.
func Parse(r io.Reader) (*Script, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var steps []Step
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var st Step
		if err := easyjson.Unmarshal([]byte(text), &st); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if st.Event == nil && st.Overlay == nil && st.Buffer == nil {
			return nil, fmt.Errorf("line %d: %w", line, ErrEmptyStep)
		}
		if st.At < 0 {
			return nil, fmt.Errorf("line %d: negative at %d", line, st.At)
		}
		st.Line = line
		steps = append(steps, st)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(steps, func(i, j int) bool { return steps[i].At < steps[j].At })
	return &Script{Steps: steps}, nil
}

// UnmarshalEasyJSON implements easyjson.Unmarshaler.
func (s *Step) UnmarshalEasyJSON(in *jlexer.Lexer) {
	isTopLevel := in.IsStart()
	if in.IsNull() {
		if isTopLevel {
			in.Consumed()
		}
		in.Skip()
		return
	}
	in.Delim('{')
	for !in.IsDelim('}') {
		key := in.UnsafeFieldName(false)
		in.WantColon()
		if in.IsNull() {
			in.Skip()
			in.WantComma()
			continue
		}
		switch key {
		case "at":
			s.At = in.Int64()
		case "event":
			s.Event = decodeEvent(in)
		case "overlay":
			s.Overlay = &OverlaySpec{}
			s.Overlay.UnmarshalEasyJSON(in)
		case "buffer":
			s.Buffer = &RawBuffer{}
			s.Buffer.UnmarshalEasyJSON(in)
		default:
			in.SkipRecursive()
		}
		in.WantComma()
	}
	in.Delim('}')
	if isTopLevel {
		in.Consumed()
	}
}

// decodeEvent reads a JSON array of strings and integers into ingest fields.
func decodeEvent(in *jlexer.Lexer) []any {
	fields := make([]any, 0, 4)
	in.Delim('[')
	for !in.IsDelim(']') {
		switch v := in.Interface().(type) {
		case string:
			fields = append(fields, v)
		case float64:
			if v != float64(int64(v)) {
				in.AddError(fmt.Errorf("event argument %v is not an integer", v))
				return nil
			}
			fields = append(fields, int64(v))
		default:
			in.AddError(fmt.Errorf("event argument of type %T", v))
			return nil
		}
		in.WantComma()
	}
	in.Delim(']')
	return fields
}

// UnmarshalEasyJSON implements easyjson.Unmarshaler.
func (o *OverlaySpec) UnmarshalEasyJSON(in *jlexer.Lexer) {
	in.Delim('{')
	for !in.IsDelim('}') {
		key := in.UnsafeFieldName(false)
		in.WantColon()
		if in.IsNull() {
			in.Skip()
			in.WantComma()
			continue
		}
		switch key {
		case "id":
			o.ID = in.Int()
		case "mode":
			o.Mode = in.String()
		case "x":
			o.X = in.Int()
		case "y":
			o.Y = in.Int()
		case "w":
			o.W = in.Int()
		case "h":
			o.H = in.Int()
		case "z":
			o.Z = in.Int()
		case "ts":
			o.Timestamp = in.Int64()
		case "image":
			o.Image = in.String()
		default:
			in.SkipRecursive()
		}
		in.WantComma()
	}
	in.Delim('}')
}

// UnmarshalEasyJSON implements easyjson.Unmarshaler.
func (b *RawBuffer) UnmarshalEasyJSON(in *jlexer.Lexer) {
	in.Delim('{')
	for !in.IsDelim('}') {
		key := in.UnsafeFieldName(false)
		in.WantColon()
		if in.IsNull() {
			in.Skip()
			in.WantComma()
			continue
		}
		switch key {
		case "ts":
			b.Timestamp = in.Int64()
		case "data":
			b.Data = in.Bytes()
		default:
			in.SkipRecursive()
		}
		in.WantComma()
	}
	in.Delim('}')
}
