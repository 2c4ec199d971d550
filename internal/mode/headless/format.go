// ABOUTME: Output formatters for headless runs: plain text, one JSON summary, or JSON lines
// ABOUTME: Each formatter receives every engine notification and the final result

package headless

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mauromedda/overlay-go/pkg/overlay"
)

type formatter interface {
	note(n overlay.Notification)
	end(r *Result)
}

func newFormatter(format string, w io.Writer) (formatter, error) {
	switch format {
	case "text":
		return &textFormatter{w: w}, nil
	case "json":
		return &jsonFormatter{w: w}, nil
	case "stream-json":
		return &streamJSONFormatter{w: w}, nil
	}
	return nil, fmt.Errorf("unknown output format %q (want text, json, or stream-json)", format)
}

// textFormatter prints one line per notification and a summary table.
type textFormatter struct{ w io.Writer }

func (f *textFormatter) note(n overlay.Notification) {
	switch n.Kind {
	case overlay.NoteStateChanged:
		fmt.Fprintf(f.w, "%10dµs  state %s\n", n.At, n.State)
	case overlay.NoteDropped:
		fmt.Fprintf(f.w, "%10dµs  dropped id=%d (%s)\n", n.At, n.ID, n.Reason)
	default:
		fmt.Fprintf(f.w, "%10dµs  %s id=%d\n", n.At, n.Kind, n.ID)
	}
}

func (f *textFormatter) end(r *Result) {
	s := r.Stats
	fmt.Fprintf(f.w, "\nsession %s\n", r.Session)
	fmt.Fprintf(f.w, "buffers=%d short=%d late=%d flushed=%d decode_failed=%d presented=%d removed=%d stale=%d\n",
		s.Buffers, s.ShortFrames, s.LateDrops, s.FlushDrops, s.DecodeFailures, s.Presented, s.Removed, s.StaleEntries)
	for _, t := range r.Tallies {
		fmt.Fprintf(f.w, "  id %3d  adds=%d removes=%d\n", t.ID, t.Adds, t.Removes)
	}
}

type jsonNote struct {
	Kind   string `json:"kind"`
	ID     int    `json:"id,omitempty"`
	Reason string `json:"reason,omitempty"`
	State  string `json:"state,omitempty"`
	At     int64  `json:"at"`
}

func toJSONNote(n overlay.Notification) jsonNote {
	j := jsonNote{Kind: n.Kind.String(), At: n.At}
	switch n.Kind {
	case overlay.NoteStateChanged:
		j.State = n.State.String()
	case overlay.NoteDropped:
		j.ID, j.Reason = n.ID, string(n.Reason)
	default:
		j.ID = n.ID
	}
	return j
}

type jsonTally struct {
	ID      int `json:"id"`
	Adds    int `json:"adds"`
	Removes int `json:"removes"`
}

type jsonResult struct {
	Type    string        `json:"type,omitempty"`
	Session string        `json:"session"`
	Stats   overlay.Stats `json:"stats"`
	Tallies []jsonTally   `json:"tallies"`
	Notes   []jsonNote    `json:"notifications,omitempty"`
}

func toJSONResult(r *Result) jsonResult {
	out := jsonResult{Session: r.Session, Stats: r.Stats, Tallies: make([]jsonTally, 0, len(r.Tallies))}
	for _, t := range r.Tallies {
		out.Tallies = append(out.Tallies, jsonTally{ID: t.ID, Adds: t.Adds, Removes: t.Removes})
	}
	return out
}

// jsonFormatter collects everything and writes a single object at the end.
type jsonFormatter struct {
	w     io.Writer
	notes []jsonNote
}

func (f *jsonFormatter) note(n overlay.Notification) { f.notes = append(f.notes, toJSONNote(n)) }

func (f *jsonFormatter) end(r *Result) {
	out := toJSONResult(r)
	out.Notes = f.notes
	writeJSON(f.w, out)
}

// streamJSONFormatter writes one JSON line per notification and a final summary line.
type streamJSONFormatter struct{ w io.Writer }

func (f *streamJSONFormatter) note(n overlay.Notification) { writeJSON(f.w, toJSONNote(n)) }

func (f *streamJSONFormatter) end(r *Result) {
	out := toJSONResult(r)
	out.Type = "summary"
	writeJSON(f.w, out)
}

func writeJSON(w io.Writer, v any) {
	data, _ := json.Marshal(v)
	fmt.Fprintln(w, string(data))
}
