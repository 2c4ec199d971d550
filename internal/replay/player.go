// ABOUTME: Plays a replay script into an engine on the wall-clock schedule of its steps
// ABOUTME: Encodes overlay steps into wire buffers and loads their images relative to the script

package replay

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mauromedda/overlay-go/internal/log"
	"github.com/mauromedda/overlay-go/pkg/overlay"
)

// Target receives ingest events. *overlay.Engine satisfies it.
type Target interface {
	UpdateEvent(fields []any)
}

// Player feeds a Script into a Target.
type Player struct {
	script *Script
	log    *log.Logger
	speed  float64
	clock  overlay.Clock
	images map[string][]byte
}

// NewPlayer prepares a player. speed scales the schedule (2 plays twice as
// fast); values <= 0 mean real time.
func NewPlayer(s *Script, l *log.Logger, speed float64) *Player {
	if speed <= 0 {
		speed = 1
	}
	return &Player{
		script: s,
		log:    l.With("replay"),
		speed:  speed,
		clock:  overlay.SystemClock{},
		images: make(map[string][]byte),
	}
}

// UseClock sets the clock that resolves BASETIME "now"; it must be the
// engine's clock.
func (p *Player) UseClock(c overlay.Clock) { p.clock = c }

// Fields builds the ingest fields for one step.
func (p *Player) Fields(st Step) ([]any, error) {
	switch {
	case st.Event != nil:
		return p.resolve(st.Event), nil
	case st.Buffer != nil:
		return bufferFields(st.Buffer.Timestamp, st.Buffer.Data), nil
	case st.Overlay != nil:
		data, err := p.encode(st.Overlay)
		if err != nil {
			return nil, err
		}
		return bufferFields(st.Overlay.Timestamp, data), nil
	}
	return nil, ErrEmptyStep
}

// resolve substitutes the clock reading for a BASETIME "now" argument so a
// script can anchor session time zero at the moment it is played.
func (p *Player) resolve(fields []any) []any {
	if len(fields) < 2 {
		return fields
	}
	tag, _ := fields[0].(string)
	arg, _ := fields[1].(string)
	if !strings.EqualFold(tag, string(overlay.CtlBaseTime)) || !strings.EqualFold(arg, "now") {
		return fields
	}
	out := append([]any(nil), fields...)
	out[1] = p.clock.NowMicros()
	return out
}

func bufferFields(ts int64, data []byte) []any {
	return []any{overlay.TagBuffer, strconv.FormatInt(ts, 10), strconv.Itoa(len(data)), data}
}

func (p *Player) encode(o *OverlaySpec) ([]byte, error) {
	mode, err := overlay.ParseMode(o.Mode)
	if err != nil {
		return nil, fmt.Errorf("overlay %d: %w", o.ID, err)
	}
	if o.ID < 0 || o.ID > 255 {
		return nil, fmt.Errorf("overlay id %d outside 0-255", o.ID)
	}
	if o.Z < 0 || o.Z > 255 {
		return nil, fmt.Errorf("overlay %d: z %d outside 0-255", o.ID, o.Z)
	}
	for _, f := range []struct {
		name string
		v    int
	}{{"x", o.X}, {"y", o.Y}, {"w", o.W}, {"h", o.H}} {
		if f.v < 0 || f.v > 0xFFFF {
			return nil, fmt.Errorf("overlay %d: %s %d outside 0-65535", o.ID, f.name, f.v)
		}
	}
	var payload []byte
	if o.Image != "" {
		if payload, err = p.image(o.Image); err != nil {
			return nil, fmt.Errorf("overlay %d: %w", o.ID, err)
		}
	}
	h := overlay.Header{ID: o.ID, Mode: mode, X: o.X, Y: o.Y, W: o.W, H: o.H, Z: 100000 + o.Z}
	return overlay.EncodeBuffer(h, payload), nil
}

func (p *Player) image(name string) ([]byte, error) {
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.script.Dir, name)
	}
	if data, ok := p.images[path]; ok {
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p.images[path] = data
	return data, nil
}

// Play delivers every step at its scheduled offset from the call. Steps that
// fail to encode are logged and skipped. Returns ctx.Err() if cancelled.
func (p *Player) Play(ctx context.Context, t Target) error {
	start := time.Now()
	for _, st := range p.script.Steps {
		due := start.Add(time.Duration(float64(st.At)/p.speed) * time.Microsecond)
		if err := sleepUntil(ctx, due); err != nil {
			return err
		}

		fields, err := p.Fields(st)
		if err != nil {
			p.log.Warn("line %d skipped: %v", st.Line, err)
			continue
		}
		p.log.Debug("line %d at %dµs: %v", st.Line, st.At, fields[0])
		t.UpdateEvent(fields)
	}
	return nil
}

func sleepUntil(ctx context.Context, due time.Time) error {
	wait := time.Until(due)
	if wait <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Duration is the scheduled offset of the last step.
func (s *Script) Duration() time.Duration {
	if len(s.Steps) == 0 {
		return 0
	}
	return time.Duration(s.Steps[len(s.Steps)-1].At) * time.Microsecond
}
