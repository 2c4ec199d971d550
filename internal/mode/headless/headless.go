// ABOUTME: Headless run mode: plays a replay script into an engine backed by an in-memory canvas
// ABOUTME: Reports notifications as text, JSON, or stream-JSON and can write a PNG snapshot or terminal preview

package headless

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/mauromedda/overlay-go/internal/log"
	"github.com/mauromedda/overlay-go/internal/replay"
	"github.com/mauromedda/overlay-go/pkg/overlay"
	"github.com/mauromedda/overlay-go/pkg/surface"
)

// DefaultLinger keeps the engine rendering after the last script step.
const DefaultLinger = 250 * time.Millisecond

// Config configures a headless run.
type Config struct {
	OutputFormat string        // "text" (default), "json", "stream-json"
	Snapshot     string        // PNG path for the final composed frame; empty skips
	Preview      bool          // print a half-block preview of the final frame
	Speed        float64       // replay speed multiplier; <= 0 means real time
	Linger       time.Duration // wait after the last step before stopping
}

// Deps provides dependencies for headless mode.
type Deps struct {
	Engine overlay.Config
	Log    *log.Logger
	Out    io.Writer // notifications, summary, preview; nil means stdout
	Opts   []overlay.Option
}

// Result summarises a finished run.
type Result struct {
	Session string
	Stats   overlay.Stats
	Tallies []surface.Tally
	Live    int
}

// Run plays script into a fresh engine and stops it once the script and
// the linger period have elapsed, or ctx is cancelled.
func Run(ctx context.Context, cfg Config, deps Deps, script *replay.Script) (*Result, error) {
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "text"
	}
	if cfg.Linger <= 0 {
		cfg.Linger = DefaultLinger
	}
	out := deps.Out
	if out == nil {
		out = os.Stdout
	}
	f, err := newFormatter(cfg.OutputFormat, out)
	if err != nil {
		return nil, err
	}

	canvas := surface.NewCanvas(surface.SizeFor(deps.Engine))
	rec := surface.NewRecorder(canvas)
	opts := append([]overlay.Option{overlay.WithLogger(deps.Log)}, deps.Opts...)
	eng := overlay.New(deps.Engine, rec, opts...)

	notes, unsub := eng.Subscribe(1024)
	defer unsub()
	reported := make(chan struct{})
	go func() {
		defer close(reported)
		for n := range notes {
			f.note(n)
		}
	}()

	if err := replay.NewPlayer(script, deps.Log, cfg.Speed).Play(ctx, eng); err == nil {
		select {
		case <-ctx.Done():
		case <-time.After(cfg.Linger):
		}
	}
	if ctx.Err() != nil {
		deps.Log.Warn("interrupted, stopping engine")
	}

	// capture before STOP retires every view
	frame := canvas.Snapshot()

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stopErr := eng.Stop(stopCtx)
	if stopErr != nil {
		// the bus stays open while the worker is still draining
		unsub()
	}
	<-reported

	res := &Result{Session: eng.Session(), Stats: eng.Stats(), Tallies: rec.Tallies(), Live: rec.Live()}
	f.end(res)

	if cfg.Snapshot != "" {
		if err := writePNG(cfg.Snapshot, frame); err != nil {
			return res, err
		}
		deps.Log.Info("snapshot written to %s", cfg.Snapshot)
	}
	if cfg.Preview {
		cols, rows := previewSize()
		for _, line := range surface.RenderHalfBlock(frame, cols, rows) {
			fmt.Fprintln(out, line)
		}
	}

	return res, stopErr
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating snapshot: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return f.Close()
}

// previewSize fits the preview to the terminal on stdout, or 80x24 when
// stdout is not a terminal.
func previewSize() (cols, rows int) {
	fd := int(os.Stdout.Fd())
	if term.IsTerminal(fd) {
		if w, h, err := term.GetSize(fd); err == nil && w > 0 && h > 2 {
			return w, h - 2
		}
	}
	return 80, 24
}
