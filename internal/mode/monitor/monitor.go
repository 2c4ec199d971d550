// ABOUTME: Monitor run mode: replays a script into an engine while a Bubble Tea UI shows the surface
// ABOUTME: Quitting the UI or finishing the context stops the replay and the engine

package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mauromedda/overlay-go/internal/log"
	"github.com/mauromedda/overlay-go/internal/replay"
	"github.com/mauromedda/overlay-go/pkg/overlay"
	"github.com/mauromedda/overlay-go/pkg/surface"
)

// Config configures the monitor.
type Config struct {
	Speed   float64
	Refresh time.Duration
}

// Deps provides dependencies for the monitor.
type Deps struct {
	Engine overlay.Config
	Log    *log.Logger
	Opts   []overlay.Option
	// ProgramOpts are appended to the default alt-screen program options.
	ProgramOpts []tea.ProgramOption
}

// Run shows the live surface until the user quits or ctx ends.
func Run(ctx context.Context, cfg Config, deps Deps, script *replay.Script) error {
	canvas := surface.NewCanvas(surface.SizeFor(deps.Engine))
	opts := append([]overlay.Option{overlay.WithLogger(deps.Log)}, deps.Opts...)
	eng := overlay.New(deps.Engine, canvas, opts...)

	notes, unsub := eng.Subscribe(256)
	defer unsub()

	playCtx, cancelPlay := context.WithCancel(ctx)
	defer cancelPlay()
	played := make(chan error, 1)
	go func() {
		played <- replay.NewPlayer(script, deps.Log, cfg.Speed).Play(playCtx, eng)
	}()

	popts := append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, deps.ProgramOpts...)
	_, uiErr := tea.NewProgram(NewModel(eng, canvas, notes, cfg.Refresh), popts...).Run()
	if errors.Is(uiErr, tea.ErrProgramKilled) && ctx.Err() != nil {
		uiErr = nil
	}

	cancelPlay()
	<-played

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := eng.Stop(stopCtx); err != nil {
		return fmt.Errorf("stopping engine: %w", err)
	}
	return uiErr
}
