// ABOUTME: CLI entry point for overlay-go: loads settings, replays overlay scripts, and explains config
// ABOUTME: Dispatches to headless or monitor mode and hot-reloads the debug level while running

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	// termfix must be imported before any package that imports bubbletea.
	_ "github.com/mauromedda/overlay-go/internal/termfix"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/mauromedda/overlay-go/internal/config"
	"github.com/mauromedda/overlay-go/internal/log"
	"github.com/mauromedda/overlay-go/internal/mode/headless"
	"github.com/mauromedda/overlay-go/internal/mode/monitor"
	"github.com/mauromedda/overlay-go/internal/replay"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one CLI invocation and returns the process exit code.
func run(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
	args, err := parseFlags(argv, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "error: %v\n", err)
		}
		return 2
	}

	if args.command == "version" {
		fmt.Fprintf(stdout, "overlay-go %s (%s) built %s\n", version, commit, date)
		return 0
	}

	if err := dispatch(ctx, args, stdout, stderr); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func dispatch(ctx context.Context, args cliArgs, stdout, stderr io.Writer) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}
	settings, err := config.Load(cwd, args.config)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if args.command == "explain" {
		return explain(stdout, settings, config.Files(cwd, args.config))
	}

	logger := log.New(stderr, log.ForDebug(args.debug || settings.DebugEnabled()))
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go config.NewWatcher(cwd, args.config, 0, func(s *config.Settings, err error) {
		if err != nil {
			logger.Warn("config reload: %v", err)
			return
		}
		if !args.debug {
			logger.SetLevel(log.ForDebug(s.DebugEnabled()))
			logger.Info("config reloaded, debug=%t", s.DebugEnabled())
		}
	}).Run(watchCtx)

	script, err := replay.ParseFile(args.script)
	if err != nil {
		return err
	}
	// The config file's debug setting reaches the engine through logger, whose
	// level the watcher keeps current. Only --debug pins the engine at debug.
	engineCfg := settings.Engine()
	engineCfg.Debug = args.debug

	switch args.command {
	case "run":
		_, err := headless.Run(ctx, headless.Config{
			OutputFormat: args.format,
			Snapshot:     args.snapshot,
			Preview:      args.preview,
			Speed:        args.speed,
			Linger:       args.linger,
		}, headless.Deps{Engine: engineCfg, Log: logger, Out: stdout}, script)
		return err
	case "monitor":
		return monitor.Run(ctx, monitor.Config{Speed: args.speed, Refresh: args.refresh},
			monitor.Deps{Engine: engineCfg, Log: logger}, script)
	}
	return fmt.Errorf("unknown command %q", args.command)
}

// explain prints the effective settings, styled with glamour when stdout is a terminal.
func explain(w io.Writer, s *config.Settings, files []string) error {
	md := config.Explain(s, files)
	if f, ok := w.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		_, err := io.WriteString(w, md)
		return err
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return err
	}
	out, err := renderer.Render(md)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, strings.TrimRight(out, "\n "))
	return err
}
