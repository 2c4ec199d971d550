// ABOUTME: CLI flag parsing using stdlib flag sets, one per subcommand
// ABOUTME: Global flags precede the subcommand: --config, --debug, --version

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"time"
)

const usage = `usage: overlay-go [--config FILE] [--debug] <command> [flags] [script.jsonl]

commands:
  run       replay a script headlessly and report what was presented
  monitor   replay a script while showing the surface live in the terminal
  explain   print the effective configuration
  version   print the version
`

type cliArgs struct {
	config  string
	debug   bool
	version bool

	command string
	script  string

	// run
	format   string
	snapshot string
	preview  bool
	linger   time.Duration

	// run, monitor
	speed float64

	// monitor
	refresh time.Duration
}

var errUsage = errors.New("usage")

func parseFlags(argv []string, stderr io.Writer) (cliArgs, error) {
	var args cliArgs

	global := flag.NewFlagSet("overlay-go", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	global.StringVar(&args.config, "config", "", "Extra settings file merged last")
	global.BoolVar(&args.debug, "debug", false, "Enable debug logging")
	global.BoolVar(&args.version, "version", false, "Show version and exit")
	if err := global.Parse(argv); err != nil {
		return args, err
	}
	if args.version {
		args.command = "version"
		return args, nil
	}

	rest := global.Args()
	if len(rest) == 0 {
		global.Usage()
		return args, errUsage
	}
	args.command, rest = rest[0], rest[1:]

	sub := flag.NewFlagSet(args.command, flag.ContinueOnError)
	sub.SetOutput(stderr)
	needsScript := true
	switch args.command {
	case "run":
		sub.StringVar(&args.format, "format", "text", "Output format: text, json, stream-json")
		sub.StringVar(&args.snapshot, "snapshot", "", "Write the final composed frame to this PNG file")
		sub.BoolVar(&args.preview, "preview", false, "Print a half-block preview of the final frame")
		sub.DurationVar(&args.linger, "linger", 0, "Keep rendering this long after the last step")
		sub.Float64Var(&args.speed, "speed", 1, "Replay speed multiplier")
	case "monitor":
		sub.Float64Var(&args.speed, "speed", 1, "Replay speed multiplier")
		sub.DurationVar(&args.refresh, "refresh", 100*time.Millisecond, "Redraw interval")
	case "explain", "version":
		needsScript = false
	default:
		global.Usage()
		return args, fmt.Errorf("unknown command %q", args.command)
	}
	if err := sub.Parse(rest); err != nil {
		return args, err
	}

	if needsScript {
		if sub.NArg() != 1 {
			return args, fmt.Errorf("%s: want exactly one script file, got %d", args.command, sub.NArg())
		}
		args.script = sub.Arg(0)
	} else if sub.NArg() != 0 {
		return args, fmt.Errorf("%s takes no arguments", args.command)
	}
	return args, nil
}
