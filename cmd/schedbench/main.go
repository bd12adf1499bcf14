// schedbench runs scheduling benchmarks and reduces their raw samples.
//
// Usage:
//
//	schedbench [--log-level LEVEL] <command> [options]
//
// See 'schedbench <command> --help' for command-specific options.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
)

const usage = `schedbench - run scheduling benchmarks and reduce their samples

Usage:
  schedbench [--log-level LEVEL] <command> [options]

Commands:
  run       Run benchmark drivers into raw result segments
  process   Reduce raw segments into a JSON report
  show      Print raw segments as text tables
  compare   Test one result set of two runs for a significant change
  list      List registered benchmarks

Global options:
  --log-level LEVEL  debug, info, warn or error (default: info)

Examples:
  # Record every benchmark into ./results
  schedbench run --out results

  # Reduce them into one document
  schedbench process --json results.json --indent results/*.raw

  # Did the rollback cost change between two runs?
  schedbench compare --set "aes rollback" old/aes.raw new/aes.raw

Run 'schedbench <command> --help' for command-specific help.
`

func main() {
	fs := flag.NewFlagSet("schedbench", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	level := fs.String("log-level", "info", "log level: debug, info, warn, error")

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(1)
	}
	if err := setupLogging(*level); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := fs.Arg(0)
	args := fs.Args()[1:]

	var err error
	switch cmd {
	case "run":
		err = runRun(args)
	case "process":
		err = runProcess(args)
	case "show":
		err = runShow(args)
	case "compare":
		err = runCompare(args)
	case "list":
		err = runList(args)
	case "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging(level string) error {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return fmt.Errorf("log level %q: %w", level, err)
	}
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      l,
			TimeFormat: "15:04:05",
		}),
	))
	return nil
}
