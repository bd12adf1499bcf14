package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/alexshd/schedbench"
	"github.com/alexshd/schedbench/internal/hostinfo"
	"github.com/alexshd/schedbench/internal/rt"
	"github.com/alexshd/schedbench/internal/shm"
)

const runUsage = `schedbench run - run benchmark drivers into raw result segments

Usage:
  schedbench run [options]

Options:
  --bench NAMES   Comma-separated benchmarks, or all (default: all)
  --out DIR       Directory for <bench>.raw segments (default: .)
  --force         Replace existing segments
  --runs N        Runs per series including ignored ones (default: per benchmark)
  --cores N       Cores for the smp benchmark (default: all)
  --window D      smp measurement window (default: 100ms)
  --scale F       Multiply aes throughput periods and budgets (default: 1)
  -h, --help      Show this help
`

func runRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	fs.Usage = func() { fmt.Fprint(os.Stderr, runUsage) }

	cfg := rt.DefaultConfig()
	bench := fs.String("bench", "all", "comma-separated benchmarks, or all")
	out := fs.String("out", ".", "output directory")
	force := fs.Bool("force", false, "replace existing segments")
	runs := fs.Int("runs", 0, "runs per series including ignored ones")
	cores := fs.Int("cores", 0, "cores for the smp benchmark")
	fs.DurationVar(&cfg.Window, "window", cfg.Window, "smp measurement window")
	fs.Float64Var(&cfg.Scale, "scale", cfg.Scale, "aes throughput period scale")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	names := rt.Drivers()
	if *bench != "all" {
		names = strings.Split(*bench, ",")
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", *out, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	host, err := hostinfo.Collect(ctx)
	if err != nil {
		slog.Warn("partial host info", "err", err)
	}
	slog.Info("host", "cpu", host.CPUModel, "cores", host.Cores, "threads", host.Threads)

	for _, name := range names {
		dims, err := runDims(name, *runs, *cores)
		if err != nil {
			return err
		}
		path := filepath.Join(*out, name+".raw")
		if err := runOne(ctx, name, path, dims, *force, cfg); err != nil {
			return err
		}
	}
	return nil
}

func runOne(ctx context.Context, name, path string, dims []uint32, force bool, cfg rt.Config) error {
	b, err := schedbench.Lookup(name)
	if err != nil {
		return err
	}
	l, err := b.Layout(dims)
	if err != nil {
		return err
	}

	if force {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("replace %s: %w", path, err)
		}
	}
	seg, err := shm.Create(path, name, dims, l.Words())
	if err != nil {
		return err
	}

	log := slog.With("bench", name, "path", path)
	log.Info("segment created", "size", humanize.IBytes(uint64(seg.Size())))

	cpuBefore, _ := hostinfo.CPUTime(ctx)
	start := time.Now()
	cfg.Logger = log
	runErr := rt.Run(ctx, seg.Buffer(), cfg)
	cpuAfter, _ := hostinfo.CPUTime(ctx)

	if err := seg.Close(); err != nil {
		return errors.Join(runErr, err)
	}
	if runErr != nil {
		return runErr
	}
	log.Info("segment written",
		"wall", time.Since(start).Round(time.Millisecond),
		"cpu", (cpuAfter - cpuBefore).Round(time.Millisecond))
	return nil
}

// runDims returns the default dims of a benchmark with the run count and
// smp core count overridden.
func runDims(name string, runs, cores int) ([]uint32, error) {
	b, err := schedbench.Lookup(name)
	if err != nil {
		return nil, err
	}
	dims := append([]uint32(nil), b.DefaultDims...)
	if name == "smp" && cores > 0 {
		dims = schedbench.SMPDims(cores)
	}
	if runs <= 0 {
		return dims, nil
	}

	var runsAt, ignoredAt int
	switch name {
	case "aes", "timeout":
		runsAt, ignoredAt = 0, 1
	case "smp":
		runsAt, ignoredAt = 2, 3
	default:
		return nil, fmt.Errorf("%s: --runs is not supported", name)
	}
	if runs <= int(dims[ignoredAt]) {
		return nil, fmt.Errorf("%s: --runs %d must exceed the %d ignored runs", name, runs, dims[ignoredAt])
	}
	dims[runsAt] = uint32(runs)
	return dims, nil
}
