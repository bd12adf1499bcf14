// Package hostinfo describes the machine a benchmark ran on.
package hostinfo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"
)

// Host is recorded next to every processed report.
type Host struct {
	CPUModel   string `json:"cpu_model"`
	Cores      int    `json:"cores"`   // Physical cores
	Threads    int    `json:"threads"` // Logical CPUs
	GOMAXPROCS int    `json:"gomaxprocs"`
	GOOS       string `json:"goos"`
	GOARCH     string `json:"goarch"`
	GoVersion  string `json:"go_version"`
}

// Collect reads the host description. Fields the platform cannot report
// fall back to runtime values; the returned error lists what was missing.
func Collect(ctx context.Context) (Host, error) {
	h := Host{
		CPUModel:   "unknown",
		Cores:      runtime.NumCPU(),
		Threads:    runtime.NumCPU(),
		GOMAXPROCS: runtime.GOMAXPROCS(0),
		GOOS:       runtime.GOOS,
		GOARCH:     runtime.GOARCH,
		GoVersion:  runtime.Version(),
	}

	var errs []error
	if infos, err := cpu.InfoWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("cpu info: %w", err))
	} else if len(infos) > 0 && infos[0].ModelName != "" {
		h.CPUModel = infos[0].ModelName
	}
	if n, err := cpu.CountsWithContext(ctx, false); err != nil {
		errs = append(errs, fmt.Errorf("physical cores: %w", err))
	} else if n > 0 {
		h.Cores = n
	}
	if n, err := cpu.CountsWithContext(ctx, true); err != nil {
		errs = append(errs, fmt.Errorf("logical cpus: %w", err))
	} else if n > 0 {
		h.Threads = n
	}
	return h, errors.Join(errs...)
}

// CPUTime returns the user plus system time consumed by this process.
func CPUTime(ctx context.Context) (time.Duration, error) {
	p, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return 0, fmt.Errorf("self process: %w", err)
	}
	t, err := p.TimesWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("cpu times: %w", err)
	}
	return time.Duration((t.User + t.System) * float64(time.Second)), nil
}
