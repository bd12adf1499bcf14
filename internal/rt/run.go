package rt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/alexshd/schedbench"
)

// ErrNoDriver is returned for a registered benchmark that has no driver.
var ErrNoDriver = errors.New("no driver for benchmark")

// Config controls the experiment drivers.
type Config struct {
	Logger *slog.Logger // Nil uses slog.Default()

	// AES recovery and throughput.
	BlockCost       time.Duration // Budget charged per AES block
	RecoveryBytes   int           // Request size of a recovery run
	RecoveryBudget  time.Duration // Client budget that forces a fault
	ThroughputBytes int           // Request size of a throughput run
	Extension       time.Duration // Budget added by PolicyExtend
	EvictBytes      int           // Cache sweep of a cold recovery
	Scale           float64       // Multiplies throughput periods and budgets

	// Timeout fault.
	TimeoutBudget time.Duration // Server budget before it faults

	// Ping-pong.
	Window time.Duration // Measurement window per run
}

// DefaultConfig returns the settings used by the CLI.
func DefaultConfig() Config {
	return Config{
		BlockCost:       time.Microsecond,
		RecoveryBytes:   4 << 10,
		RecoveryBudget:  16 * time.Microsecond,
		ThroughputBytes: 64 << 10,
		Extension:       time.Millisecond,
		EvictBytes:      32 << 20,
		Scale:           1,
		TimeoutBudget:   100 * time.Microsecond,
		Window:          100 * time.Millisecond,
	}
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

type driver func(ctx context.Context, buf *schedbench.Buffer, l *schedbench.Layout, cfg Config) error

var drivers = map[string]driver{
	"aes":     runAES,
	"timeout": runTimeout,
	"smp":     runSMP,
}

// Run fills buf with the samples of the benchmark named in its header.
func Run(ctx context.Context, buf *schedbench.Buffer, cfg Config) error {
	name := buf.Name()
	b, err := schedbench.Lookup(name)
	if err != nil {
		return err
	}
	drive, ok := drivers[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrNoDriver)
	}

	l, err := b.Layout(buf.Dims())
	if err != nil {
		return err
	}
	if l.Words() > buf.Words() {
		return fmt.Errorf("%s: layout needs %d words, segment has %d: %w",
			name, l.Words(), buf.Words(), schedbench.ErrShortBuffer)
	}

	log := cfg.logger().With("bench", name)
	log.Info("running", "dims", buf.Dims(), "payload", humanize.IBytes(uint64(l.Words()*8)))

	start := time.Now()
	if err := drive(ctx, buf, l, cfg); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	log.Info("finished", "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// Drivers returns the names of benchmarks Run can drive.
func Drivers() []string {
	names := make([]string, 0, len(drivers))
	for _, n := range schedbench.Names() {
		if _, ok := drivers[n]; ok {
			names = append(names, n)
		}
	}
	return names
}

// readOverhead samples the cost of reading the clock.
func readOverhead() uint64 {
	t0 := Now()
	t1 := Now()
	return t1 - t0
}
