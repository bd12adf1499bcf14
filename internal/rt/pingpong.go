package rt

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/alexshd/schedbench"
)

// runSMP counts ping-pong calls completed per window with 1..n active
// pairs, one pair per core, for every delay test.
func runSMP(ctx context.Context, buf *schedbench.Buffer, l *schedbench.Layout, cfg Config) error {
	dims := buf.Dims()
	tests, cores, runs := int(dims[0]), int(dims[1]), int(dims[2])
	log := cfg.logger().With("bench", "smp")

	for t := 0; t < tests; t++ {
		delay := schedbench.SMPDelays[t]
		buf.Set(l.Index(schedbench.SMPDelay, t), delay)

		for c := 1; c <= cores; c++ {
			for r := 0; r < runs; r++ {
				calls, err := pingPongWindow(ctx, c, time.Duration(delay), cfg.Window)
				if err != nil {
					return err
				}
				buf.Set(l.Index(schedbench.SMPCalls, t, c-1, r), calls)
			}
			log.Debug("window measured", "delay_ns", delay, "cores", c)
		}
	}
	return nil
}

// pingPongWindow runs n pinned pairs for one window and returns the calls
// they completed.
func pingPongWindow(ctx context.Context, n int, delay, window time.Duration) (uint64, error) {
	var (
		wg     sync.WaitGroup
		counts = make([]uint64, n)
		done   = make(chan struct{})
	)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(cpu int) {
			defer wg.Done()
			counts[cpu] = pingPong(cpu, delay, done)
		}(i)
	}

	timer := time.NewTimer(window)
	defer timer.Stop()

	var err error
	select {
	case <-timer.C:
	case <-ctx.Done():
		err = ctx.Err()
	}
	close(done)
	wg.Wait()

	var total uint64
	for _, c := range counts {
		total += c
	}
	return total, err
}

// pingPong calls a pong goroutine on the same cpu until done is closed.
// Ping spins before each call and pong after each reply, both for an
// exponentially distributed time with mean delay. Both goroutines exit still
// locked to their threads, so the runtime discards the pinned threads.
func pingPong(cpu int, delay time.Duration, done <-chan struct{}) uint64 {
	req := make(chan struct{})
	resp := make(chan struct{})

	go func() {
		// Affinity is best effort: a restricted cpuset still measures IPC.
		_ = pin(cpu)
		rng := rand.New(rand.NewSource(int64(2*cpu + 1)))
		for {
			select {
			case <-req:
			case <-done:
				return
			}
			select {
			case resp <- struct{}{}:
			case <-done:
				return
			}
			spin(expDelay(rng, delay))
		}
	}()

	_ = pin(cpu)
	rng := rand.New(rand.NewSource(int64(2 * cpu)))

	var calls uint64
	for {
		spin(expDelay(rng, delay))
		select {
		case req <- struct{}{}:
		case <-done:
			return calls
		}
		select {
		case <-resp:
			calls++
		case <-done:
			return calls
		}
	}
}

// expDelay draws an exponentially distributed delay with the given mean.
func expDelay(rng *rand.Rand, mean time.Duration) time.Duration {
	if mean <= 0 {
		return 0
	}
	return time.Duration(rng.ExpFloat64() * float64(mean))
}

// spin busy-waits for d.
func spin(d time.Duration) {
	if d <= 0 {
		return
	}
	end := Now() + uint64(d)
	for Now() < end {
	}
}
