package rt

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"
)

var (
	// ErrBudgetExhausted is returned by Charge once a period's budget is used up.
	ErrBudgetExhausted = errors.New("budget exhausted")

	// ErrInvalidBudget is returned for a budget outside [0, period].
	ErrInvalidBudget = errors.New("invalid budget")

	// ErrBound is returned when binding a thread that already has a context.
	ErrBound = errors.New("thread already bound")

	// ErrPassive is returned when a passive thread is asked to run.
	ErrPassive = errors.New("thread is passive")
)

// SchedContext grants Budget of CPU time every Period.
type SchedContext struct {
	Badge uint64 // Identifies the owner in faults

	mu       sync.Mutex
	budget   time.Duration
	period   time.Duration
	consumed time.Duration
	start    uint64 // Current period start, ns
}

// NewSchedContext creates a context with a full budget.
func NewSchedContext(badge uint64, budget, period time.Duration) (*SchedContext, error) {
	sc := &SchedContext{Badge: badge}
	if err := sc.Configure(budget, period); err != nil {
		return nil, err
	}
	return sc, nil
}

// Configure replaces budget and period and starts a fresh period.
func (sc *SchedContext) Configure(budget, period time.Duration) error {
	if period <= 0 || budget < 0 || budget > period {
		return fmt.Errorf("budget %v period %v: %w", budget, period, ErrInvalidBudget)
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.budget, sc.period = budget, period
	sc.consumed = 0
	sc.start = Now()
	return nil
}

// Extend adds d to the budget, capped at the period. The consumed time is kept.
func (sc *SchedContext) Extend(d time.Duration) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.budget += d
	if sc.budget > sc.period {
		sc.budget = sc.period
	}
}

// Refill restores the full budget and restarts the period now.
func (sc *SchedContext) Refill() {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.consumed = 0
	sc.start = Now()
}

// Charge consumes d of the budget. It returns ErrBudgetExhausted when the
// budget of the current period is used up; the overrun is not carried over.
func (sc *SchedContext) Charge(d time.Duration) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.replenishLocked(Now())
	sc.consumed += d
	if sc.consumed >= sc.budget {
		sc.consumed = sc.budget
		return ErrBudgetExhausted
	}
	return nil
}

// Remaining returns the budget left in the current period.
func (sc *SchedContext) Remaining() time.Duration {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.replenishLocked(Now())
	return sc.budget - sc.consumed
}

// Budget returns the configured budget.
func (sc *SchedContext) Budget() time.Duration {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.budget
}

// Period returns the configured period.
func (sc *SchedContext) Period() time.Duration {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.period
}

// WaitRefill blocks until the next period begins.
func (sc *SchedContext) WaitRefill(ctx context.Context) error {
	sc.mu.Lock()
	now := Now()
	sc.replenishLocked(now)
	next := sc.start + uint64(sc.period)
	sc.mu.Unlock()

	timer := time.NewTimer(time.Duration(next - now))
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		return ctx.Err()
	}
	// Timers run on the adjusted clock; Now does not.
	for Now() < next {
		runtime.Gosched()
	}
	return nil
}

func (sc *SchedContext) replenishLocked(now uint64) {
	elapsed := time.Duration(now - sc.start)
	if elapsed < sc.period {
		return
	}
	sc.start += uint64(elapsed / sc.period * sc.period)
	sc.consumed = 0
}

// Thread is a schedulable entity. It runs only while bound to a SchedContext.
type Thread struct {
	Name string

	mu sync.Mutex
	sc *SchedContext
}

// NewThread returns a passive thread.
func NewThread(name string) *Thread {
	return &Thread{Name: name}
}

// Bind gives the thread a scheduling context.
func (t *Thread) Bind(sc *SchedContext) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sc != nil {
		return fmt.Errorf("%s: %w", t.Name, ErrBound)
	}
	t.sc = sc
	return nil
}

// Unbind removes and returns the thread's context, leaving it passive.
func (t *Thread) Unbind() *SchedContext {
	t.mu.Lock()
	defer t.mu.Unlock()

	sc := t.sc
	t.sc = nil
	return sc
}

// SchedContext returns the bound context, or nil for a passive thread.
func (t *Thread) SchedContext() *SchedContext {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sc
}

// Passive reports whether the thread has no context.
func (t *Thread) Passive() bool {
	return t.SchedContext() == nil
}

// Charge consumes d from the bound context.
func (t *Thread) Charge(d time.Duration) error {
	sc := t.SchedContext()
	if sc == nil {
		return fmt.Errorf("%s: %w", t.Name, ErrPassive)
	}
	return sc.Charge(d)
}
