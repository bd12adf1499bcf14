package rt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexshd/schedbench"
)

// runTimeout measures timeout fault delivery. A server spins stamping the
// clock on its own budget until it faults; the handler refills the budget
// and resumes it.
func runTimeout(ctx context.Context, buf *schedbench.Buffer, l *schedbench.Layout, cfg Config) error {
	runs := int(buf.Dims()[0])

	for r := 0; r < runs; r++ {
		buf.Set(l.Index(schedbench.TimeoutCcntOverhead, r), readOverhead())
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ep := NewEndpoint(1)
	go ep.Serve(ctx, func(f Fault) Reply {
		delivered := Now()
		if f.SchedContext != nil {
			f.SchedContext.Refill()
		}
		return Reply{Delivered: delivered, Start: delivered}
	})

	// A null fault takes the same path without touching a budget.
	for r := 0; r < runs; r++ {
		reply, err := ep.Send(ctx, Fault{Thread: "timeout-server", Stamp: Now()})
		if err != nil {
			return err
		}
		buf.Set(l.Index(schedbench.TimeoutHandleOverhead, r), Now()-reply.Start)
	}

	sc, err := NewSchedContext(1, cfg.TimeoutBudget, time.Hour)
	if err != nil {
		return err
	}
	server := NewThread("timeout-server")
	if err := server.Bind(sc); err != nil {
		return err
	}

	for r := 0; r < runs; r++ {
		sc.Refill()
		stamp, err := spinUntilFault(ctx, server)
		if err != nil {
			return fmt.Errorf("run %d: %w", r, err)
		}

		reply, err := ep.Send(ctx, Fault{
			Badge:        sc.Badge,
			Thread:       server.Name,
			Stamp:        stamp,
			Consumed:     sc.Budget(),
			SchedContext: sc,
		})
		if err != nil {
			return err
		}
		resumed := Now()

		buf.Set(l.Index(schedbench.TimeoutServerToHandler, r), reply.Delivered-stamp)
		buf.Set(l.Index(schedbench.TimeoutHandle, r), resumed-reply.Start)
	}
	return nil
}

// spinUntilFault charges the time between successive stamps to t's budget
// and returns the last stamp once the budget is exhausted.
func spinUntilFault(ctx context.Context, t *Thread) (uint64, error) {
	last := Now()
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		now := Now()
		err := t.Charge(time.Duration(now - last))
		last = now
		if err == nil {
			continue
		}
		if errors.Is(err, ErrBudgetExhausted) {
			return last, nil
		}
		return 0, err
	}
}
