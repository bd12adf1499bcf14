package rt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alexshd/schedbench"
)

// runAES records the clock overhead, the recovery cost of every policy and
// the A/B throughput split of a shared AES server.
func runAES(ctx context.Context, buf *schedbench.Buffer, l *schedbench.Layout, cfg Config) error {
	dims := buf.Dims()
	runs, steps := int(dims[0]), int(dims[2])
	log := cfg.logger().With("bench", "aes")

	for r := 0; r < runs; r++ {
		buf.Set(l.Index("overhead", r), readOverhead())
	}

	for _, name := range schedbench.AESPolicies {
		p, err := ParsePolicy(name)
		if err != nil {
			return err
		}
		for _, cold := range []bool{false, true} {
			costs, err := measureRecovery(ctx, p, cold, runs, cfg)
			if err != nil {
				return fmt.Errorf("%s cold=%t: %w", p, cold, err)
			}
			field := schedbench.AESCostField(name, cold)
			for r, c := range costs {
				buf.Set(l.Index(field, r), c)
			}
			log.Debug("recovery measured", "policy", p, "cold", cold, "runs", runs)
		}
	}

	for gi, g := range schedbench.AESGroups {
		if err := measureThroughput(ctx, buf, l, gi, g, runs, steps, cfg); err != nil {
			return fmt.Errorf("throughput %dms: %w", g, err)
		}
		log.Debug("throughput measured", "period_ms", g, "steps", steps)
	}
	return nil
}

// measureRecovery forces one timeout fault per run and returns the cost of
// recovering from it under p.
func measureRecovery(ctx context.Context, p Policy, cold bool, runs int, cfg Config) ([]uint64, error) {
	const period = time.Second

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ep := NewEndpoint(1)
	h := NewHandler(p, cfg.Extension, cold, cfg.EvictBytes)
	go ep.Serve(ctx, h.Handle)

	emergency, err := NewSchedContext(0, period, period)
	if err != nil {
		return nil, err
	}
	scfg := DefaultServerConfig()
	scfg.BlockCost = cfg.BlockCost
	scfg.Faults = ep
	scfg.Emergency = emergency
	srv, err := NewServer(scfg)
	if err != nil {
		return nil, err
	}

	sc, err := NewSchedContext(1, cfg.RecoveryBudget, period)
	if err != nil {
		return nil, err
	}
	client := NewThread("client")
	if err := client.Bind(sc); err != nil {
		return nil, err
	}

	data := make([]byte, cfg.RecoveryBytes)
	costs := make([]uint64, runs)
	for r := range costs {
		if err := sc.Configure(cfg.RecoveryBudget, period); err != nil {
			return nil, err
		}
		emergency.Refill()

		resp, err := srv.Call(ctx, Request{Client: client, Data: data})
		if err != nil && !(p == PolicyKill && errors.Is(err, ErrKilled)) {
			return nil, err
		}
		if resp.Faults == 0 {
			return nil, fmt.Errorf("run %d: %d byte request did not exhaust a %v budget", r, len(data), cfg.RecoveryBudget)
		}
		costs[r] = resp.Recovery
	}
	return costs, nil
}

// measureThroughput runs clients A and B on split budgets, then A alone,
// recording the time each needs to encrypt ThroughputBytes.
func measureThroughput(ctx context.Context, buf *schedbench.Buffer, l *schedbench.Layout,
	group, groupMS, runs, steps int, cfg Config) error {
	scfg := DefaultServerConfig()
	scfg.BlockCost = cfg.BlockCost
	srv, err := NewServer(scfg)
	if err != nil {
		return err
	}

	period := scaleUS(schedbench.AESPeriodUS, group, cfg.Scale)
	aBudgets, bBudgets := schedbench.AESBudgets(group, steps)

	for i := 0; i < steps; i++ {
		a := scaleUS(aBudgets[i], 0, cfg.Scale)
		b := scaleUS(bBudgets[i], 0, cfg.Scale)

		aTimes := make([]uint64, runs)
		bTimes := make([]uint64, runs)
		var (
			wg   sync.WaitGroup
			aErr error
			bErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			aErr = runClient(ctx, srv, 1, a, period, aTimes, cfg)
		}()
		go func() {
			defer wg.Done()
			bErr = runClient(ctx, srv, 2, b, period, bTimes, cfg)
		}()
		wg.Wait()
		if err := errors.Join(aErr, bErr); err != nil {
			return err
		}

		baseline := make([]uint64, runs)
		if err := runClient(ctx, srv, 1, a, period, baseline, cfg); err != nil {
			return err
		}

		for role, times := range map[string][]uint64{"A": aTimes, "B": bTimes, "baseline": baseline} {
			field := schedbench.AESThroughputField(role, groupMS)
			for r, v := range times {
				buf.Set(l.Index(field, i, r), v)
			}
		}
	}
	return nil
}

// runClient encrypts ThroughputBytes once per run on its own budget. A
// zero budget never runs and records zeros.
func runClient(ctx context.Context, srv *Server, badge uint64, budget, period time.Duration,
	out []uint64, cfg Config) error {
	if budget <= 0 {
		return nil
	}
	sc, err := NewSchedContext(badge, budget, period)
	if err != nil {
		return err
	}
	client := NewThread(fmt.Sprintf("client-%d", badge))
	if err := client.Bind(sc); err != nil {
		return err
	}

	data := make([]byte, cfg.ThroughputBytes)
	for r := range out {
		t0 := Now()
		if _, err := Encrypt(ctx, srv, client, data); err != nil {
			return err
		}
		out[r] = Now() - t0
	}
	return nil
}

// scaleUS converts µs to a duration, multiplied by ten per group and by scale.
func scaleUS(us int64, group int, scale float64) time.Duration {
	for g := 0; g < group; g++ {
		us *= 10
	}
	if scale <= 0 {
		scale = 1
	}
	return time.Duration(float64(us) * scale * float64(time.Microsecond))
}
