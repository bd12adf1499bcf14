package rt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedContext_Charge(t *testing.T) {
	sc, err := NewSchedContext(7, 10*time.Microsecond, time.Hour)
	require.NoError(t, err)

	require.NoError(t, sc.Charge(4*time.Microsecond))
	assert.Equal(t, 6*time.Microsecond, sc.Remaining())

	assert.ErrorIs(t, sc.Charge(6*time.Microsecond), ErrBudgetExhausted)
	assert.Equal(t, time.Duration(0), sc.Remaining())
	assert.ErrorIs(t, sc.Charge(time.Nanosecond), ErrBudgetExhausted)

	sc.Refill()
	assert.Equal(t, 10*time.Microsecond, sc.Remaining())
}

func TestSchedContext_Extend(t *testing.T) {
	sc, err := NewSchedContext(1, 2*time.Millisecond, 3*time.Millisecond)
	require.NoError(t, err)
	assert.ErrorIs(t, sc.Charge(2*time.Millisecond), ErrBudgetExhausted)

	sc.Extend(5 * time.Millisecond)
	assert.Equal(t, 3*time.Millisecond, sc.Budget())
	assert.Equal(t, 3*time.Millisecond, sc.Period())
}

func TestSchedContext_Configure(t *testing.T) {
	_, err := NewSchedContext(1, 2*time.Second, time.Second)
	assert.ErrorIs(t, err, ErrInvalidBudget)
	_, err = NewSchedContext(1, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidBudget)
	_, err = NewSchedContext(1, -1, time.Second)
	assert.ErrorIs(t, err, ErrInvalidBudget)

	sc, err := NewSchedContext(1, 0, time.Second)
	require.NoError(t, err)
	assert.ErrorIs(t, sc.Charge(0), ErrBudgetExhausted)
}

func TestSchedContext_Replenish(t *testing.T) {
	period := 5 * time.Millisecond
	sc, err := NewSchedContext(1, time.Millisecond, period)
	require.NoError(t, err)
	require.ErrorIs(t, sc.Charge(time.Millisecond), ErrBudgetExhausted)

	start := time.Now()
	require.NoError(t, sc.WaitRefill(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, time.Millisecond, sc.Remaining())
}

func TestSchedContext_WaitRefillCancelled(t *testing.T) {
	sc, err := NewSchedContext(1, time.Millisecond, time.Hour)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sc.WaitRefill(ctx), context.Canceled)
}

func TestThread_Bind(t *testing.T) {
	th := NewThread("server")
	assert.True(t, th.Passive())
	assert.ErrorIs(t, th.Charge(time.Microsecond), ErrPassive)

	sc, err := NewSchedContext(1, time.Millisecond, time.Second)
	require.NoError(t, err)
	require.NoError(t, th.Bind(sc))
	assert.False(t, th.Passive())
	assert.ErrorIs(t, th.Bind(sc), ErrBound)
	assert.NoError(t, th.Charge(time.Microsecond))

	assert.Same(t, sc, th.Unbind())
	assert.True(t, th.Passive())
	assert.Nil(t, th.Unbind())
}

func TestEndpoint_SendRecv(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ep := NewEndpoint(0)
	go ep.Serve(ctx, func(f Fault) Reply {
		return Reply{Policy: PolicyKill, Start: f.Stamp + 1}
	})

	r, err := ep.Send(ctx, Fault{Badge: 3, Stamp: 41})
	require.NoError(t, err)
	assert.Equal(t, PolicyKill, r.Policy)
	assert.Equal(t, uint64(42), r.Start)

	cancel()
	_, err = NewEndpoint(0).Send(ctx, Fault{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParsePolicy(t *testing.T) {
	for _, p := range Policies {
		got, err := ParsePolicy(string(p))
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	_, err := ParsePolicy("restart")
	assert.Error(t, err)
}
