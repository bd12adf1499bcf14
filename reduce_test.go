package schedbench

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestProcessResult_Constant verifies a constant set reduces to c-o with no spread.
func TestProcessResult_Constant(t *testing.T) {
	samples := []uint64{99, 1, 42, 42, 42, 42, 42}

	r, err := ProcessResult(samples, ResultDesc{Name: "constant", Ignored: 2, Overhead: 2})
	require.NoError(t, err)

	assert.Equal(t, uint64(40), r.Min)
	assert.Equal(t, uint64(40), r.Max)
	assert.Equal(t, 40.0, r.Mean)
	assert.Equal(t, 0.0, r.Stddev)
	assert.Equal(t, 0.0, r.StddevPct)
	assert.Equal(t, 5, r.Samples)
	AssertOrdered(t, r)
}

// TestProcessResult_Worked checks a hand-computed reduction.
func TestProcessResult_Worked(t *testing.T) {
	samples := []uint64{5, 5, 5, 10, 20, 30}

	t.Run("ThreeIgnored", func(t *testing.T) {
		r, err := ProcessResult(samples, ResultDesc{Name: "worked", Ignored: 3, Overhead: 5})
		require.NoError(t, err)

		assert.Equal(t, uint64(5), r.Min)
		assert.Equal(t, uint64(25), r.Max)
		assert.InDelta(t, 15.0, r.Mean, 1e-9)
		assert.InDelta(t, 8.1650, r.Stddev, 1e-4)
		assert.InDelta(t, 200.0/3, r.Variance, 1e-9)
		assert.InDelta(t, 15.0, r.Median, 1e-6)
		assert.Equal(t, []uint64{5, 15, 25}, r.Raw)
	})

	t.Run("TwoIgnored", func(t *testing.T) {
		r, err := ProcessResult(samples, ResultDesc{Name: "worked", Ignored: 2, Overhead: 5})
		require.NoError(t, err)

		assert.Equal(t, uint64(0), r.Min)
		assert.Equal(t, uint64(25), r.Max)
		assert.InDelta(t, 11.25, r.Mean, 1e-9)
		assert.InDelta(t, 9.6014, r.Stddev, 1e-4)
		assert.Equal(t, 0, r.Clamped)
	})
}

// TestProcessResult_ClampsOverhead verifies samples below the overhead count as zero.
func TestProcessResult_ClampsOverhead(t *testing.T) {
	r, err := ProcessResult([]uint64{3, 10, 20}, ResultDesc{Name: "clamp", Overhead: 5})
	require.NoError(t, err)

	assert.Equal(t, uint64(0), r.Min)
	assert.Equal(t, uint64(15), r.Max)
	assert.Equal(t, 1, r.Clamped)
	assert.Equal(t, []uint64{0, 5, 15}, r.Raw)
}

// TestProcessResult_Boundaries covers the ignored-prefix edges.
func TestProcessResult_Boundaries(t *testing.T) {
	samples := []uint64{1, 2, 3, 4}

	r, err := ProcessResult(samples, ResultDesc{Name: "all", Ignored: 0})
	require.NoError(t, err)
	assert.Equal(t, 4, r.Samples)
	assert.Equal(t, 2.5, r.Mean)

	_, err = ProcessResult(samples, ResultDesc{Name: "none", Ignored: len(samples)})
	assert.ErrorIs(t, err, ErrNoSamples)

	_, err = ProcessResult(nil, ResultDesc{Name: "empty"})
	assert.ErrorIs(t, err, ErrNoSamples)

	_, err = ProcessResult(samples, ResultDesc{Name: "negative", Ignored: -1})
	assert.ErrorIs(t, err, ErrInvalidDesc)
}

// TestProcessResult_Pure verifies reduction neither mutates its input nor
// depends on previous calls.
func TestProcessResult_Pure(t *testing.T) {
	samples := []uint64{7, 9, 30, 12, 11, 50, 8}
	snapshot := append([]uint64(nil), samples...)
	desc := ResultDesc{Name: "pure", Ignored: 1, Overhead: 4}

	first, err := ProcessResult(samples, desc)
	require.NoError(t, err)
	second, err := ProcessResult(samples, desc)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, samples)

	// The raw copy must not alias the input.
	first.Raw[0] = 12345
	assert.Equal(t, snapshot, samples)
}

// TestProcessResult_StableDropsRaw verifies only unstable results keep samples.
func TestProcessResult_StableDropsRaw(t *testing.T) {
	samples := []uint64{4, 4, 5, 4}

	stable, err := ProcessResult(samples, ResultDesc{Name: "stable", Stable: true})
	require.NoError(t, err)
	assert.Nil(t, stable.Raw)

	unstable, err := ProcessResult(samples, ResultDesc{Name: "unstable"})
	require.NoError(t, err)
	assert.Len(t, unstable.Raw, 4)
}

// TestProcessResult_Ordered checks min ≤ mean ≤ max over random sets.
func TestProcessResult_Ordered(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 200; i++ {
		n := 2 + rng.Intn(64)
		samples := make([]uint64, n)
		for j := range samples {
			samples[j] = uint64(rng.Int63n(1 << 40))
		}
		desc := ResultDesc{
			Name:     "random",
			Ignored:  rng.Intn(n),
			Overhead: uint64(rng.Int63n(1 << 20)),
		}

		r, err := ProcessResult(samples, desc)
		require.NoError(t, err)
		AssertOrdered(t, r)
	}
}

// TestProcessResults_MatchesSingle verifies the multi-series form is the
// per-series reduction concatenated in input order.
func TestProcessResults_MatchesSingle(t *testing.T) {
	series := [][]uint64{
		{100, 10, 11, 12},
		{100, 20, 20, 20},
		{100, 5, 50, 500},
	}
	desc := ResultDesc{Name: "multi", Ignored: 1, Overhead: 1}

	results, err := ProcessResults(series, desc)
	require.NoError(t, err)
	require.Len(t, results, len(series))

	for i, s := range series {
		want, err := ProcessResult(s, desc)
		require.NoError(t, err)
		assert.Equal(t, want, results[i], "series %d", i)
	}
}

// TestProcessResults_Error verifies a failing series is named in the error.
func TestProcessResults_Error(t *testing.T) {
	series := [][]uint64{{1, 2, 3}, {1}}

	_, err := ProcessResults(series, ResultDesc{Name: "short", Ignored: 1})
	require.ErrorIs(t, err, ErrNoSamples)
	assert.Contains(t, err.Error(), "series 1")
}

// TestMustProcess_Panics verifies the panicking form.
func TestMustProcess_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustProcess([]uint64{1}, ResultDesc{Name: "panic", Ignored: 1})
	})
	assert.NotPanics(t, func() {
		MustProcess([]uint64{1, 2}, ResultDesc{Name: "ok", Ignored: 1})
	})
}
