package schedbench

import (
	"errors"
	"fmt"
	"math"

	"github.com/aclements/go-moremath/stats"
)

var (
	// ErrNoSamples is returned when a sample set has no samples left after
	// the warm-up samples are dropped.
	ErrNoSamples = errors.New("no samples after ignored prefix")

	// ErrInvalidDesc is returned for a descriptor that cannot be applied.
	ErrInvalidDesc = errors.New("invalid result descriptor")
)

// ResultDesc controls how a sample set is reduced.
type ResultDesc struct {
	Name     string // Display name, used in errors
	Stable   bool   // Low variance expected; raw samples are not kept
	Ignored  int    // Leading warm-up samples to drop (N_IGNORED)
	Overhead uint64 // Baseline subtracted from every kept sample
}

// Result is the reduction of one sample set.
type Result struct {
	Min           uint64
	Max           uint64
	Mean          float64
	Variance      float64 // Population variance
	Stddev        float64 // Population standard deviation
	StddevPct     float64 // Stddev as a percentage of Mean
	Median        float64
	FirstQuartile float64
	ThirdQuartile float64
	Samples       int      // Kept samples
	Clamped       int      // Kept samples smaller than the overhead
	Raw           []uint64 // Kept, overhead-adjusted samples (unstable results only)
}

// ProcessResult reduces samples[desc.Ignored:] after subtracting desc.Overhead
// from every sample. A sample smaller than the overhead counts as zero.
//
// The input is never modified.
func ProcessResult(samples []uint64, desc ResultDesc) (Result, error) {
	if desc.Ignored < 0 {
		return Result{}, fmt.Errorf("%s: ignored=%d: %w", desc.Name, desc.Ignored, ErrInvalidDesc)
	}
	if len(samples) <= desc.Ignored {
		return Result{}, fmt.Errorf("%s: %d samples, %d ignored: %w",
			desc.Name, len(samples), desc.Ignored, ErrNoSamples)
	}

	kept := samples[desc.Ignored:]
	adjusted := make([]uint64, len(kept))
	clamped := 0
	for i, v := range kept {
		if v < desc.Overhead {
			clamped++
			continue
		}
		adjusted[i] = v - desc.Overhead
	}

	n := float64(len(adjusted))
	lo, hi := adjusted[0], adjusted[0]
	var sum float64
	for _, v := range adjusted {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
		sum += float64(v)
	}
	mean := sum / n

	var variance float64
	for _, v := range adjusted {
		diff := float64(v) - mean
		variance += diff * diff
	}
	variance /= n
	stddev := math.Sqrt(variance)

	var stddevPct float64
	if mean != 0 {
		stddevPct = stddev / mean * 100
	}

	xs := make([]float64, len(adjusted))
	for i, v := range adjusted {
		xs[i] = float64(v)
	}
	sample := stats.Sample{Xs: xs}
	sample.Sort()

	r := Result{
		Min:           lo,
		Max:           hi,
		Mean:          mean,
		Variance:      variance,
		Stddev:        stddev,
		StddevPct:     stddevPct,
		Median:        sample.Quantile(0.5),
		FirstQuartile: sample.Quantile(0.25),
		ThirdQuartile: sample.Quantile(0.75),
		Samples:       len(adjusted),
		Clamped:       clamped,
	}
	if !desc.Stable {
		r.Raw = adjusted
	}

	return r, nil
}

// ProcessResults reduces K independent sample sets with the same descriptor.
// Results keep the order of series.
func ProcessResults(series [][]uint64, desc ResultDesc) ([]Result, error) {
	results := make([]Result, 0, len(series))
	for i, samples := range series {
		r, err := ProcessResult(samples, desc)
		if err != nil {
			return nil, fmt.Errorf("series %d: %w", i, err)
		}
		results = append(results, r)
	}
	return results, nil
}

// MustProcess is like ProcessResult but panics on error.
// Use it only for layouts whose sizes are fixed at compile time.
func MustProcess(samples []uint64, desc ResultDesc) Result {
	r, err := ProcessResult(samples, desc)
	if err != nil {
		panic(fmt.Sprintf("schedbench: process failed: %v", err))
	}
	return r
}
