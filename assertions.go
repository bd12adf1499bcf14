package schedbench

import (
	"strings"
	"testing"
)

// AssertionConfig contains thresholds for reduced results.
type AssertionConfig struct {
	// Stddev as a percentage of the mean (StddevPct < this value passes)
	MaxStddevPct float64

	// Kept samples allowed to be smaller than the overhead
	MaxClamped int

	// Minimum kept samples
	MinSamples int

	// Regression tolerance for AssertNoRegression, in percent
	MaxRegressionPct float64
}

// DefaultAssertionConfig returns conservative thresholds.
func DefaultAssertionConfig() AssertionConfig {
	return AssertionConfig{
		MaxStddevPct:     5,  // 5% relative spread
		MaxClamped:       0,  // overhead never exceeds a sample
		MinSamples:       10, // enough for quartiles to mean something
		MaxRegressionPct: 10, // 10% slower median
	}
}

// AssertOrdered verifies the order statistics of a result are consistent.
//
//	min ≤ Q1 ≤ median ≤ Q3 ≤ max and min ≤ mean ≤ max
func AssertOrdered(t testing.TB, r Result) {
	t.Helper()

	lo, hi := float64(r.Min), float64(r.Max)
	if r.Mean < lo || r.Mean > hi {
		t.Errorf("mean %.2f outside [%d, %d]", r.Mean, r.Min, r.Max)
	}
	if !(lo <= r.FirstQuartile && r.FirstQuartile <= r.Median &&
		r.Median <= r.ThirdQuartile && r.ThirdQuartile <= hi) {
		t.Errorf("quartiles out of order: min=%d q1=%.2f median=%.2f q3=%.2f max=%d",
			r.Min, r.FirstQuartile, r.Median, r.ThirdQuartile, r.Max)
	}
	if r.Stddev < 0 || r.Variance < 0 {
		t.Errorf("negative spread: stddev=%.2f variance=%.2f", r.Stddev, r.Variance)
	}
}

// AssertStable verifies a result has low relative spread and enough samples.
// Use it for quantities such as reading the cycle counter.
func AssertStable(t testing.TB, r Result, cfg AssertionConfig) {
	t.Helper()

	if r.Samples < cfg.MinSamples {
		t.Errorf("too few samples: %d (min: %d)", r.Samples, cfg.MinSamples)
	}
	if r.StddevPct > cfg.MaxStddevPct {
		t.Errorf("spread too high: stddev = %.2f%% of mean (max: %.2f%%)",
			r.StddevPct, cfg.MaxStddevPct)
	}
	if r.Clamped > cfg.MaxClamped {
		t.Errorf("%d samples below overhead (max: %d)", r.Clamped, cfg.MaxClamped)
	}
}

// AssertNoRegression verifies after is not significantly slower than before.
func AssertNoRegression(t testing.TB, before, after []uint64, ignored int, cfg AssertionConfig) {
	t.Helper()

	c, err := Compare(before, after, ignored)
	if err != nil {
		t.Fatalf("compare failed: %v", err)
	}
	if c.Significant && c.DeltaPct > cfg.MaxRegressionPct {
		t.Errorf("regression: %s (max: +%.2f%%)", c, cfg.MaxRegressionPct)
	}
	t.Logf("median %.0f → %.0f: %s", c.Old, c.New, c)
}

// AssertReport verifies every set of a report validates and every result is ordered.
func AssertReport(t testing.TB, report Report) {
	t.Helper()

	for _, s := range report {
		if err := s.Validate(); err != nil {
			t.Errorf("%s: %v", s.Name, err)
			continue
		}
		for _, r := range s.Results {
			AssertOrdered(t, r)
		}
	}
}

// PrintReport writes a report's tables to the test log.
func PrintReport(t testing.TB, report Report) {
	t.Helper()

	var sb strings.Builder
	if err := report.WriteTable(&sb); err != nil {
		t.Fatalf("write table: %v", err)
	}
	t.Logf("\n%s", sb.String())
}
