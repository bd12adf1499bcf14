package schedbench

import (
	"errors"
	"fmt"

	"github.com/aclements/go-moremath/stats"
)

// DefaultAlpha is the significance level used by Compare.
const DefaultAlpha = 0.05

// Comparison is the outcome of comparing two sample sets of the same series.
type Comparison struct {
	N1, N2      int
	Old, New    float64 // Medians of the kept samples
	DeltaPct    float64 // (New-Old)/Old in percent
	P           float64 // Two-sided Mann-Whitney U p-value
	Significant bool    // P < DefaultAlpha
}

// Compare tests whether two runs of the same series differ in location.
// Both sample sets drop their first ignored samples; no overhead is applied.
func Compare(before, after []uint64, ignored int) (Comparison, error) {
	desc := ResultDesc{Name: "compare", Ignored: ignored}
	ro, err := ProcessResult(before, desc)
	if err != nil {
		return Comparison{}, fmt.Errorf("before: %w", err)
	}
	rn, err := ProcessResult(after, desc)
	if err != nil {
		return Comparison{}, fmt.Errorf("after: %w", err)
	}

	c := Comparison{
		N1:  ro.Samples,
		N2:  rn.Samples,
		Old: ro.Median,
		New: rn.Median,
		P:   1,
	}
	if ro.Median != 0 {
		c.DeltaPct = (rn.Median - ro.Median) / ro.Median * 100
	}

	test, err := stats.MannWhitneyUTest(toFloats(ro.Raw), toFloats(rn.Raw), stats.LocationDiffers)
	switch {
	case errors.Is(err, stats.ErrSamplesEqual):
		// Identical samples: no evidence of a difference.
	case err != nil:
		return c, fmt.Errorf("mann-whitney: %w", err)
	default:
		c.P = test.P
		c.Significant = test.P < DefaultAlpha
	}
	return c, nil
}

// String formats the comparison the way benchstat prints a delta.
func (c Comparison) String() string {
	if !c.Significant {
		return fmt.Sprintf("~ (p=%.3f n=%d+%d)", c.P, c.N1, c.N2)
	}
	return fmt.Sprintf("%+.2f%% (p=%.3f n=%d+%d)", c.DeltaPct, c.P, c.N1, c.N2)
}

func toFloats(xs []uint64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = float64(x)
	}
	return out
}
