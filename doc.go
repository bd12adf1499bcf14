// Package schedbench reduces and reports scheduling-context microbenchmarks.
//
// # Overview
//
// The suite measures what recovering from a budget overrun costs. A client
// exhausts the budget of its scheduling context, a timeout fault is delivered
// to a handler, and the handler applies a recovery policy. The possible
// policies are rollback, kill, extend and emergency budget. The cycle counter
// delta around the recovery is recorded as one sample.
//
// Drivers (internal/rt) fill fixed-layout sample arrays in a shared results
// segment (internal/shm). After the drivers have finished, this package reads
// the frozen segment, reduces every sample set, and emits the results as JSON
// tables.
//
// # Reducing
//
// A sample set holds N_RUNS = N_IGNORED + kept measurements. The first N_IGNORED
// are warm-up and are dropped. Each kept sample is then reduced by a baseline
// overhead (usually the minimum cost of reading the cycle counter):
//
//	desc := schedbench.ResultDesc{
//	    Name:     "aes rollback",
//	    Ignored:  10,
//	    Overhead: ccnt.Min,
//	}
//
//	r, err := schedbench.ProcessResult(samples, desc)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("min=%d max=%d mean=%.1f stddev=%.1f\n", r.Min, r.Max, r.Mean, r.Stddev)
//
// Reduction is a pure function. A sample set with no samples left after
// dropping the warm-up fails with ErrNoSamples instead of producing NaN.
//
// # Result sets
//
// A ResultSet pairs K results with optional extra integer columns of length K
// (budget, core count, priority):
//
//	set := schedbench.ResultSet{
//	    Name:    "A-10",
//	    Columns: []schedbench.Column{{Header: "budget", Values: budgets}},
//	    Results: results,
//	}
//
// Its JSON form is {"name", "columns", "rows"}. Every row carries the extra
// columns first, then min, max, mean and stddev.
//
// # Benchmarks
//
// Each benchmark knows its raw layout and how to process it. The aes, timeout
// and smp benchmarks are registered at init:
//
//	b, err := schedbench.Lookup(buf.Name())
//	report, err := b.Process(buf)
//	report.Encode(os.Stdout, true)
//
// # Comparing and scaling
//
// Compare tests two runs of the same series with a Mann-Whitney U test.
// FitScaling fits the Universal Scalability Law to a set whose rows are
// throughput at increasing core counts, such as the smp sets:
//
//	s, err := schedbench.FitScaling(set, "cores")
//	fmt.Println(s.Alpha, s.Beta, s.Peak())
//
// # Testing
//
// The assertion helpers check a result's shape inside ordinary tests:
//
//	schedbench.AssertOrdered(t, r)
//	schedbench.AssertStable(t, r, schedbench.DefaultAssertionConfig())
package schedbench
