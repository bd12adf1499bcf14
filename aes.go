package schedbench

import (
	"fmt"
)

// Layout constants of the aes recovery benchmark.
const (
	AESIgnored         = 10
	AESRuns            = 100 + AESIgnored
	AESThroughputSteps = 11

	// AESPeriodUS and AESBudgetStepUS describe the first throughput group.
	// Each following group multiplies both by ten.
	AESPeriodUS     = 10 * 1000
	AESBudgetStepUS = 1000
)

// AESPolicies are the recovery policies measured by the aes benchmark, in
// report order. Each has a hot and a cold cache series.
var AESPolicies = []string{"rollback", "emergency", "extend", "kill"}

// AESGroups are the throughput period groups in milliseconds.
var AESGroups = []int{10, 100, 1000}

// AESRoles are the throughput series recorded for every group.
var AESRoles = []string{"A", "B", "baseline"}

// AESDims are the default header dims: runs, ignored, throughput steps.
var AESDims = []uint32{AESRuns, AESIgnored, AESThroughputSteps}

// AESCostField names the series of a policy's recovery cost.
func AESCostField(policy string, cold bool) string {
	if cold {
		return policy + "_cold"
	}
	return policy
}

// AESThroughputField names the series of one role in one period group.
func AESThroughputField(role string, groupMS int) string {
	return fmt.Sprintf("%s-%d", role, groupMS)
}

// AESBudgets returns the nominal budgets (µs) of clients A and B at each
// throughput step of a group. A gets i*step and B the rest of the period.
func AESBudgets(group, steps int) (a, b []int64) {
	step := int64(AESBudgetStepUS)
	period := int64(AESPeriodUS)
	for g := 0; g < group; g++ {
		step *= 10
		period *= 10
	}
	a = make([]int64, steps)
	b = make([]int64, steps)
	for i := range a {
		a[i] = int64(i) * step
		b[i] = period - a[i]
	}
	return a, b
}

// AESLayout returns the payload layout for dims {runs, ignored, steps}.
func AESLayout(dims []uint32) (*Layout, error) {
	d, err := dimsOrDefault("aes", dims, AESDims)
	if err != nil {
		return nil, err
	}
	runs, ignored, steps := d[0], d[1], d[2]
	if runs <= ignored || steps == 0 {
		return nil, fmt.Errorf("aes: runs=%d ignored=%d steps=%d: %w", runs, ignored, steps, ErrHeader)
	}

	l := NewLayout()
	l.Array("overhead", runs)
	for _, p := range AESPolicies {
		l.Array(AESCostField(p, false), runs)
		l.Array(AESCostField(p, true), runs)
	}
	for _, g := range AESGroups {
		for _, role := range AESRoles {
			l.Array(AESThroughputField(role, g), steps, runs)
		}
	}
	return l, nil
}

func processAES(buf *Buffer) (Report, error) {
	l, err := AESLayout(buf.Dims())
	if err != nil {
		return nil, err
	}
	d, _ := dimsOrDefault("aes", buf.Dims(), AESDims)
	ignored := d[1]

	samples, err := buf.Field(l, "overhead")
	if err != nil {
		return nil, err
	}
	desc := ResultDesc{Name: "aes overhead", Stable: true, Ignored: ignored}
	overhead, err := ProcessResult(samples, desc)
	if err != nil {
		return nil, err
	}
	report := Report{single("aes overhead", overhead)}

	desc.Stable = false
	desc.Overhead = overhead.Min

	for _, p := range AESPolicies {
		for _, cold := range []bool{false, true} {
			name := "aes " + p
			if cold {
				name += " cold"
			}
			desc.Name = name
			samples, err := buf.Field(l, AESCostField(p, cold))
			if err != nil {
				return nil, err
			}
			r, err := ProcessResult(samples, desc)
			if err != nil {
				return nil, err
			}
			report = append(report, single(name, r))
		}
	}

	for gi, g := range AESGroups {
		aBudget, bBudget := AESBudgets(gi, d[2])
		for _, role := range AESRoles {
			name := AESThroughputField(role, g)
			desc.Name = name
			rows, err := buf.Rows(l, name)
			if err != nil {
				return nil, err
			}
			results, err := ProcessResults(rows, desc)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			budget := aBudget
			if role == "B" {
				budget = bBudget
			}
			report = append(report, ResultSet{
				Name:    name,
				Columns: []Column{{Header: "budget", Values: budget}},
				Results: results,
			})
		}
	}

	return report, nil
}

func init() {
	mustRegister(Benchmark{
		Name:        "aes",
		DefaultDims: AESDims,
		Layout:      AESLayout,
		Process:     processAES,
	})
}
