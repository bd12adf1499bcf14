package schedbench

import (
	"fmt"
	"runtime"
)

// Layout constants of the multi-core ping-pong benchmark.
const (
	SMPIgnored = 1
	SMPRuns    = 10 + SMPIgnored
)

// SMPDelays are the default per-call busy delays in nanoseconds, one test each.
var SMPDelays = []uint64{0, 500, 2000, 8000}

// SMPDims returns header dims {tests, cores, runs, ignored} for this host.
func SMPDims(cores int) []uint32 {
	if cores <= 0 {
		cores = runtime.NumCPU()
	}
	return []uint32{uint32(len(SMPDelays)), uint32(cores), SMPRuns, SMPIgnored}
}

// Series recorded by the smp benchmark.
const (
	SMPDelay = "delay" // [tests] delay in ns
	SMPCalls = "calls" // [tests][cores][runs] calls completed per window
)

// SMPLayout returns the payload layout for dims {tests, cores, runs, ignored}.
func SMPLayout(dims []uint32) (*Layout, error) {
	d, err := dimsOrDefault("smp", dims, SMPDims(1))
	if err != nil {
		return nil, err
	}
	tests, cores, runs, ignored := d[0], d[1], d[2], d[3]
	if tests == 0 || tests > len(SMPDelays) || cores == 0 || runs <= ignored {
		return nil, fmt.Errorf("smp: tests=%d cores=%d runs=%d ignored=%d: %w",
			tests, cores, runs, ignored, ErrHeader)
	}

	l := NewLayout()
	l.Array(SMPDelay, tests)
	l.Array(SMPCalls, tests, cores, runs)
	return l, nil
}

func processSMP(buf *Buffer) (Report, error) {
	l, err := SMPLayout(buf.Dims())
	if err != nil {
		return nil, err
	}
	d, _ := dimsOrDefault("smp", buf.Dims(), SMPDims(1))
	tests, cores := d[0], d[1]

	delays, err := buf.Field(l, SMPDelay)
	if err != nil {
		return nil, err
	}

	coreCol := make([]int64, cores)
	for i := range coreCol {
		coreCol[i] = int64(i + 1)
	}

	report := make(Report, 0, tests)
	for t := 0; t < tests; t++ {
		name := fmt.Sprintf("IPC throughput delay=%d", delays[t])
		rows, err := buf.Rows(l, SMPCalls, t)
		if err != nil {
			return nil, err
		}
		results, err := ProcessResults(rows, ResultDesc{Name: name, Ignored: d[3]})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		report = append(report, ResultSet{
			Name:    name,
			Columns: []Column{{Header: "cores", Values: coreCol}},
			Results: results,
		})
	}
	return report, nil
}

func init() {
	mustRegister(Benchmark{
		Name:        "smp",
		DefaultDims: SMPDims(0),
		Layout:      SMPLayout,
		Process:     processSMP,
	})
}
