package schedbench

import "fmt"

// Layout constants of the timeout fault benchmark.
const (
	TimeoutIgnored = 10
	TimeoutRuns    = 100 + TimeoutIgnored
)

// TimeoutDims are the default header dims: runs, ignored.
var TimeoutDims = []uint32{TimeoutRuns, TimeoutIgnored}

// Series recorded by the timeout benchmark.
const (
	TimeoutCcntOverhead    = "ccnt_overhead"
	TimeoutHandleOverhead  = "handle_timeout_overhead"
	TimeoutServerToHandler = "server_to_handler"
	TimeoutHandle          = "handle_timeout"
)

// TimeoutLayout returns the payload layout for dims {runs, ignored}.
func TimeoutLayout(dims []uint32) (*Layout, error) {
	d, err := dimsOrDefault("timeout", dims, TimeoutDims)
	if err != nil {
		return nil, err
	}
	runs, ignored := d[0], d[1]
	if runs <= ignored {
		return nil, fmt.Errorf("timeout: runs=%d ignored=%d: %w", runs, ignored, ErrHeader)
	}

	l := NewLayout()
	l.Array(TimeoutCcntOverhead, runs)
	l.Array(TimeoutHandleOverhead, runs)
	l.Array(TimeoutServerToHandler, runs)
	l.Array(TimeoutHandle, runs)
	return l, nil
}

func processTimeout(buf *Buffer) (Report, error) {
	l, err := TimeoutLayout(buf.Dims())
	if err != nil {
		return nil, err
	}
	d, _ := dimsOrDefault("timeout", buf.Dims(), TimeoutDims)

	steps := []struct {
		field  string
		name   string
		stable bool
		// base is the index of the earlier step whose min is the overhead, or -1.
		base int
	}{
		{TimeoutCcntOverhead, "Read ccnt overhead", true, -1},
		{TimeoutHandleOverhead, "Handle timeout overhead", true, 0},
		{TimeoutServerToHandler, "Server to handler", false, 0},
		{TimeoutHandle, "Handle timeout", false, 1},
	}

	results := make([]Result, len(steps))
	report := make(Report, 0, len(steps))
	for i, s := range steps {
		desc := ResultDesc{Name: s.name, Stable: s.stable, Ignored: d[1]}
		if s.base >= 0 {
			desc.Overhead = results[s.base].Min
		}
		samples, err := buf.Field(l, s.field)
		if err != nil {
			return nil, err
		}
		r, err := ProcessResult(samples, desc)
		if err != nil {
			return nil, err
		}
		results[i] = r
		report = append(report, single(s.name, r))
	}
	return report, nil
}

func init() {
	mustRegister(Benchmark{
		Name:        "timeout",
		DefaultDims: TimeoutDims,
		Layout:      TimeoutLayout,
		Process:     processTimeout,
	})
}
