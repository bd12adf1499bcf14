package schedbench

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownBenchmark is returned when no benchmark is registered under a name.
var ErrUnknownBenchmark = errors.New("unknown benchmark")

// Benchmark describes one experiment's raw layout and how to reduce it.
type Benchmark struct {
	Name string

	// DefaultDims are the header dimensions a driver uses when none are given.
	DefaultDims []uint32

	// Layout maps header dimensions to the payload layout.
	Layout func(dims []uint32) (*Layout, error)

	// Process reduces a finished segment into result sets.
	Process func(buf *Buffer) (Report, error)
}

// Registry maps benchmark names to their descriptions.
type Registry struct {
	benchmarks map[string]Benchmark
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		benchmarks: make(map[string]Benchmark),
	}
}

// Register adds a benchmark. Call this during init() or test setup.
func (r *Registry) Register(b Benchmark) error {
	if b.Name == "" || b.Layout == nil || b.Process == nil {
		return fmt.Errorf("benchmark %q: name, layout and process are required", b.Name)
	}
	if _, dup := r.benchmarks[b.Name]; dup {
		return fmt.Errorf("benchmark %q already registered", b.Name)
	}
	r.benchmarks[b.Name] = b
	return nil
}

// Lookup returns the benchmark registered under name.
func (r *Registry) Lookup(name string) (Benchmark, error) {
	b, ok := r.benchmarks[name]
	if !ok {
		return Benchmark{}, fmt.Errorf("%q: %w", name, ErrUnknownBenchmark)
	}
	return b, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.benchmarks))
	for name := range r.benchmarks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Process looks up the benchmark named in the segment header and reduces it.
// The payload must hold the layout the header dims describe.
func (r *Registry) Process(buf *Buffer) (Report, error) {
	b, err := r.Lookup(buf.Name())
	if err != nil {
		return nil, err
	}
	l, err := b.Layout(buf.Dims())
	if err != nil {
		return nil, fmt.Errorf("process %s: %w", b.Name, err)
	}
	if l.Words() > buf.Words() {
		return nil, fmt.Errorf("process %s: layout needs %d words, segment has %d: %w",
			b.Name, l.Words(), buf.Words(), ErrShortBuffer)
	}
	report, err := b.Process(buf)
	if err != nil {
		return nil, fmt.Errorf("process %s: %w", b.Name, err)
	}
	return report, nil
}

// Global registry holding the built-in benchmarks.
var globalRegistry = NewRegistry()

func mustRegister(b Benchmark) {
	if err := globalRegistry.Register(b); err != nil {
		panic(fmt.Sprintf("schedbench: %v", err))
	}
}

// Register adds to the global registry.
func Register(b Benchmark) error {
	return globalRegistry.Register(b)
}

// Lookup searches the global registry.
func Lookup(name string) (Benchmark, error) {
	return globalRegistry.Lookup(name)
}

// Names lists the global registry.
func Names() []string {
	return globalRegistry.Names()
}

// Process reduces a segment with the global registry.
func Process(buf *Buffer) (Report, error) {
	return globalRegistry.Process(buf)
}

// dimsOrDefault validates header dims against the expected count.
func dimsOrDefault(name string, dims, def []uint32) ([]int, error) {
	if len(dims) == 0 {
		dims = def
	}
	if len(dims) != len(def) {
		return nil, fmt.Errorf("%s: %d dims, want %d: %w", name, len(dims), len(def), ErrHeader)
	}
	out := make([]int, len(dims))
	for i, d := range dims {
		out[i] = int(d)
	}
	return out, nil
}

// single wraps one result in a set without extra columns.
func single(name string, r Result) ResultSet {
	return ResultSet{Name: name, Results: []Result{r}}
}
