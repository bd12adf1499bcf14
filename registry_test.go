package schedbench

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_BuiltIns(t *testing.T) {
	assert.Equal(t, []string{"aes", "smp", "timeout"}, Names())

	b, err := Lookup("aes")
	require.NoError(t, err)
	assert.Equal(t, AESDims, b.DefaultDims)

	_, err = Lookup("scheduler")
	assert.ErrorIs(t, err, ErrUnknownBenchmark)
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	custom := Benchmark{
		Name: "custom",
		Layout: func(dims []uint32) (*Layout, error) {
			l := NewLayout()
			l.Array("samples", 3)
			return l, nil
		},
		Process: func(buf *Buffer) (Report, error) {
			samples, err := buf.Series(0, 3)
			if err != nil {
				return nil, err
			}
			res, err := ProcessResult(samples, ResultDesc{Name: "custom", Ignored: 1})
			if err != nil {
				return nil, err
			}
			return Report{single("custom", res)}, nil
		},
	}

	require.NoError(t, r.Register(custom))
	assert.Error(t, r.Register(custom))
	assert.Error(t, r.Register(Benchmark{Name: "incomplete"}))
	assert.Equal(t, []string{"custom"}, r.Names())

	l, err := custom.Layout(nil)
	require.NoError(t, err)
	buf := newSegment(t, "custom", nil, l)
	buf.Set(0, 1000)
	buf.Set(1, 4)
	buf.Set(2, 6)

	report, err := r.Process(buf)
	require.NoError(t, err)
	require.Len(t, report, 1)
	assert.Equal(t, 5.0, report[0].Results[0].Mean)

	other := newSegment(t, "other", nil, l)
	_, err = r.Process(other)
	assert.ErrorIs(t, err, ErrUnknownBenchmark)
}

func TestRegistry_ProcessError(t *testing.T) {
	l, err := TimeoutLayout(nil)
	require.NoError(t, err)
	// A timeout header with too few dims cannot be laid out.
	buf := newSegment(t, "timeout", []uint32{TimeoutRuns}, l)

	_, err = Process(buf)
	assert.ErrorIs(t, err, ErrHeader)
}

func TestRegistry_ProcessOversizedHeader(t *testing.T) {
	// A header whose dims claim far more samples than the payload holds
	// is rejected before any processor sizes its output from the dims.
	const words = 8
	mem := make([]byte, SegmentSize(words))
	require.NoError(t, WriteHeader(mem, "smp", []uint32{1, 1 << 24, 2, 1}, words))
	buf, err := NewBuffer(mem)
	require.NoError(t, err)

	_, err = Process(buf)
	assert.ErrorIs(t, err, ErrShortBuffer)

	mem = make([]byte, SegmentSize(words))
	require.NoError(t, WriteHeader(mem, "aes", []uint32{0xFFFFFFFF, 10, 0xFFFFFFFF}, words))
	buf, err = NewBuffer(mem)
	require.NoError(t, err)

	_, err = Process(buf)
	assert.ErrorIs(t, err, ErrShortBuffer)
}
