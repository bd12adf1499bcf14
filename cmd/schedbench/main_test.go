package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexshd/schedbench"
	"github.com/alexshd/schedbench/internal/shm"
)

func TestRunDims(t *testing.T) {
	dims, err := runDims("timeout", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, schedbench.TimeoutDims, dims)

	dims, err = runDims("aes", 20, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint32{20, schedbench.AESIgnored, schedbench.AESThroughputSteps}, dims)
	assert.Equal(t, uint32(schedbench.AESRuns), schedbench.AESDims[0], "defaults must not be modified")

	dims, err = runDims("smp", 5, 3)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), dims[1])
	assert.Equal(t, uint32(5), dims[2])

	_, err = runDims("timeout", schedbench.TimeoutIgnored, 0)
	assert.Error(t, err)
	_, err = runDims("nope", 0, 0)
	assert.ErrorIs(t, err, schedbench.ErrUnknownBenchmark)
}

// writeTimeout records a synthetic timeout segment where every series is constant.
func writeTimeout(t *testing.T, path string, base uint64) {
	t.Helper()

	dims := []uint32{4, 1}
	l, err := schedbench.TimeoutLayout(dims)
	require.NoError(t, err)
	seg, err := shm.Create(path, "timeout", dims, l.Words())
	require.NoError(t, err)

	buf := seg.Buffer()
	for i, f := range l.Fields() {
		for j := 0; j < f.Len(); j++ {
			buf.Set(f.Off+j, base*uint64(i+1)+uint64(j))
		}
	}
	require.NoError(t, seg.Close())
}

func TestProcessFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timeout.raw")
	writeTimeout(t, path, 100)

	doc, err := processFiles(context.Background(), []string{path})
	require.NoError(t, err)
	require.Contains(t, doc.Benchmarks, "timeout")
	assert.Len(t, doc.Benchmarks["timeout"], 4)

	var buf bytes.Buffer
	require.NoError(t, writeDocument(&buf, doc, true))

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Contains(t, decoded, "env")
	assert.Contains(t, decoded, "benchmarks")

	_, err = processFiles(context.Background(), []string{path, path})
	assert.Error(t, err)
}

func TestLoadSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timeout.raw")
	writeTimeout(t, path, 100)

	set, err := loadSet(path, "Handle timeout")
	require.NoError(t, err)
	assert.Len(t, set.Results[0].Raw, 3)

	_, err = loadSet(path, "Read ccnt overhead")
	assert.Error(t, err, "stable sets keep no raw samples")

	_, err = loadSet(path, "missing")
	assert.Error(t, err)
}

func TestRowLabel(t *testing.T) {
	set := schedbench.ResultSet{
		Columns: []schedbench.Column{{Header: "budget", Values: []int64{0, 10000}}},
		Results: make([]schedbench.Result, 2),
	}
	assert.Equal(t, "budget=10,000", rowLabel(set, 1))
	assert.Equal(t, "0", rowLabel(schedbench.ResultSet{}, 0))
}
