package shm

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexshd/schedbench"
)

func TestCreateOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timeout.raw")

	seg, err := Create(path, "timeout", []uint32{3, 1}, 12)
	require.NoError(t, err)
	assert.Equal(t, path, seg.Path())
	assert.Equal(t, schedbench.SegmentSize(12), seg.Size())

	buf := seg.Buffer()
	for i := 0; i < buf.Words(); i++ {
		buf.Set(i, uint64(i*i))
	}
	require.NoError(t, seg.Close())
	assert.ErrorIs(t, seg.Close(), ErrClosed)

	seg, err = Open(path)
	require.NoError(t, err)
	defer seg.Close()

	buf = seg.Buffer()
	assert.Equal(t, "timeout", buf.Name())
	assert.Equal(t, []uint32{3, 1}, buf.Dims())
	assert.Equal(t, uint64(121), buf.Get(11))
}

func TestCreate_Exists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aes.raw")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	_, err := Create(path, "aes", nil, 1)
	assert.ErrorIs(t, err, os.ErrExist)
}

func TestCreate_BadHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.raw")

	_, err := Create(path, strings.Repeat("x", 40), nil, 1)
	assert.ErrorIs(t, err, schedbench.ErrHeader)
	_, statErr := os.Stat(path)
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestOpen_Invalid(t *testing.T) {
	dir := t.TempDir()

	short := filepath.Join(dir, "short.raw")
	require.NoError(t, os.WriteFile(short, []byte("SCHEDBN"), 0o600))
	_, err := Open(short)
	assert.ErrorIs(t, err, schedbench.ErrShortBuffer)

	garbage := filepath.Join(dir, "garbage.raw")
	require.NoError(t, os.WriteFile(garbage, make([]byte, schedbench.HeaderSize), 0o600))
	_, err = Open(garbage)
	assert.ErrorIs(t, err, schedbench.ErrBadMagic)

	_, err = Open(filepath.Join(dir, "missing.raw"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smp.raw")
	seg, err := Create(path, "smp", nil, 2)
	require.NoError(t, err)

	require.NoError(t, seg.Remove())
	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NoError(t, seg.Remove())
}

func TestDefaultPath(t *testing.T) {
	p := DefaultPath("aes")
	assert.Equal(t, "schedbench_aes", filepath.Base(p))
}
