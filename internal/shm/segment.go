// Package shm holds benchmark results in a file-backed shared segment.
//
// A driver creates the segment, writes samples through the returned
// schedbench.Buffer and closes it. The processor later opens the same file
// and reduces it. On Unix the file is mapped MAP_SHARED so a separate
// recording process sees the same words; elsewhere the segment is read
// into memory and written back on Close.
package shm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alexshd/schedbench"
)

// ErrClosed is returned when a closed segment is used.
var ErrClosed = errors.New("segment closed")

// Segment is an open results segment.
type Segment struct {
	file *os.File
	mem  []byte
	path string
	buf  *schedbench.Buffer

	// unmap releases mem. It writes the heap copy back on platforms
	// without mmap.
	unmap func(f *os.File, mem []byte) error
}

// DefaultPath returns the segment path for a benchmark, preferring /dev/shm.
func DefaultPath(name string) string {
	if info, err := os.Stat("/dev/shm"); err == nil && info.IsDir() {
		return filepath.Join("/dev/shm", "schedbench_"+name)
	}
	return filepath.Join(os.TempDir(), "schedbench_"+name)
}

// Create makes a new segment file at path sized for words payload words and
// writes the header. The file must not exist.
func Create(path, name string, dims []uint32, words int) (*Segment, error) {
	if words < 0 {
		return nil, fmt.Errorf("%d words: %w", words, schedbench.ErrShortBuffer)
	}
	size := schedbench.SegmentSize(words)
	// Validate the header before touching the filesystem.
	if err := schedbench.WriteHeader(make([]byte, size), name, dims, words); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create segment %s: %w", path, err)
	}
	cleanup := func() {
		file.Close()
		os.Remove(path)
	}

	if err := file.Truncate(int64(size)); err != nil {
		cleanup()
		return nil, fmt.Errorf("resize segment %s: %w", path, err)
	}

	mem, unmap, err := mapFile(file, size)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("map segment %s: %w", path, err)
	}
	if err := schedbench.WriteHeader(mem, name, dims, words); err != nil {
		unmap(file, mem)
		cleanup()
		return nil, err
	}

	return newSegment(file, mem, path, unmap)
}

// Open maps an existing segment and validates its header.
func Open(path string) (*Segment, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open segment %s: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat segment %s: %w", path, err)
	}
	size := info.Size()
	if size < schedbench.HeaderSize {
		file.Close()
		return nil, fmt.Errorf("segment %s is %d bytes: %w", path, size, schedbench.ErrShortBuffer)
	}

	mem, unmap, err := mapFile(file, int(size))
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("map segment %s: %w", path, err)
	}

	seg, err := newSegment(file, mem, path, unmap)
	if err != nil {
		unmap(file, mem)
		file.Close()
		return nil, fmt.Errorf("segment %s: %w", path, err)
	}
	return seg, nil
}

func newSegment(file *os.File, mem []byte, path string, unmap func(*os.File, []byte) error) (*Segment, error) {
	buf, err := schedbench.NewBuffer(mem)
	if err != nil {
		return nil, err
	}
	return &Segment{file: file, mem: mem, path: path, buf: buf, unmap: unmap}, nil
}

// Path returns the backing file.
func (s *Segment) Path() string { return s.path }

// Size returns the mapped size in bytes.
func (s *Segment) Size() int { return len(s.mem) }

// Buffer returns the view over the mapped words. It must not be used after Close.
func (s *Segment) Buffer() *schedbench.Buffer { return s.buf }

// Close unmaps the segment and closes the file. The file is kept.
func (s *Segment) Close() error {
	if s.file == nil {
		return ErrClosed
	}
	var errs []error
	if err := s.unmap(s.file, s.mem); err != nil {
		errs = append(errs, err)
	}
	if err := s.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close segment %s: %w", s.path, err))
	}
	s.file, s.mem, s.buf = nil, nil, nil
	return errors.Join(errs...)
}

// Remove closes the segment if still open and deletes its file.
func (s *Segment) Remove() error {
	if s.file != nil {
		if err := s.Close(); err != nil {
			return err
		}
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove segment %s: %w", s.path, err)
	}
	return nil
}
