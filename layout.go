package schedbench

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Raw segment format.
//
//	0x00  magic     [8]byte  "SCHEDBN\0"
//	0x08  version   uint32
//	0x0C  ndims     uint32
//	0x10  words     uint64   payload length in uint64 words
//	0x18  name      [32]byte benchmark name, NUL padded
//	0x38  reserved  [8]byte
//	0x40  dims      [8]uint32
//	0x60  payload   [words]uint64, little endian
const (
	Magic      = "SCHEDBN\x00"
	Version    = uint32(1)
	HeaderSize = 0x60
	MaxDims    = 8

	maxNameLen = 32
)

var (
	ErrBadMagic    = errors.New("bad segment magic")
	ErrBadVersion  = errors.New("unsupported segment version")
	ErrShortBuffer = errors.New("read past end of segment")
	ErrHeader      = errors.New("invalid segment header")
	ErrNoField     = errors.New("no such layout field")
)

// SegmentSize returns the bytes needed for a segment with the given payload.
func SegmentSize(words int) int {
	return HeaderSize + words*8
}

// WriteHeader initialises the header of mem. The payload is left untouched.
func WriteHeader(mem []byte, name string, dims []uint32, words int) error {
	if len(name) == 0 || len(name) > maxNameLen {
		return fmt.Errorf("name %q: %w", name, ErrHeader)
	}
	if len(dims) > MaxDims {
		return fmt.Errorf("%d dims (max %d): %w", len(dims), MaxDims, ErrHeader)
	}
	if words < 0 || len(mem) < SegmentSize(words) {
		return fmt.Errorf("%d bytes for %d words: %w", len(mem), words, ErrShortBuffer)
	}

	hdr := mem[:HeaderSize]
	for i := range hdr {
		hdr[i] = 0
	}
	copy(hdr[0x00:0x08], Magic)
	binary.LittleEndian.PutUint32(hdr[0x08:], Version)
	binary.LittleEndian.PutUint32(hdr[0x0C:], uint32(len(dims)))
	binary.LittleEndian.PutUint64(hdr[0x10:], uint64(words))
	copy(hdr[0x18:0x18+maxNameLen], name)
	for i, d := range dims {
		binary.LittleEndian.PutUint32(hdr[0x40+4*i:], d)
	}
	return nil
}

// Buffer is a view over a raw results segment.
type Buffer struct {
	mem   []byte
	name  string
	dims  []uint32
	words int
}

// NewBuffer validates the header of mem and returns a view over it.
// The view aliases mem; writes through Set are visible to other mappings.
func NewBuffer(mem []byte) (*Buffer, error) {
	if len(mem) < HeaderSize {
		return nil, fmt.Errorf("%d byte segment: %w", len(mem), ErrShortBuffer)
	}
	if string(mem[0x00:0x08]) != Magic {
		return nil, ErrBadMagic
	}
	if v := binary.LittleEndian.Uint32(mem[0x08:]); v != Version {
		return nil, fmt.Errorf("version %d: %w", v, ErrBadVersion)
	}

	ndims := binary.LittleEndian.Uint32(mem[0x0C:])
	if ndims > MaxDims {
		return nil, fmt.Errorf("%d dims: %w", ndims, ErrHeader)
	}
	words := binary.LittleEndian.Uint64(mem[0x10:])
	if words > uint64(len(mem)-HeaderSize)/8 {
		return nil, fmt.Errorf("%d words in %d byte segment: %w", words, len(mem), ErrShortBuffer)
	}

	name := mem[0x18 : 0x18+maxNameLen]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	if len(name) == 0 {
		return nil, fmt.Errorf("empty name: %w", ErrHeader)
	}

	dims := make([]uint32, ndims)
	for i := range dims {
		dims[i] = binary.LittleEndian.Uint32(mem[0x40+4*i:])
	}

	return &Buffer{
		mem:   mem,
		name:  string(name),
		dims:  dims,
		words: int(words),
	}, nil
}

// Name returns the benchmark that produced the segment.
func (b *Buffer) Name() string { return b.name }

// Dims returns a copy of the layout dimensions recorded in the header.
func (b *Buffer) Dims() []uint32 {
	return append([]uint32(nil), b.dims...)
}

// Words returns the payload length.
func (b *Buffer) Words() int { return b.words }

// Get returns payload word i. It panics if i is out of range.
func (b *Buffer) Get(i int) uint64 {
	if i < 0 || i >= b.words {
		panic(fmt.Sprintf("schedbench: word %d out of range [0,%d)", i, b.words))
	}
	return binary.LittleEndian.Uint64(b.mem[HeaderSize+8*i:])
}

// Set stores payload word i. It panics if i is out of range.
func (b *Buffer) Set(i int, v uint64) {
	if i < 0 || i >= b.words {
		panic(fmt.Sprintf("schedbench: word %d out of range [0,%d)", i, b.words))
	}
	binary.LittleEndian.PutUint64(b.mem[HeaderSize+8*i:], v)
}

// Series copies n words starting at off.
func (b *Buffer) Series(off, n int) ([]uint64, error) {
	if off < 0 || n < 0 || off+n > b.words {
		return nil, fmt.Errorf("words [%d,%d) of %d: %w", off, off+n, b.words, ErrShortBuffer)
	}
	out := make([]uint64, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint64(b.mem[HeaderSize+8*(off+i):])
	}
	return out, nil
}

// Field copies the innermost series of a layout array at the given outer index.
func (b *Buffer) Field(l *Layout, name string, index ...int) ([]uint64, error) {
	off, n, err := l.Row(name, index...)
	if err != nil {
		return nil, err
	}
	return b.Series(off, n)
}

// Rows copies every innermost series of a two dimensional layout array.
func (b *Buffer) Rows(l *Layout, name string, outer ...int) ([][]uint64, error) {
	f, ok := l.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNoField)
	}
	if len(f.Shape) != len(outer)+2 {
		return nil, fmt.Errorf("%s: rows of a %d-d array with %d outer indexes: %w",
			name, len(f.Shape), len(outer), ErrNoField)
	}
	rows := make([][]uint64, f.Shape[len(outer)])
	for i := range rows {
		series, err := b.Field(l, name, append(append([]int(nil), outer...), i)...)
		if err != nil {
			return nil, err
		}
		rows[i] = series
	}
	return rows, nil
}

// LayoutField is one named array in a segment payload.
type LayoutField struct {
	Name  string
	Off   int   // Word offset
	Shape []int // Dimensions, innermost last
}

// Len returns the number of words the field occupies, saturating at
// math.MaxInt for shapes no segment can hold.
func (f LayoutField) Len() int {
	n := 1
	for _, d := range f.Shape {
		if d > 0 && n > math.MaxInt/d {
			return math.MaxInt
		}
		n *= d
	}
	return n
}

// Layout assigns word offsets to named, row-major arrays.
// Drivers and processors build the same Layout from the header dims,
// so both sides agree on where each sample set lives.
type Layout struct {
	fields []LayoutField
	index  map[string]int
	words  int
}

// NewLayout returns an empty layout.
func NewLayout() *Layout {
	return &Layout{index: make(map[string]int)}
}

// Array appends an array with the given shape and returns its offset.
// It panics on a duplicate name or a non-positive dimension.
func (l *Layout) Array(name string, shape ...int) int {
	if _, dup := l.index[name]; dup {
		panic(fmt.Sprintf("schedbench: duplicate layout field %q", name))
	}
	for _, d := range shape {
		if d <= 0 {
			panic(fmt.Sprintf("schedbench: layout field %q has dimension %d", name, d))
		}
	}
	f := LayoutField{Name: name, Off: l.words, Shape: append([]int(nil), shape...)}
	l.index[name] = len(l.fields)
	l.fields = append(l.fields, f)
	if n := f.Len(); l.words > math.MaxInt-n {
		l.words = math.MaxInt
	} else {
		l.words += n
	}
	return f.Off
}

// Words returns the total payload size.
func (l *Layout) Words() int { return l.words }

// Fields returns the fields in declaration order.
func (l *Layout) Fields() []LayoutField {
	return append([]LayoutField(nil), l.fields...)
}

// Lookup returns a field by name.
func (l *Layout) Lookup(name string) (LayoutField, bool) {
	i, ok := l.index[name]
	if !ok {
		return LayoutField{}, false
	}
	return l.fields[i], true
}

// Row returns the offset and length of the innermost series selected by the
// outer indexes. A one dimensional field needs no index.
func (l *Layout) Row(name string, index ...int) (off, n int, err error) {
	f, ok := l.Lookup(name)
	if !ok {
		return 0, 0, fmt.Errorf("%s: %w", name, ErrNoField)
	}
	if len(index) != len(f.Shape)-1 {
		return 0, 0, fmt.Errorf("%s: %d indexes for %d-d array: %w",
			name, len(index), len(f.Shape), ErrNoField)
	}

	n = f.Shape[len(f.Shape)-1]
	stride := n
	off = f.Off
	for i := len(index) - 1; i >= 0; i-- {
		if index[i] < 0 || index[i] >= f.Shape[i] {
			return 0, 0, fmt.Errorf("%s: index %d out of range [0,%d): %w",
				name, index[i], f.Shape[i], ErrShortBuffer)
		}
		off += index[i] * stride
		stride *= f.Shape[i]
	}
	return off, n, nil
}

// Index returns the word offset of element idx (all dimensions given).
func (l *Layout) Index(name string, idx ...int) int {
	if len(idx) == 0 {
		panic(fmt.Sprintf("schedbench: %s: no index", name))
	}
	off, n, err := l.Row(name, idx[:len(idx)-1]...)
	if err != nil {
		panic(fmt.Sprintf("schedbench: %v", err))
	}
	last := idx[len(idx)-1]
	if last < 0 || last >= n {
		panic(fmt.Sprintf("schedbench: %s: index %d out of range [0,%d)", name, last, n))
	}
	return off + last
}
