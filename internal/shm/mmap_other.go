//go:build !unix

package shm

import (
	"fmt"
	"io"
	"os"
)

// mapFile reads the segment into memory. Writes reach the file on Close.
func mapFile(file *os.File, size int) ([]byte, func(*os.File, []byte) error, error) {
	mem := make([]byte, size)
	if _, err := io.ReadFull(io.NewSectionReader(file, 0, int64(size)), mem); err != nil {
		return nil, nil, fmt.Errorf("read segment: %w", err)
	}
	return mem, flush, nil
}

func flush(file *os.File, mem []byte) error {
	if _, err := file.WriteAt(mem, 0); err != nil {
		return fmt.Errorf("flush segment: %w", err)
	}
	return nil
}
