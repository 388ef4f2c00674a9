// Package eeprom provides byte-addressable stores for the switch cache.
package eeprom

import (
	"errors"
	"fmt"
)

var ErrOutOfRange = errors.New("address out of range")

func checkRange(off int64, n int, size int64) error {
	if off < 0 || off+int64(n) > size {
		return fmt.Errorf("%w: %d+%d exceeds %d bytes", ErrOutOfRange, off, n, size)
	}
	return nil
}

// Memory is a volatile store, zero filled like an erased chip.
type Memory struct {
	data []byte
}

func NewMemory(size int) *Memory {
	return &Memory{data: make([]byte, size)}
}

func (m *Memory) Size() int64 { return int64(len(m.data)) }

func (m *Memory) ReadAt(p []byte, off int64) (int, error) {
	if err := checkRange(off, len(p), m.Size()); err != nil {
		return 0, err
	}
	return copy(p, m.data[off:]), nil
}

func (m *Memory) WriteAt(p []byte, off int64) (int, error) {
	if err := checkRange(off, len(p), m.Size()); err != nil {
		return 0, err
	}
	return copy(m.data[off:], p), nil
}

// Bytes returns the backing image.
func (m *Memory) Bytes() []byte { return m.data }
