package eeprom

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

var ErrReadOnly = errors.New("store opened read-only")

// File keeps the store image in a regular file. Reads come from an in-memory
// copy; each write hits the file and is synced before returning.
type File struct {
	mu       sync.Mutex
	f        *os.File
	image    []byte
	readOnly bool
}

// OpenFile opens or creates path holding exactly size bytes. A shorter file is
// extended with zeros; a longer one is read up to size.
func OpenFile(path string, size int) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening store file: %w", err)
	}

	image := make([]byte, size)
	n, err := f.ReadAt(image, 0)
	if err != nil && err != io.EOF {
		f.Close()
		return nil, fmt.Errorf("reading store file: %w", err)
	}
	if n < size {
		if _, err := f.WriteAt(image[n:], int64(n)); err != nil {
			f.Close()
			return nil, fmt.Errorf("extending store file: %w", err)
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return nil, fmt.Errorf("syncing store file: %w", err)
		}
	}

	return &File{f: f, image: image}, nil
}

// OpenFileReadOnly opens an existing image without write access. The file
// must hold exactly size bytes.
func OpenFileReadOnly(path string, size int) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening store file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading store file: %w", err)
	}
	if info.Size() != int64(size) {
		f.Close()
		return nil, fmt.Errorf("store file %s holds %d bytes, want %d", path, info.Size(), size)
	}

	image := make([]byte, size)
	if _, err := io.ReadFull(f, image); err != nil {
		f.Close()
		return nil, fmt.Errorf("reading store file: %w", err)
	}
	return &File{f: f, image: image, readOnly: true}, nil
}

func (s *File) Size() int64 { return int64(len(s.image)) }

func (s *File) ReadAt(p []byte, off int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkRange(off, len(p), s.Size()); err != nil {
		return 0, err
	}
	return copy(p, s.image[off:]), nil
}

func (s *File) WriteAt(p []byte, off int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readOnly {
		return 0, ErrReadOnly
	}
	if err := checkRange(off, len(p), s.Size()); err != nil {
		return 0, err
	}
	n, err := s.f.WriteAt(p, off)
	if err != nil {
		return n, fmt.Errorf("writing store file: %w", err)
	}
	if err := s.f.Sync(); err != nil {
		return n, fmt.Errorf("syncing store file: %w", err)
	}
	copy(s.image[off:], p)
	return n, nil
}

func (s *File) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}
