//go:build unix

package mmap

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/arloliu/mmv/errs"
)

// Region is a shared file mapping.
type Region struct {
	path     string
	f        *os.File
	data     []byte
	writable bool
	dev, ino uint64
}

// Create creates or truncates path to exactly size bytes and maps it
// read-write. The file is zero filled by the truncate.
func Create(path string, size int, perm os.FileMode) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("mmap: invalid size %d", size)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	r := &Region{path: path, f: f, writable: true}
	if err := r.resize(size); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := r.identify(); err != nil {
		_ = r.Close()
		return nil, err
	}

	return r, nil
}

// Open maps an existing file read-only at its current size.
func Open(path string) (*Region, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	r := &Region{path: path, f: f}
	if err := r.identify(); err != nil {
		_ = f.Close()
		return nil, err
	}
	size, err := r.FileSize()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if size == 0 {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s is empty", errs.ErrInvalidHeaderSize, path)
	}
	if err := r.mapFile(int(size)); err != nil {
		_ = f.Close()
		return nil, err
	}

	return r, nil
}

// Bytes returns the mapped memory. The slice is invalidated by Resize, Remap and Close.
func (r *Region) Bytes() []byte {
	return r.data
}

func (r *Region) Len() int {
	return len(r.data)
}

func (r *Region) Path() string {
	return r.path
}

// Resize changes the backing file to size bytes and remaps it. Only writable
// regions can be resized.
func (r *Region) Resize(size int) error {
	if !r.writable {
		return fmt.Errorf("mmap: resize of read-only mapping %s", r.path)
	}

	return r.resize(size)
}

func (r *Region) resize(size int) error {
	if err := unix.Ftruncate(int(r.f.Fd()), int64(size)); err != nil {
		return fmt.Errorf("ftruncate %s to %d: %w", r.path, size, err)
	}
	got, err := r.FileSize()
	if err != nil {
		return err
	}
	if got != int64(size) {
		return fmt.Errorf("%w: %s is %d bytes, want %d", errs.ErrShortTruncate, r.path, got, size)
	}

	return r.mapFile(size)
}

// Remap maps the file again if its size differs from the current mapping.
// It reports whether a new mapping was established.
func (r *Region) Remap() (bool, error) {
	size, err := r.FileSize()
	if err != nil {
		return false, err
	}
	if int(size) == len(r.data) {
		return false, nil
	}
	if size == 0 {
		return false, fmt.Errorf("%w: %s truncated", errs.ErrMappingGone, r.path)
	}

	return true, r.mapFile(int(size))
}

func (r *Region) mapFile(size int) error {
	if r.data != nil {
		if err := unix.Munmap(r.data); err != nil {
			return fmt.Errorf("munmap %s: %w", r.path, err)
		}
		r.data = nil
	}

	prot := unix.PROT_READ
	if r.writable {
		prot |= unix.PROT_WRITE
	}
	data, err := unix.Mmap(int(r.f.Fd()), 0, size, prot, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("mmap %s: %w", r.path, err)
	}
	r.data = data

	return nil
}

// FileSize returns the current size of the backing file.
func (r *Region) FileSize() (int64, error) {
	var st unix.Stat_t
	if err := unix.Fstat(int(r.f.Fd()), &st); err != nil {
		return 0, fmt.Errorf("fstat %s: %w", r.path, err)
	}

	return st.Size, nil
}

func (r *Region) identify() error {
	var st unix.Stat_t
	if err := unix.Fstat(int(r.f.Fd()), &st); err != nil {
		return fmt.Errorf("fstat %s: %w", r.path, err)
	}
	r.dev, r.ino = uint64(st.Dev), st.Ino //nolint:unconvert

	return nil
}

// Detached reports whether the path no longer names the mapped file, either
// because it was unlinked or because a new file was created in its place.
func (r *Region) Detached() bool {
	var st unix.Stat_t
	if err := unix.Stat(r.path, &st); err != nil {
		return true
	}

	return uint64(st.Dev) != r.dev || st.Ino != r.ino //nolint:unconvert
}

// Sync flushes the mapping to the backing file.
func (r *Region) Sync() error {
	if r.data == nil || !r.writable {
		return nil
	}
	if err := unix.Msync(r.data, unix.MS_SYNC); err != nil {
		return fmt.Errorf("msync %s: %w", r.path, err)
	}

	return nil
}

// Close unmaps the region and closes the file. It is safe to call twice.
func (r *Region) Close() error {
	var firstErr error
	if r.data != nil {
		if err := unix.Munmap(r.data); err != nil {
			firstErr = fmt.Errorf("munmap %s: %w", r.path, err)
		}
		r.data = nil
	}
	if r.f != nil {
		if err := r.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		r.f = nil
	}

	return firstErr
}
