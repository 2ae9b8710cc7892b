//go:build !unix

package mmap

import (
	"os"

	"github.com/arloliu/mmv/errs"
)

// Region is unavailable on platforms without mmap(2).
type Region struct{}

func Create(string, int, os.FileMode) (*Region, error) { return nil, errs.ErrUnsupportedPlatform }

func Open(string) (*Region, error) { return nil, errs.ErrUnsupportedPlatform }

func (r *Region) Bytes() []byte { return nil }

func (r *Region) Len() int { return 0 }

func (r *Region) Path() string { return "" }

func (r *Region) Resize(int) error { return errs.ErrUnsupportedPlatform }

func (r *Region) Remap() (bool, error) { return false, errs.ErrUnsupportedPlatform }

func (r *Region) FileSize() (int64, error) { return 0, errs.ErrUnsupportedPlatform }

func (r *Region) Detached() bool { return true }

func (r *Region) Sync() error { return nil }

func (r *Region) Close() error { return nil }
