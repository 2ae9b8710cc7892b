//go:build unix

package mmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arloliu/mmv/endian"
	"github.com/stretchr/testify/require"
)

func TestCreateAndOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "region")

	w, err := Create(path, 4096, 0o644)
	require.NoError(t, err)
	defer w.Close()

	require.Equal(t, 4096, w.Len())
	for _, b := range w.Bytes() {
		require.Zero(t, b)
	}

	engine := endian.GetLittleEndianEngine()
	Store64(w.Bytes(), 8, engine, 0xdeadbeef)

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, uint64(0xdeadbeef), Load64(r.Bytes(), 8, engine))
	require.False(t, r.Detached())
}

func TestResizeAndRemap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "region")

	w, err := Create(path, 4096, 0o644)
	require.NoError(t, err)
	defer w.Close()

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	remapped, err := r.Remap()
	require.NoError(t, err)
	require.False(t, remapped)

	require.NoError(t, w.Resize(8192))
	require.Equal(t, 8192, w.Len())

	remapped, err = r.Remap()
	require.NoError(t, err)
	require.True(t, remapped)
	require.Equal(t, 8192, r.Len())

	require.Error(t, r.Resize(1))
}

func TestDetached(t *testing.T) {
	path := filepath.Join(t.TempDir(), "region")

	w, err := Create(path, 64, 0o644)
	require.NoError(t, err)
	defer w.Close()
	require.False(t, w.Detached())

	require.NoError(t, os.Remove(path))
	require.True(t, w.Detached())
}

func TestCloseTwice(t *testing.T) {
	w, err := Create(filepath.Join(t.TempDir(), "region"), 64, 0o644)
	require.NoError(t, err)
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
