package pool

import (
	"testing"

	"github.com/arloliu/mmv/errs"
	"github.com/stretchr/testify/require"
)

func TestPinPool_Bounds(t *testing.T) {
	const size = 128

	p := NewPinPool(nil)

	t.Run("one byte before the region", func(t *testing.T) {
		b, err := p.Pin(size)
		require.NoError(t, err)
		defer func() { require.NoError(t, p.Unpin(AddrOf(b, 0))) }()

		require.ErrorIs(t, p.Unpin(AddrOf(b, 0)-1), errs.ErrNotPinned)
		require.Equal(t, 1, p.Pinned())
	})

	t.Run("one byte after the region", func(t *testing.T) {
		b, err := p.Pin(size)
		require.NoError(t, err)
		defer func() { require.NoError(t, p.Unpin(AddrOf(b, 0))) }()

		require.ErrorIs(t, p.Unpin(AddrOf(b, size-1)+1), errs.ErrNotPinned)
		require.Equal(t, 1, p.Pinned())
	})

	t.Run("first byte succeeds once", func(t *testing.T) {
		b, err := p.Pin(size)
		require.NoError(t, err)

		first := AddrOf(b, 0)
		require.NoError(t, p.Unpin(first))
		require.ErrorIs(t, p.Unpin(first), errs.ErrNotPinned)
		require.Zero(t, p.Pinned())
	})

	t.Run("last byte succeeds once", func(t *testing.T) {
		b, err := p.Pin(size)
		require.NoError(t, err)

		last := AddrOf(b, size-1)
		require.NoError(t, p.Unpin(last))
		require.ErrorIs(t, p.Unpin(last), errs.ErrNotPinned)
		require.Zero(t, p.Pinned())
	})

	t.Run("interior byte", func(t *testing.T) {
		b, err := p.Pin(size)
		require.NoError(t, err)
		require.NoError(t, p.Unpin(AddrOf(b, size/2)))
	})
}

func TestPinPool_MultipleRegions(t *testing.T) {
	p := NewPinPool(NewByteBufferPool(16, 0))

	regions := make([][]byte, 5)
	for i := range regions {
		b, err := p.Pin(32 + i)
		require.NoError(t, err)
		require.Len(t, b, 32+i)
		for _, c := range b {
			require.Zero(t, c)
		}
		regions[i] = b
	}
	require.Equal(t, 5, p.Pinned())

	for i := len(regions) - 1; i >= 0; i-- {
		require.NoError(t, p.Unpin(AddrOf(regions[i], len(regions[i])-1)))
	}
	require.Zero(t, p.Pinned())
}

func TestPinPool_InvalidSize(t *testing.T) {
	_, err := NewPinPool(nil).Pin(0)
	require.Error(t, err)
}
