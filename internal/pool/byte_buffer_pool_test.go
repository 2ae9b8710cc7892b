package pool

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestByteBuffer(t *testing.T) {
	bb := NewByteBuffer(16)
	require.Zero(t, bb.Len())
	require.Equal(t, 16, bb.Cap())

	n, err := bb.Write([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, []byte("hello"), bb.Bytes())

	var out bytes.Buffer
	written, err := bb.WriteTo(&out)
	require.NoError(t, err)
	require.Equal(t, int64(5), written)
	require.Equal(t, "hello", out.String())

	bb.Reset()
	require.Zero(t, bb.Len())
	require.Equal(t, 16, bb.Cap())
}

func TestByteBuffer_Grow(t *testing.T) {
	t.Run("small buffer grows by default size", func(t *testing.T) {
		bb := NewByteBuffer(8)
		bb.Grow(9)
		require.Equal(t, ImageBufferDefaultSize, bb.Cap())
	})

	t.Run("large request honored", func(t *testing.T) {
		bb := NewByteBuffer(8)
		bb.Grow(ImageBufferDefaultSize * 2)
		require.GreaterOrEqual(t, bb.Cap(), ImageBufferDefaultSize*2)
	})

	t.Run("no growth when capacity suffices", func(t *testing.T) {
		bb := NewByteBuffer(64)
		bb.Grow(64)
		require.Equal(t, 64, bb.Cap())
	})

	t.Run("set length preserves content", func(t *testing.T) {
		bb := NewByteBuffer(4)
		_, _ = bb.Write([]byte("abcd"))
		bb.SetLength(100)
		require.Equal(t, 100, bb.Len())
		require.Equal(t, []byte("abcd"), bb.B[:4])
	})
}

func TestByteBufferPool(t *testing.T) {
	p := NewByteBufferPool(32, 64)

	bb := p.Get()
	require.NotNil(t, bb)
	_, _ = bb.Write([]byte("data"))
	p.Put(bb)

	again := p.Get()
	require.Zero(t, again.Len())

	p.Put(nil)
	p.Put(NewByteBuffer(128)) // above threshold, dropped
}

func TestImageBufferPool_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				bb := GetImageBuffer()
				_, _ = bb.Write([]byte("x"))
				PutImageBuffer(bb)
			}
		}()
	}
	wg.Wait()
}
