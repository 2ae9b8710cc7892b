package hash

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestID(t *testing.T) {
	tests := []struct {
		name string
		data string
		id   uint64
	}{
		{"empty string", "", 0xef46db3751d8e999},
		{"short string", "test", 0x4fdcca5ddb678139},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.id, ID(tt.data))
		})
	}
}

func TestIndex(t *testing.T) {
	x := NewIndex(4)

	require.True(t, x.Add("simple.counter", 0))
	require.True(t, x.Add("simple.gauge", 1))
	require.False(t, x.Add("simple.counter", 2))
	require.Equal(t, 2, x.Len())

	pos, ok := x.Get("simple.gauge")
	require.True(t, ok)
	require.Equal(t, 1, pos)

	_, ok = x.Get("missing")
	require.False(t, ok)

	x.Reset()
	require.Zero(t, x.Len())
	_, ok = x.Get("simple.counter")
	require.False(t, ok)
}

func TestIndex_CollidingBucket(t *testing.T) {
	x := NewIndex(1)
	h := ID("a")
	// Force two names into one bucket to exercise chaining.
	x.buckets[h] = append(x.buckets[h], entry{name: "b", pos: 9})
	x.count++
	require.True(t, x.Add("a", 1))

	pos, ok := x.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, pos)
	require.Len(t, x.buckets[h], 2)
}

func BenchmarkIndexGet(b *testing.B) {
	x := NewIndex(1000)
	for i := range 1000 {
		x.Add(fmt.Sprintf("metric.%d", i), i)
	}
	b.ResetTimer()
	for b.Loop() {
		x.Get("metric.500")
	}
}
