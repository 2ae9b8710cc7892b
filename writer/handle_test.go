package writer

import (
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/mmv/errs"
)

func TestHandle_Setters(t *testing.T) {
	w := startWriter(t, newRegistry(t))
	lookup := func(metric, instance string) Handle {
		h, err := w.Lookup(metric, instance)
		require.NoError(t, err)

		return h
	}

	t.Run("u64", func(t *testing.T) {
		h := lookup("simple.counter", "")
		require.NoError(t, h.SetUint64(math.MaxUint64))
		word, err := h.Word()
		require.NoError(t, err)
		require.Equal(t, uint64(math.MaxUint64), word)
		require.ErrorIs(t, h.SetInt64(1), errs.ErrValueTypeMismatch)
	})

	t.Run("u32", func(t *testing.T) {
		h := lookup("u32", "")
		require.NoError(t, h.SetUint32(math.MaxUint32))
		require.NoError(t, h.Inc(2))
		word, err := h.Word()
		require.NoError(t, err)
		require.Equal(t, uint64(1), word)
	})

	t.Run("i32 sign extended", func(t *testing.T) {
		h := lookup("per.inst", "a")
		require.NoError(t, h.SetInt32(-1))
		word, err := h.Word()
		require.NoError(t, err)
		require.Equal(t, uint64(math.MaxUint64), word)

		require.NoError(t, h.SetInt32(math.MaxInt32))
		require.NoError(t, h.Inc(1))
		v, err := h.Float64()
		require.NoError(t, err)
		require.InDelta(t, float64(math.MinInt32), v, 0)
	})

	t.Run("i64", func(t *testing.T) {
		h := lookup("i64", "")
		require.NoError(t, h.SetInt64(-1234567890123))
		v, err := h.Float64()
		require.NoError(t, err)
		require.InDelta(t, -1234567890123.0, v, 0)
	})

	t.Run("float", func(t *testing.T) {
		h := lookup("float", "")
		require.NoError(t, h.SetFloat32(1.5))
		require.NoError(t, h.Add(0.25))
		word, err := h.Word()
		require.NoError(t, err)
		require.Equal(t, uint64(math.Float32bits(1.75)), word)
		require.ErrorIs(t, h.SetUint64(1), errs.ErrValueTypeMismatch)
	})

	t.Run("double", func(t *testing.T) {
		h := lookup("double", "")
		require.NoError(t, h.SetFloat64(math.Pi))
		require.NoError(t, h.Inc(1))
		v, err := h.Float64()
		require.NoError(t, err)
		require.InDelta(t, math.Pi+1, v, 1e-12)
	})

	t.Run("string", func(t *testing.T) {
		h := lookup("status", "")
		require.NoError(t, h.SetString("running"))
		require.NoError(t, h.SetString("up"))
		text, err := h.Text()
		require.NoError(t, err)
		require.Equal(t, "up", text)

		require.ErrorIs(t, h.SetString(strings.Repeat("x", 256)), errs.ErrTextTooLong)
		require.ErrorIs(t, h.Inc(1), errs.ErrValueTypeMismatch)
		_, err = h.Float64()
		require.ErrorIs(t, err, errs.ErrValueTypeMismatch)
	})

	t.Run("zero handle", func(t *testing.T) {
		var h Handle
		require.False(t, h.Valid())
		require.ErrorIs(t, h.SetUint64(1), errs.ErrValueTypeMismatch)
		_, err := h.Word()
		require.ErrorIs(t, err, errs.ErrUnknownSlot)
	})
}

func TestHandle_Interval(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_000, 0)}
	w := startWriter(t, newRegistry(t), WithClock(clock.Now))

	h, err := w.Lookup("busy", "")
	require.NoError(t, err)

	require.ErrorIs(t, h.IntervalEnd(), errs.ErrIntervalNotOpen)

	require.NoError(t, h.IntervalStart())
	clock.Advance(1500 * time.Microsecond)
	require.NoError(t, h.IntervalEnd())

	word, err := h.Word()
	require.NoError(t, err)
	require.Equal(t, uint64(1500), word)

	require.NoError(t, h.IntervalStart())
	clock.Advance(time.Millisecond)
	require.NoError(t, h.IntervalEnd())
	word, err = h.Word()
	require.NoError(t, err)
	require.Equal(t, uint64(2500), word)

	require.ErrorIs(t, h.IntervalEnd(), errs.ErrIntervalNotOpen)

	other, err := w.Lookup("simple.counter", "")
	require.NoError(t, err)
	require.ErrorIs(t, other.IntervalStart(), errs.ErrValueTypeMismatch)
}

func TestHandle_ConcurrentInc(t *testing.T) {
	w := startWriter(t, newRegistry(t))
	h, err := w.Lookup("simple.counter", "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 1000 {
				_ = h.Inc(1)
			}
		}()
	}
	wg.Wait()

	word, err := h.Word()
	require.NoError(t, err)
	require.Equal(t, uint64(8000), word)
}

func BenchmarkHandle_Inc(b *testing.B) {
	reg := newRegistry(b)
	w, err := Start(reg, quiet, WithPath(b.TempDir()+"/bench"))
	require.NoError(b, err)
	defer func() { _ = w.Stop(true) }()

	h, err := w.Lookup("simple.counter", "")
	require.NoError(b, err)

	b.ResetTimer()
	for b.Loop() {
		_ = h.Inc(1)
	}
}
