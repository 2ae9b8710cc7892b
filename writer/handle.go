package writer

import (
	"fmt"
	"math"

	"github.com/arloliu/mmv/endian"
	"github.com/arloliu/mmv/errs"
	"github.com/arloliu/mmv/format"
	"github.com/arloliu/mmv/internal/mmap"
	"github.com/arloliu/mmv/registry"
	"github.com/arloliu/mmv/section"
)

// Handle updates one value slot. It is resolved once by Writer.Lookup and
// stays valid for the life of the writer, across AddInstance.
type Handle struct {
	w        *Writer
	slot     int
	metric   string
	instance string
	typ      format.ValueType
}

// Metric returns the metric name the handle was resolved for.
func (h Handle) Metric() string { return h.metric }

// Instance returns the instance name, empty for singular metrics.
func (h Handle) Instance() string { return h.instance }

// Type returns the value type of the slot.
func (h Handle) Type() format.ValueType { return h.typ }

// Valid reports whether h was obtained from a writer.
func (h Handle) Valid() bool { return h.w != nil }

// update runs fn against the live mapping under the writer's read lock.
func (h Handle) update(fn func(data []byte, s registry.Slot, engine endian.EndianEngine) error) error {
	if h.w == nil {
		return errs.ErrUnknownSlot
	}
	h.w.mu.RLock()
	defer h.w.mu.RUnlock()

	if h.w.stopped {
		return errs.ErrWriterStopped
	}

	return fn(h.w.region.Bytes(), h.w.layout.Slots[h.slot], h.w.engine)
}

func (h Handle) mismatch(op string) error {
	return fmt.Errorf("%w: %s on %s metric %q", errs.ErrValueTypeMismatch, op, h.typ, h.metric)
}

func (h Handle) store(word uint64) error {
	return h.update(func(data []byte, s registry.Slot, engine endian.EndianEngine) error {
		mmap.Store64(data, s.Offset+section.OffValueWord, engine, word)
		return nil
	})
}

// SetUint64 stores v into a u64 or u32 slot. u32 slots keep the low 32 bits.
func (h Handle) SetUint64(v uint64) error {
	if h.typ != format.TypeU64 && h.typ != format.TypeU32 {
		return h.mismatch("SetUint64")
	}

	return h.store(section.EncodeUint64(h.typ, v))
}

func (h Handle) SetUint32(v uint32) error {
	return h.SetUint64(uint64(v))
}

// SetInt64 stores v into an i64, i32 or elapsed slot.
func (h Handle) SetInt64(v int64) error {
	if h.typ != format.TypeI64 && h.typ != format.TypeI32 && h.typ != format.TypeElapsed {
		return h.mismatch("SetInt64")
	}

	return h.store(section.EncodeInt64(h.typ, v))
}

func (h Handle) SetInt32(v int32) error {
	return h.SetInt64(int64(v))
}

// SetFloat64 stores v into a double or float slot.
func (h Handle) SetFloat64(v float64) error {
	if h.typ != format.TypeDouble && h.typ != format.TypeFloat {
		return h.mismatch("SetFloat64")
	}

	return h.store(section.EncodeFloat64(h.typ, v))
}

func (h Handle) SetFloat32(v float32) error {
	return h.SetFloat64(float64(v))
}

// Inc atomically adds delta to a numeric slot. 32-bit integers wrap within
// 32 bits.
func (h Handle) Inc(delta uint64) error {
	var fn func(uint64) uint64
	switch h.typ {
	case format.TypeU64, format.TypeI64, format.TypeElapsed:
	case format.TypeU32:
		fn = func(w uint64) uint64 { return uint64(uint32(w) + uint32(delta)) } //nolint:gosec
	case format.TypeI32:
		fn = func(w uint64) uint64 {
			return section.EncodeInt64(format.TypeI32, int64(int32(uint32(w)+uint32(delta)))) //nolint:gosec
		}
	case format.TypeFloat, format.TypeDouble:
		fn = func(w uint64) uint64 {
			return section.EncodeFloat64(h.typ, section.DecodeFloat64(h.typ, w)+float64(delta))
		}
	default:
		return h.mismatch("Inc")
	}

	return h.update(func(data []byte, s registry.Slot, engine endian.EndianEngine) error {
		off := s.Offset + section.OffValueWord
		if fn == nil {
			mmap.Add64(data, off, engine, delta)
		} else {
			mmap.Update64(data, off, engine, fn)
		}

		return nil
	})
}

// Add atomically adds v to a double or float slot.
func (h Handle) Add(v float64) error {
	if h.typ != format.TypeDouble && h.typ != format.TypeFloat {
		return h.mismatch("Add")
	}

	return h.update(func(data []byte, s registry.Slot, engine endian.EndianEngine) error {
		mmap.Update64(data, s.Offset+section.OffValueWord, engine, func(w uint64) uint64 {
			return section.EncodeFloat64(h.typ, section.DecodeFloat64(h.typ, w)+v)
		})

		return nil
	})
}

// SetString replaces the contents of a string slot. Readers may observe a
// partially written string; the length is bounded by the slot size.
func (h Handle) SetString(v string) error {
	if h.typ != format.TypeString {
		return h.mismatch("SetString")
	}
	if len(v) > section.StringMax {
		return fmt.Errorf("%w: %d bytes for %q", errs.ErrTextTooLong, len(v), h.metric)
	}

	return h.update(func(data []byte, s registry.Slot, _ endian.EndianEngine) error {
		return section.PutString(data[s.StringOffset:s.StringOffset+section.StringSize], v)
	})
}

// IntervalStart opens an elapsed-time interval. While it is open, the slot's
// extra field holds the negated start time in microseconds and readers add
// the time elapsed so far. Starting an open interval restarts it.
func (h Handle) IntervalStart() error {
	if h.typ != format.TypeElapsed {
		return h.mismatch("IntervalStart")
	}
	start := h.w.now().UnixMicro()

	return h.update(func(data []byte, s registry.Slot, engine endian.EndianEngine) error {
		mmap.Store64(data, s.Offset+section.OffValueExtra, engine, uint64(-start)) //nolint:gosec
		return nil
	})
}

// IntervalEnd closes the open interval and adds its length in microseconds
// to the slot's value.
func (h Handle) IntervalEnd() error {
	if h.typ != format.TypeElapsed {
		return h.mismatch("IntervalEnd")
	}
	now := h.w.now().UnixMicro()

	return h.update(func(data []byte, s registry.Slot, engine endian.EndianEngine) error {
		off := s.Offset + section.OffValueExtra
		extra := int64(mmap.Load64(data, off, engine)) //nolint:gosec
		if extra >= 0 {
			return fmt.Errorf("%w: %q", errs.ErrIntervalNotOpen, h.metric)
		}
		mmap.Add64(data, s.Offset+section.OffValueWord, engine, uint64(now+extra)) //nolint:gosec
		mmap.Store64(data, off, engine, 0)

		return nil
	})
}

// Word returns the raw 64-bit value word.
func (h Handle) Word() (uint64, error) {
	var word uint64
	err := h.update(func(data []byte, s registry.Slot, engine endian.EndianEngine) error {
		word = mmap.Load64(data, s.Offset+section.OffValueWord, engine)
		return nil
	})

	return word, err
}

// Float64 returns the current value of a numeric slot converted to float64.
func (h Handle) Float64() (float64, error) {
	if !h.typ.Numeric() {
		return math.NaN(), h.mismatch("Float64")
	}
	word, err := h.Word()
	if err != nil {
		return math.NaN(), err
	}

	return section.DecodeFloat64(h.typ, word), nil
}

// Text returns the current contents of a string slot.
func (h Handle) Text() (string, error) {
	if h.typ != format.TypeString {
		return "", h.mismatch("Text")
	}
	var text string
	err := h.update(func(data []byte, s registry.Slot, _ endian.EndianEngine) error {
		text = section.CString(data[s.StringOffset : s.StringOffset+section.StringSize])
		return nil
	})

	return text, err
}
