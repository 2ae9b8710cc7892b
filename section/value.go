package section

import (
	"math"

	"github.com/arloliu/mmv/endian"
	"github.com/arloliu/mmv/errs"
	"github.com/arloliu/mmv/format"
)

// ValueEntry is a value slot record.
//
// Every numeric value occupies the full 64-bit Word regardless of its type:
// 32-bit integers are sign or zero extended and floats keep their IEEE bits in
// the low half. That keeps the steady state update a single 64-bit store.
type ValueEntry struct {
	Word     uint64 // byte offset 0-7
	Extra    int64  // byte offset 8-15
	Metric   uint64 // byte offset 16-23
	Instance uint64 // byte offset 24-31, zero for singular metrics
}

func (v ValueEntry) WriteToSlice(data []byte, offset int, engine endian.EndianEngine) int {
	b := data[offset : offset+ValueSize]
	engine.PutUint64(b[OffValueWord:], v.Word)
	engine.PutUint64(b[OffValueExtra:], uint64(v.Extra)) //nolint:gosec
	engine.PutUint64(b[offValueMeta:], v.Metric)
	engine.PutUint64(b[offValueInst:], v.Instance)

	return offset + ValueSize
}

func ParseValueEntry(data []byte, engine endian.EndianEngine) (ValueEntry, error) {
	if len(data) < ValueSize {
		return ValueEntry{}, errs.ErrOffsetOutOfRange
	}

	return ValueEntry{
		Word:     engine.Uint64(data[OffValueWord:]),
		Extra:    int64(engine.Uint64(data[OffValueExtra:])), //nolint:gosec
		Metric:   engine.Uint64(data[offValueMeta:]),
		Instance: engine.Uint64(data[offValueInst:]),
	}, nil
}

// EncodeInt64 returns the word for a signed integer of type t.
func EncodeInt64(t format.ValueType, v int64) uint64 {
	if t == format.TypeI32 {
		return uint64(int64(int32(v))) //nolint:gosec
	}

	return uint64(v) //nolint:gosec
}

// EncodeUint64 returns the word for an unsigned integer of type t.
func EncodeUint64(t format.ValueType, v uint64) uint64 {
	if t == format.TypeU32 {
		return uint64(uint32(v)) //nolint:gosec
	}

	return v
}

// EncodeFloat64 returns the word for a floating point value of type t.
func EncodeFloat64(t format.ValueType, v float64) uint64 {
	if t == format.TypeFloat {
		return uint64(math.Float32bits(float32(v)))
	}

	return math.Float64bits(v)
}

// DecodeFloat64 converts a word of any numeric type to float64.
func DecodeFloat64(t format.ValueType, w uint64) float64 {
	switch t {
	case format.TypeI32:
		return float64(int32(uint32(w))) //nolint:gosec
	case format.TypeU32:
		return float64(uint32(w)) //nolint:gosec
	case format.TypeI64, format.TypeElapsed:
		return float64(int64(w)) //nolint:gosec
	case format.TypeU64:
		return float64(w)
	case format.TypeFloat:
		return float64(math.Float32frombits(uint32(w))) //nolint:gosec
	case format.TypeDouble:
		return math.Float64frombits(w)
	default:
		return math.NaN()
	}
}
