package reader

import (
	"math"

	"github.com/arloliu/mmv/format"
	"github.com/arloliu/mmv/section"
)

// Metric is a metric descriptor read from the file. ShortText and HelpText
// are nil when the writer supplied no text.
type Metric struct {
	Name      string
	Item      uint32
	Type      format.ValueType
	Semantics format.Semantics
	Units     section.Units
	Indom     uint32
	ShortText *string
	HelpText  *string
}

// Instance is one member of an instance domain.
type Instance struct {
	Internal int32
	External string
}

// Indom is an instance domain with its instances in file order.
type Indom struct {
	Serial    uint32
	Instances []Instance
	ShortText *string
	HelpText  *string
}

// Label is a label record. Payload is the raw JSON object.
type Label struct {
	Type     format.LabelType
	Identity uint32
	Internal int32
	Payload  string
}

// Value locates one value slot.
type Value struct {
	Metric   string
	Item     uint32
	Type     format.ValueType
	Instance string
	Internal int32
	Singular bool
	// Offset is the file offset of the value record.
	Offset uint64

	metric int
}

// Sample is the content of a value slot at the time it was read.
type Sample struct {
	Type format.ValueType
	// Word is the raw value word. For elapsed metrics with an open interval
	// it includes the time elapsed so far.
	Word uint64
	// Text is set for string metrics.
	Text string
}

// Float64 converts a numeric sample. Strings yield NaN.
func (s Sample) Float64() float64 {
	if s.Type == format.TypeString {
		return math.NaN()
	}

	return section.DecodeFloat64(s.Type, s.Word)
}

// Int64 returns the word as a signed integer, sign extending i32 values.
func (s Sample) Int64() int64 {
	if s.Type == format.TypeI32 {
		return int64(int32(uint32(s.Word))) //nolint:gosec
	}

	return int64(s.Word) //nolint:gosec
}

// Uint64 returns the word as an unsigned integer, truncating u32 values.
func (s Sample) Uint64() uint64 {
	if s.Type == format.TypeU32 {
		return uint64(uint32(s.Word)) //nolint:gosec
	}

	return s.Word
}
