package section

import (
	"fmt"

	"github.com/arloliu/mmv/endian"
	"github.com/arloliu/mmv/errs"
	"github.com/arloliu/mmv/format"
)

// TocEntry locates a contiguous run of fixed-size records within the file.
type TocEntry struct {
	Type   format.TocType // byte offset 0-3
	Count  uint32         // byte offset 4-7
	Offset uint64         // byte offset 8-15
}

// RecordSize returns the size of one record of this entry's type for the
// given format version, or 0 if the type is unknown.
func (e TocEntry) RecordSize(version uint32) uint64 {
	switch e.Type {
	case format.TocIndoms:
		return IndomSize
	case format.TocInstances:
		return InstanceV1Size
	case format.TocInstances2:
		if version < Version2 {
			return 0
		}

		return InstanceV2Size
	case format.TocMetrics:
		return MetricV1Size
	case format.TocMetrics2:
		if version < Version2 {
			return 0
		}

		return MetricV2Size
	case format.TocValues:
		return ValueSize
	case format.TocStrings:
		return StringSize
	case format.TocLabels:
		if version < Version3 {
			return 0
		}

		return LabelSize
	default:
		return 0
	}
}

// InBounds reports whether size bytes starting at offset fit within limit.
// It never computes offset+size, so a corrupt offset cannot wrap around.
func InBounds(offset, size, limit uint64) bool {
	return offset <= limit && size <= limit-offset
}

// End returns the offset one past the last byte covered by the entry. It is
// only meaningful for entries that passed Validate.
func (e TocEntry) End(version uint32) uint64 {
	return e.Offset + uint64(e.Count)*e.RecordSize(version)
}

// Validate checks that the entry is of a known type and lies within size bytes.
func (e TocEntry) Validate(version uint32, size uint64) error {
	rs := e.RecordSize(version)
	if rs == 0 {
		return fmt.Errorf("%w: unknown region %s", errs.ErrInvalidTOC, e.Type)
	}
	if e.Count == 0 {
		return nil
	}
	if e.Offset < HeaderSize || e.Offset%alignment != 0 {
		return fmt.Errorf("%w: %s offset %d", errs.ErrInvalidTOC, e.Type, e.Offset)
	}
	if !InBounds(e.Offset, uint64(e.Count)*rs, size) {
		return fmt.Errorf("%w: %s region of %d records at %d exceeds %d bytes",
			errs.ErrOffsetOutOfRange, e.Type, e.Count, e.Offset, size)
	}

	return nil
}

// WriteToSlice writes the entry at offset and returns the next position.
func (e TocEntry) WriteToSlice(data []byte, offset int, engine endian.EndianEngine) int {
	engine.PutUint32(data[offset:], uint32(e.Type))
	engine.PutUint32(data[offset+4:], e.Count)
	engine.PutUint64(data[offset+8:], e.Offset)

	return offset + TocEntrySize
}

// ParseTocEntry decodes one entry from data.
func ParseTocEntry(data []byte, engine endian.EndianEngine) (TocEntry, error) {
	if len(data) < TocEntrySize {
		return TocEntry{}, errs.ErrInvalidTOC
	}

	return TocEntry{
		Type:   format.TocType(engine.Uint32(data[0:4])),
		Count:  engine.Uint32(data[4:8]),
		Offset: engine.Uint64(data[8:16]),
	}, nil
}
