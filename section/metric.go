package section

import (
	"github.com/arloliu/mmv/endian"
	"github.com/arloliu/mmv/errs"
	"github.com/arloliu/mmv/format"
)

// MetricEntry is a metric descriptor record.
//
// Version 1 records carry the name inline in a 64 byte field; version 2 and 3
// records reference a string slot instead. ShortText and HelpText are string
// slot offsets where zero means the text is absent.
type MetricEntry struct {
	Name       string // v1 only: inline name
	NameOffset uint64 // v2+: string slot holding the name
	Item       uint32
	Type       format.ValueType
	Semantics  format.Semantics
	Dimension  uint32
	Indom      uint32
	ShortText  uint64
	HelpText   uint64
}

// MetricSize returns the record size for version.
func MetricSize(version uint32) int {
	if version == Version1 {
		return MetricV1Size
	}

	return MetricV2Size
}

// WriteToSlice writes the entry at offset using the record layout of version
// and returns the next position.
func (m MetricEntry) WriteToSlice(data []byte, offset int, version uint32, engine endian.EndianEngine) (int, error) {
	b := data[offset : offset+MetricSize(version)]
	pos := 8
	if version == Version1 {
		if err := PutString(b[0:NameMax], m.Name); err != nil {
			return offset, err
		}
		pos = NameMax
	} else {
		engine.PutUint64(b[0:8], m.NameOffset)
	}

	engine.PutUint32(b[pos:], m.Item)
	engine.PutUint32(b[pos+4:], uint32(m.Type)) //nolint:gosec
	engine.PutUint32(b[pos+8:], uint32(m.Semantics))
	engine.PutUint32(b[pos+12:], m.Dimension)
	engine.PutUint32(b[pos+16:], m.Indom)
	engine.PutUint32(b[pos+20:], 0)
	engine.PutUint64(b[pos+24:], m.ShortText)
	engine.PutUint64(b[pos+32:], m.HelpText)

	return offset + len(b), nil
}

// ParseMetricEntry decodes one metric record of the given version.
func ParseMetricEntry(data []byte, version uint32, engine endian.EndianEngine) (MetricEntry, error) {
	size := MetricSize(version)
	if len(data) < size {
		return MetricEntry{}, errs.ErrOffsetOutOfRange
	}

	var m MetricEntry
	pos := 8
	if version == Version1 {
		m.Name = CString(data[0:NameMax])
		pos = NameMax
	} else {
		m.NameOffset = engine.Uint64(data[0:8])
	}
	m.Item = engine.Uint32(data[pos:])
	m.Type = format.ValueType(int32(engine.Uint32(data[pos+4:])))      //nolint:gosec
	m.Semantics = format.Semantics(int32(engine.Uint32(data[pos+8:]))) //nolint:gosec
	m.Dimension = engine.Uint32(data[pos+12:])
	m.Indom = engine.Uint32(data[pos+16:])
	m.ShortText = engine.Uint64(data[pos+24:])
	m.HelpText = engine.Uint64(data[pos+32:])

	return m, nil
}
