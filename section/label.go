package section

import (
	"github.com/arloliu/mmv/endian"
	"github.com/arloliu/mmv/errs"
	"github.com/arloliu/mmv/format"
)

// LabelEntry is a label record (version 3 only).
//
// Identity is the indom serial, cluster or item the label applies to,
// depending on the kind in Flags. Internal selects an instance for
// LabelInstances labels. Payload is a JSON object of one name/value pair.
type LabelEntry struct {
	Flags    format.LabelType // byte offset 0-3
	Identity uint32           // byte offset 4-7
	Internal int32            // byte offset 8-11
	Payload  string           // byte offset 12-255
}

func (l LabelEntry) WriteToSlice(data []byte, offset int, engine endian.EndianEngine) (int, error) {
	b := data[offset : offset+LabelSize]
	engine.PutUint32(b[0:], uint32(l.Flags))
	engine.PutUint32(b[4:], l.Identity)
	engine.PutUint32(b[8:], uint32(l.Internal)) //nolint:gosec
	if err := PutString(b[12:], l.Payload); err != nil {
		return offset, err
	}

	return offset + LabelSize, nil
}

func ParseLabelEntry(data []byte, engine endian.EndianEngine) (LabelEntry, error) {
	if len(data) < LabelSize {
		return LabelEntry{}, errs.ErrOffsetOutOfRange
	}

	return LabelEntry{
		Flags:    format.LabelType(engine.Uint32(data[0:])),
		Identity: engine.Uint32(data[4:]),
		Internal: int32(engine.Uint32(data[8:])), //nolint:gosec
		Payload:  CString(data[12:LabelSize]),
	}, nil
}
