package section

import (
	"github.com/arloliu/mmv/endian"
	"github.com/arloliu/mmv/errs"
)

// IndomEntry is an instance domain record.
type IndomEntry struct {
	Serial    uint32 // byte offset 0-3
	Count     uint32 // byte offset 4-7
	Offset    uint64 // byte offset 8-15, first instance record
	ShortText uint64 // byte offset 16-23
	HelpText  uint64 // byte offset 24-31
}

func (d IndomEntry) WriteToSlice(data []byte, offset int, engine endian.EndianEngine) int {
	b := data[offset : offset+IndomSize]
	engine.PutUint32(b[0:], d.Serial)
	engine.PutUint32(b[4:], d.Count)
	engine.PutUint64(b[8:], d.Offset)
	engine.PutUint64(b[16:], d.ShortText)
	engine.PutUint64(b[24:], d.HelpText)

	return offset + IndomSize
}

func ParseIndomEntry(data []byte, engine endian.EndianEngine) (IndomEntry, error) {
	if len(data) < IndomSize {
		return IndomEntry{}, errs.ErrOffsetOutOfRange
	}

	return IndomEntry{
		Serial:    engine.Uint32(data[0:]),
		Count:     engine.Uint32(data[4:]),
		Offset:    engine.Uint64(data[8:]),
		ShortText: engine.Uint64(data[16:]),
		HelpText:  engine.Uint64(data[24:]),
	}, nil
}
