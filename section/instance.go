package section

import (
	"github.com/arloliu/mmv/endian"
	"github.com/arloliu/mmv/errs"
)

// InstanceEntry is an instance record. Version 1 stores External inline,
// later versions store ExternalOffset pointing at a string slot.
type InstanceEntry struct {
	Indom          uint64 // offset of the owning indom record
	Internal       int32
	External       string
	ExternalOffset uint64
}

// InstanceSize returns the record size for version.
func InstanceSize(version uint32) int {
	if version == Version1 {
		return InstanceV1Size
	}

	return InstanceV2Size
}

func (i InstanceEntry) WriteToSlice(data []byte, offset int, version uint32, engine endian.EndianEngine) (int, error) {
	b := data[offset : offset+InstanceSize(version)]
	engine.PutUint64(b[0:], i.Indom)
	engine.PutUint32(b[8:], 0)
	engine.PutUint32(b[12:], uint32(i.Internal)) //nolint:gosec
	if version == Version1 {
		if err := PutString(b[16:16+NameMax], i.External); err != nil {
			return offset, err
		}
	} else {
		engine.PutUint64(b[16:], i.ExternalOffset)
	}

	return offset + len(b), nil
}

func ParseInstanceEntry(data []byte, version uint32, engine endian.EndianEngine) (InstanceEntry, error) {
	if len(data) < InstanceSize(version) {
		return InstanceEntry{}, errs.ErrOffsetOutOfRange
	}

	i := InstanceEntry{
		Indom:    engine.Uint64(data[0:]),
		Internal: int32(engine.Uint32(data[12:])), //nolint:gosec
	}
	if version == Version1 {
		i.External = CString(data[16 : 16+NameMax])
	} else {
		i.ExternalOffset = engine.Uint64(data[16:])
	}

	return i, nil
}
