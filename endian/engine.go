// Package endian provides the byte order engines used to encode MMV files.
//
// MMV files are not native struct overlays: every multi-byte field goes
// through an EndianEngine so that a file written on one architecture decodes
// identically on another. Writers default to little-endian; readers detect the
// order from the header version word (see section.DetectEngine).
//
// Shared-memory fields that are updated while readers are attached (the
// generation tokens and numeric value words) are stored with 64-bit atomic
// operations on the host. Those operations work in host byte order, so the
// helpers in this package convert an encoded value to and from the host
// representation of the same bytes.
//
// All functions are safe for concurrent use; engines are stateless.
package endian

import (
	"encoding/binary"
	"math/bits"
	"unsafe"
)

// EndianEngine combines ByteOrder and AppendByteOrder from encoding/binary.
// It is satisfied by binary.LittleEndian and binary.BigEndian.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// CheckEndianness uses a fixed integer value to determine the host's byte order.
func CheckEndianness() binary.ByteOrder {
	var i uint16 = 0x0100
	b := (*[2]byte)(unsafe.Pointer(&i))
	if b[0] == 0x01 {
		return binary.BigEndian
	}

	return binary.LittleEndian
}

func IsNativeLittleEndian() bool {
	return CheckEndianness() == binary.LittleEndian
}

func IsNativeBigEndian() bool {
	return CheckEndianness() == binary.BigEndian
}

// CompareNativeEndian reports whether engine matches the host byte order.
func CompareNativeEndian(engine EndianEngine) bool {
	return engine == CheckEndianness()
}

// GetLittleEndianEngine returns the little-endian engine.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

// GetBigEndianEngine returns the big-endian engine.
func GetBigEndianEngine() EndianEngine {
	return binary.BigEndian
}

// Other returns the engine with the opposite byte order.
func Other(engine EndianEngine) EndianEngine {
	if engine == GetLittleEndianEngine() {
		return GetBigEndianEngine()
	}

	return GetLittleEndianEngine()
}

// ToHost64 converts v, the logical value to be stored with engine, into the
// host integer whose in-memory bytes equal engine's encoding of v.
//
// Storing the result with an atomic host store produces the same bytes as
// engine.PutUint64.
func ToHost64(engine EndianEngine, v uint64) uint64 {
	if CompareNativeEndian(engine) {
		return v
	}

	return bits.ReverseBytes64(v)
}

// FromHost64 is the inverse of ToHost64: it converts a host word loaded from
// shared memory into the logical value encoded with engine.
func FromHost64(engine EndianEngine, v uint64) uint64 {
	return ToHost64(engine, v)
}
