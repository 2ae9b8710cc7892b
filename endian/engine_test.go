package endian

import (
	"encoding/binary"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestCheckEndianness(t *testing.T) {
	var word uint16 = 0x0102
	b := (*[2]byte)(unsafe.Pointer(&word))

	switch b[0] {
	case 0x01:
		require.Equal(t, binary.BigEndian, CheckEndianness())
		require.True(t, IsNativeBigEndian())
	case 0x02:
		require.Equal(t, binary.LittleEndian, CheckEndianness())
		require.True(t, IsNativeLittleEndian())
	default:
		require.Failf(t, "unexpected byte value", "got: %v", b[0])
	}
}

func TestOther(t *testing.T) {
	require.Equal(t, GetBigEndianEngine(), Other(GetLittleEndianEngine()))
	require.Equal(t, GetLittleEndianEngine(), Other(GetBigEndianEngine()))
}

func TestToHost64(t *testing.T) {
	const v = uint64(0x0102030405060708)

	for _, engine := range []EndianEngine{GetLittleEndianEngine(), GetBigEndianEngine()} {
		host := ToHost64(engine, v)

		var mem [8]byte
		*(*uint64)(unsafe.Pointer(&mem[0])) = host

		require.Equal(t, v, engine.Uint64(mem[:]))
		require.Equal(t, v, FromHost64(engine, host))
	}
}

func TestCompareNativeEndian(t *testing.T) {
	native := GetLittleEndianEngine()
	if IsNativeBigEndian() {
		native = GetBigEndianEngine()
	}

	require.True(t, CompareNativeEndian(native))
	require.False(t, CompareNativeEndian(Other(native)))
}
