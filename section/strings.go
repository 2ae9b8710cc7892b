package section

import (
	"bytes"
	"fmt"

	"github.com/arloliu/mmv/errs"
)

// PutString writes s NUL-terminated into a fixed-size field, zeroing the rest.
func PutString(field []byte, s string) error {
	if len(s) >= len(field) {
		return fmt.Errorf("%w: %d bytes into %d byte field", errs.ErrTextTooLong, len(s), len(field))
	}
	n := copy(field, s)
	clear(field[n:])

	return nil
}

// CString returns the bytes of field up to the first NUL.
func CString(field []byte) string {
	if i := bytes.IndexByte(field, 0); i >= 0 {
		return string(field[:i])
	}

	return string(field)
}

// ReadStringAt reads the string slot at offset, bounds checked against data.
func ReadStringAt(data []byte, offset uint64) (string, error) {
	if offset < HeaderSize || !InBounds(offset, StringSize, uint64(len(data))) {
		return "", fmt.Errorf("%w: string at %d", errs.ErrOffsetOutOfRange, offset)
	}

	return CString(data[offset : offset+StringSize]), nil
}
