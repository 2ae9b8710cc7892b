package compress

import (
	"fmt"

	"github.com/klauspost/compress/s2"

	"github.com/arloliu/mmv/format"
)

// S2Compressor implements Codec.
type S2Compressor struct{}

var _ Codec = (*S2Compressor)(nil)

// NewS2Compressor returns the S2 codec.
func NewS2Compressor() S2Compressor {
	return S2Compressor{}
}

// Type returns the compression type recorded in archive headers.
func (S2Compressor) Type() format.CompressionType {
	return format.CompressionS2
}

// Compress encodes src into a new buffer.
func (S2Compressor) Compress(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, nil
	}

	return s2.Encode(nil, src), nil
}

// Decompress decodes src, which must expand to exactly rawLen bytes.
func (S2Compressor) Decompress(src []byte, rawLen int) ([]byte, error) {
	if rawLen == 0 {
		return nil, checkLen(format.CompressionS2, len(src), 0)
	}
	n, err := s2.DecodedLen(src)
	if err != nil {
		return nil, fmt.Errorf("s2 decompression failed: %w", err)
	}
	if err := checkLen(format.CompressionS2, n, rawLen); err != nil {
		return nil, err
	}

	out, err := s2.Decode(make([]byte, rawLen), src)
	if err != nil {
		return nil, fmt.Errorf("s2 decompression failed: %w", err)
	}

	return out, nil
}
