package compress

import "github.com/arloliu/mmv/format"

// NoOpCompressor stores images uncompressed.
type NoOpCompressor struct{}

var _ Codec = (*NoOpCompressor)(nil)

// NewNoOpCompressor returns the pass-through codec.
func NewNoOpCompressor() NoOpCompressor {
	return NoOpCompressor{}
}

// Type returns the compression type recorded in archive headers.
func (NoOpCompressor) Type() format.CompressionType {
	return format.CompressionNone
}

// Compress returns src itself.
func (NoOpCompressor) Compress(src []byte) ([]byte, error) {
	return src, nil
}

// Decompress returns src itself after checking its length.
func (NoOpCompressor) Decompress(src []byte, rawLen int) ([]byte, error) {
	if err := checkLen(format.CompressionNone, len(src), rawLen); err != nil {
		return nil, err
	}

	return src, nil
}
