package compress

import "github.com/arloliu/mmv/format"

// ZstdCompressor uses Zstandard at the default level. The implementation is
// selected at build time, see zstd_pure.go and zstd_cgo.go.
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor returns the zstd codec.
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}

// Type returns the compression type recorded in archive headers.
func (ZstdCompressor) Type() format.CompressionType {
	return format.CompressionZstd
}
