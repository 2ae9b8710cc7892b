//go:build cgo && gozstd

package compress

import (
	"fmt"

	"github.com/valyala/gozstd"

	"github.com/arloliu/mmv/format"
)

// Compress encodes src into a new buffer.
func (ZstdCompressor) Compress(src []byte) ([]byte, error) {
	return gozstd.CompressLevel(nil, src, 3), nil
}

// Decompress decodes src, which must expand to exactly rawLen bytes.
func (ZstdCompressor) Decompress(src []byte, rawLen int) ([]byte, error) {
	out, err := gozstd.Decompress(make([]byte, 0, rawLen), src)
	if err != nil {
		return nil, fmt.Errorf("zstd decompression failed: %w", err)
	}
	if err := checkLen(format.CompressionZstd, len(out), rawLen); err != nil {
		return nil, err
	}

	return out, nil
}
