package compress

import (
	"fmt"
	"sync"

	"github.com/pierrec/lz4/v4"

	"github.com/arloliu/mmv/format"
)

// lz4CompressorPool reuses the hash tables of lz4.Compressor.
var lz4CompressorPool = sync.Pool{
	New: func() any {
		return &lz4.Compressor{}
	},
}

// LZ4Compressor uses raw LZ4 blocks. Input that does not compress is stored
// as is, which Decompress recognizes by its length equal to the raw length.
type LZ4Compressor struct{}

var _ Codec = (*LZ4Compressor)(nil)

// NewLZ4Compressor returns the LZ4 block codec.
func NewLZ4Compressor() LZ4Compressor {
	return LZ4Compressor{}
}

// Type returns the compression type recorded in archive headers.
func (LZ4Compressor) Type() format.CompressionType {
	return format.CompressionLZ4
}

// Compress encodes src into a new buffer.
func (LZ4Compressor) Compress(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, nil
	}
	dst := make([]byte, lz4.CompressBlockBound(len(src)))

	lc, _ := lz4CompressorPool.Get().(*lz4.Compressor)
	defer lz4CompressorPool.Put(lc)

	n, err := lc.CompressBlock(src, dst)
	if err != nil {
		return nil, fmt.Errorf("lz4 compression failed: %w", err)
	}
	if n == 0 || n >= len(src) {
		return append([]byte(nil), src...), nil
	}

	return dst[:n], nil
}

// Decompress decodes src, which must expand to exactly rawLen bytes.
func (LZ4Compressor) Decompress(src []byte, rawLen int) ([]byte, error) {
	if len(src) == rawLen {
		return src, nil
	}

	dst := make([]byte, rawLen)
	n, err := lz4.UncompressBlock(src, dst)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompression failed: %w", err)
	}
	if err := checkLen(format.CompressionLZ4, n, rawLen); err != nil {
		return nil, err
	}

	return dst, nil
}
