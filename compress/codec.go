package compress

import (
	"fmt"

	"github.com/arloliu/mmv/format"
)

// Codec compresses and restores whole snapshot images. Implementations are
// safe for concurrent use.
type Codec interface {
	// Type returns the identifier written to archive headers.
	Type() format.CompressionType
	// Compress returns the compressed form of src. src is not modified; the
	// result may alias src for the None codec.
	Compress(src []byte) ([]byte, error)
	// Decompress restores src to exactly rawLen bytes.
	Decompress(src []byte, rawLen int) ([]byte, error)
}

var builtinCodecs = map[format.CompressionType]Codec{
	format.CompressionNone: NewNoOpCompressor(),
	format.CompressionZstd: NewZstdCompressor(),
	format.CompressionS2:   NewS2Compressor(),
	format.CompressionLZ4:  NewLZ4Compressor(),
}

// GetCodec returns the built-in codec for t.
func GetCodec(t format.CompressionType) (Codec, error) {
	if codec, ok := builtinCodecs[t]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("unsupported compression type: %s", t)
}

// ForName returns the built-in codec for a name accepted by
// format.ParseCompression.
func ForName(name string) (Codec, error) {
	t, err := format.ParseCompression(name)
	if err != nil {
		return nil, err
	}

	return GetCodec(t)
}

func checkLen(t format.CompressionType, got, want int) error {
	if got != want {
		return fmt.Errorf("%s: decoded %d bytes, want %d", t, got, want)
	}

	return nil
}
