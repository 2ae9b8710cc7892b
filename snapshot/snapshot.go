// Package snapshot captures consistent copies of MMV files and stores them
// as compressed, checksummed archives.
//
// Archive layout, little-endian:
//
//	0      4       6      7     8            16        24         32
//	| MMVS | version | codec | pad | generation | raw len | xxhash64 | payload ...
//
// The checksum covers the uncompressed image. An archive can be reopened as
// a reader over the in-memory image.
package snapshot

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"

	"github.com/arloliu/mmv/compress"
	"github.com/arloliu/mmv/endian"
	"github.com/arloliu/mmv/errs"
	"github.com/arloliu/mmv/format"
	"github.com/arloliu/mmv/internal/pool"
	"github.com/arloliu/mmv/reader"
)

const (
	// Version is the archive format version written by Write.
	Version = 1
	// HeaderSize is the size of the archive header.
	HeaderSize = 32
	// MaxImageSize bounds the raw length accepted by Read.
	MaxImageSize = 1 << 30
)

var magic = [4]byte{'M', 'M', 'V', 'S'}

// Image is a consistent copy of an MMV file.
type Image struct {
	Data       []byte
	Generation uint64

	pins *pool.PinPool
}

var defaultPins = pool.NewPinPool(nil)

type pinAllocator struct {
	pins *pool.PinPool
}

func (a pinAllocator) Alloc(size int) ([]byte, error) {
	return a.pins.Pin(size)
}

func (a pinAllocator) Release(b []byte) {
	_ = a.pins.Unpin(pool.AddrOf(b, 0))
}

// Capture copies the file behind r while no update is in progress. The image
// stays pinned in pins, or in a package-wide pool when pins is nil, until
// Release.
func Capture(r *reader.Reader, pins *pool.PinPool) (*Image, error) {
	if pins == nil {
		pins = defaultPins
	}

	data, gen, err := r.CopyImage(pinAllocator{pins: pins})
	if err != nil {
		return nil, err
	}

	return &Image{Data: data, Generation: gen, pins: pins}, nil
}

// Release returns a captured image to its pool. It is a no-op for images
// returned by Read and for images already released.
func (img *Image) Release() error {
	if img.pins == nil || len(img.Data) == 0 {
		return nil
	}
	err := img.pins.Unpin(pool.AddrOf(img.Data, 0))
	img.Data, img.pins = nil, nil

	return err
}

// Write compresses img with codec and writes the archive to w.
func Write(w io.Writer, img *Image, codec compress.Codec) (int64, error) {
	payload, err := codec.Compress(img.Data)
	if err != nil {
		return 0, err
	}

	engine := endian.GetLittleEndianEngine()
	var hdr [HeaderSize]byte
	copy(hdr[0:4], magic[:])
	engine.PutUint16(hdr[4:6], Version)
	hdr[6] = byte(codec.Type())
	engine.PutUint64(hdr[8:16], img.Generation)
	engine.PutUint64(hdr[16:24], uint64(len(img.Data)))
	engine.PutUint64(hdr[24:32], xxhash.Sum64(img.Data))

	n, err := w.Write(hdr[:])
	if err != nil {
		return int64(n), fmt.Errorf("write snapshot header: %w", err)
	}
	m, err := w.Write(payload)
	if err != nil {
		return int64(n + m), fmt.Errorf("write snapshot payload: %w", err)
	}

	return int64(n + m), nil
}

// Read parses an archive, decompresses it and verifies its checksum.
func Read(rd io.Reader) (*Image, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rd); err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	return Decode(buf.Bytes())
}

// Decode is Read over an archive already in memory.
func Decode(archive []byte) (*Image, error) {
	if len(archive) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", errs.ErrInvalidSnapshot, len(archive))
	}
	if [4]byte(archive[0:4]) != magic {
		return nil, fmt.Errorf("%w: bad magic %q", errs.ErrInvalidSnapshot, archive[0:4])
	}

	engine := endian.GetLittleEndianEngine()
	if v := engine.Uint16(archive[4:6]); v != Version {
		return nil, fmt.Errorf("%w: version %d", errs.ErrInvalidSnapshot, v)
	}
	codec, err := compress.GetCodec(format.CompressionType(archive[6]))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrInvalidSnapshot, err)
	}
	gen := engine.Uint64(archive[8:16])
	rawLen := engine.Uint64(archive[16:24])
	sum := engine.Uint64(archive[24:32])
	if rawLen > MaxImageSize {
		return nil, fmt.Errorf("%w: image of %d bytes", errs.ErrInvalidSnapshot, rawLen)
	}

	data, err := codec.Decompress(archive[HeaderSize:], int(rawLen))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrInvalidSnapshot, err)
	}
	if got := xxhash.Sum64(data); got != sum {
		return nil, fmt.Errorf("%w: %016x != %016x", errs.ErrChecksumMismatch, got, sum)
	}

	return &Image{Data: data, Generation: gen}, nil
}

// Open reads an archive and returns a reader over its image.
func Open(rd io.Reader, opts ...reader.Option) (*reader.Reader, error) {
	img, err := Read(rd)
	if err != nil {
		return nil, err
	}

	return reader.FromBytes(img.Data, opts...)
}

// Save writes img to the file at path.
func Save(path string, img *Image, codec compress.Codec) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	if _, err := Write(f, img, codec); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}

// Load reads the archive at path.
func Load(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	return Decode(data)
}
