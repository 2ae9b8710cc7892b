package section

import (
	"fmt"

	"github.com/arloliu/mmv/endian"
	"github.com/arloliu/mmv/errs"
	"github.com/arloliu/mmv/format"
)

// Header is the fixed 40 byte record at the start of every MMV file.
type Header struct {
	// Version is the format version, 1 to 3.
	Version uint32 // byte offset 4-7
	// G1 is the generation low watermark. It is written before any structural change.
	G1 uint64 // byte offset 8-15
	// G2 is the generation high watermark. It is set equal to G1 once the change is complete.
	G2 uint64 // byte offset 16-23
	// TocCount is the number of table of contents entries following the header.
	TocCount uint32 // byte offset 24-27
	// Flags is the header flag bitset.
	Flags format.Flags // byte offset 28-31
	// Process is the pid of the writer.
	Process int32 // byte offset 32-35
	// Cluster is the PMID cluster id assigned to this registry.
	Cluster uint32 // byte offset 36-39
}

// Stable reports whether the generation tokens match.
func (h Header) Stable() bool {
	return h.G1 == h.G2
}

// DetectEngine determines the byte order of an encoded header.
//
// The version word is decoded in both byte orders; exactly one of them yields
// a supported version for any well formed file. An all-zero magic is a file
// its writer has not filled in yet and is reported as errs.ErrWriteInProgress.
func DetectEngine(data []byte) (endian.EndianEngine, error) {
	if len(data) < HeaderSize {
		return nil, errs.ErrInvalidHeaderSize
	}
	switch [4]byte(data[offMagic : offMagic+4]) {
	case Magic:
	case [4]byte{}:
		// created but not yet written by its writer
		return nil, fmt.Errorf("%w: blank header", errs.ErrWriteInProgress)
	default:
		return nil, errs.ErrInvalidMagicNumber
	}

	for _, engine := range []endian.EndianEngine{endian.GetLittleEndianEngine(), endian.GetBigEndianEngine()} {
		v := engine.Uint32(data[offVersion : offVersion+4])
		if v >= MinVersion && v <= MaxVersion {
			return engine, nil
		}
	}

	return nil, fmt.Errorf("%w: version word %x", errs.ErrInvalidVersion, data[offVersion:offVersion+4])
}

// Parse decodes the header from data using engine.
//
// Parameters:
//   - data: Byte slice containing the header (at least 40 bytes)
//   - engine: Byte order, normally obtained from DetectEngine
//
// Returns:
//   - error: ErrInvalidHeaderSize, ErrInvalidMagicNumber or ErrInvalidHeader
func (h *Header) Parse(data []byte, engine endian.EndianEngine) error {
	if len(data) < HeaderSize {
		return errs.ErrInvalidHeaderSize
	}
	if [4]byte(data[offMagic:offMagic+4]) != Magic {
		return errs.ErrInvalidMagicNumber
	}

	h.Version = engine.Uint32(data[offVersion:])
	h.G1 = engine.Uint64(data[OffG1:])
	h.G2 = engine.Uint64(data[OffG2:])
	h.TocCount = engine.Uint32(data[offTocs:])
	h.Flags = format.Flags(engine.Uint32(data[offFlags:]))
	h.Process = int32(engine.Uint32(data[offProcess:])) //nolint:gosec
	h.Cluster = engine.Uint32(data[offCluster:])

	return h.Validate()
}

// Validate checks the header fields that do not depend on the rest of the file.
func (h Header) Validate() error {
	if h.Version < MinVersion || h.Version > MaxVersion {
		return fmt.Errorf("%w: version %d", errs.ErrInvalidVersion, h.Version)
	}
	if h.TocCount == 0 || h.TocCount > MaxTocEntries {
		return fmt.Errorf("%w: %d toc entries", errs.ErrInvalidHeader, h.TocCount)
	}
	if !h.Flags.Valid() {
		return fmt.Errorf("%w: flags %#x", errs.ErrInvalidHeader, uint32(h.Flags))
	}
	if h.Cluster > MaxCluster {
		return fmt.Errorf("%w: cluster %d", errs.ErrInvalidHeader, h.Cluster)
	}

	return nil
}

// Bytes serializes the header into a new 40 byte slice.
func (h Header) Bytes(engine endian.EndianEngine) []byte {
	b := make([]byte, HeaderSize)
	h.WriteToSlice(b, 0, engine)

	return b
}

// WriteToSlice writes the header at offset and returns the next position.
func (h Header) WriteToSlice(data []byte, offset int, engine endian.EndianEngine) int {
	b := data[offset : offset+HeaderSize]
	copy(b[offMagic:], Magic[:])
	engine.PutUint32(b[offVersion:], h.Version)
	engine.PutUint64(b[OffG1:], h.G1)
	engine.PutUint64(b[OffG2:], h.G2)
	engine.PutUint32(b[offTocs:], h.TocCount)
	engine.PutUint32(b[offFlags:], uint32(h.Flags))
	engine.PutUint32(b[offProcess:], uint32(h.Process)) //nolint:gosec
	engine.PutUint32(b[offCluster:], h.Cluster)

	return offset + HeaderSize
}

// ParseHeader detects the byte order and parses the header in one step.
func ParseHeader(data []byte) (Header, endian.EndianEngine, error) {
	engine, err := DetectEngine(data)
	if err != nil {
		return Header{}, nil, err
	}

	var h Header
	if err := h.Parse(data, engine); err != nil {
		return Header{}, nil, err
	}

	return h, engine, nil
}
