// Package compress provides the codecs used for MMV snapshot archives.
//
// A snapshot is a full copy of an MMV file. Most of it is zero padding in
// string slots and unused value words, so even the fast codecs reach high
// ratios. The codec identifier is stored in the archive header as a
// format.CompressionType:
//
//   - None: the image is stored as is
//   - Zstd: best ratio; klauspost/compress by default, valyala/gozstd when
//     built with cgo and the gozstd tag
//   - S2: balanced speed and ratio
//   - LZ4: fastest decompression
//
// Decompress takes the original length recorded in the archive, so every
// codec decodes into a single exactly sized allocation and a length mismatch
// is detected as corruption.
package compress
