// Package section defines the fixed-size binary records of the MMV file format.
//
// The package handles serialization of the header, the table of contents and
// every record type a TOC entry can point at. It knows nothing about how a
// file is assembled; the registry package computes the layout and the writer
// and reader packages move records in and out of a mapping.
//
// # File Structure
//
//	┌─────────────────────────────────────────────────────────┐
//	│ Header (40 bytes)                                       │
//	│  - magic "MMV\0", version                               │
//	│  - g1, g2 generation tokens                             │
//	│  - toc count, flags, process id, cluster                │
//	├─────────────────────────────────────────────────────────┤
//	│ TOC (N × 16 bytes): type, count, offset                 │
//	├─────────────────────────────────────────────────────────┤
//	│ Indoms (32 bytes each)                                  │
//	│ Instances (80 bytes v1, 24 bytes v2+)                   │
//	│ Metrics (104 bytes v1, 48 bytes v2+)                    │
//	│ Values (32 bytes each)                                  │
//	│ Strings (256 bytes each)                                │
//	│ Labels (256 bytes each, v3 only)                        │
//	└─────────────────────────────────────────────────────────┘
//
// All offsets stored in the file are relative to the start of the file,
// never to a mapping address, since every reader maps the file at a different
// address.
//
// # Byte Order
//
// Records are encoded through an endian.EndianEngine. Nothing is overlaid onto
// native structs, so padding and bit-field layout never depend on the
// compiler. The unit word in particular uses fixed bit positions (see Units).
package section
