package section

// Magic is the four byte file signature.
var Magic = [4]byte{'M', 'M', 'V', 0}

// Format versions. Version 1 stores metric names and instance names inline,
// version 2 moves them into the string table, version 3 adds labels.
const (
	Version1 = 1
	Version2 = 2
	Version3 = 3

	MinVersion = Version1
	MaxVersion = Version3
)

// Fixed record sizes in bytes.
const (
	HeaderSize     = 40
	TocEntrySize   = 16
	MetricV1Size   = 104
	MetricV2Size   = 48
	IndomSize      = 32
	InstanceV1Size = 80
	InstanceV2Size = 24
	ValueSize      = 32
	StringSize     = 256
	LabelSize      = 256
)

// Field limits.
const (
	NameMax       = 64             // inline v1 name field, including the NUL
	StringMax     = StringSize - 1 // longest string that fits a string slot
	LabelMax      = LabelSize - 12 // label payload field
	LabelTextMax  = LabelMax - 1   // longest JSON label payload
	MaxItem       = 1<<10 - 1      // PMID item field width
	MaxCluster    = 1<<12 - 1      // PMID cluster field width
	NoIndom       = uint32(0)      // metric is a singular value
	MaxTocEntries = 8              // one entry per region kind
	alignment     = 8
)

// Header field offsets.
const (
	offMagic   = 0
	offVersion = 4
	OffG1      = 8
	OffG2      = 16
	offTocs    = 24
	offFlags   = 28
	offProcess = 32
	offCluster = 36
)

// Value slot field offsets.
const (
	OffValueWord  = 0
	OffValueExtra = 8
	offValueMeta  = 16
	offValueInst  = 24
)

// Align rounds n up to the section alignment.
func Align(n uint64) uint64 {
	return (n + alignment - 1) &^ (alignment - 1)
}
