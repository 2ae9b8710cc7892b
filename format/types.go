package format

import "fmt"

type (
	// ValueType identifies the encoding of a value slot.
	ValueType int32
	// Semantics describes how consecutive samples of a metric relate.
	Semantics int32
	// TocType identifies the kind of region a TOC entry points at.
	TocType uint32
	// Flags is the header flag bitset.
	Flags uint32
	// LabelType identifies which entity a label is attached to.
	LabelType uint32
	// CompressionType identifies the codec used by snapshot archives.
	CompressionType uint8
)

const (
	TypeNoSupport ValueType = -1
	TypeI32       ValueType = 0
	TypeU32       ValueType = 1
	TypeI64       ValueType = 2
	TypeU64       ValueType = 3
	TypeFloat     ValueType = 4
	TypeDouble    ValueType = 5
	TypeString    ValueType = 6
	TypeElapsed   ValueType = 9
)

const (
	SemCounter  Semantics = 1
	SemInstant  Semantics = 3
	SemDiscrete Semantics = 4
)

const (
	TocIndoms     TocType = 1
	TocInstances  TocType = 2
	TocMetrics    TocType = 3
	TocValues     TocType = 4
	TocStrings    TocType = 5
	TocInstances2 TocType = 6
	TocMetrics2   TocType = 7
	TocLabels     TocType = 8
)

const (
	FlagNoPrefix Flags = 0x1 // metric names are not prefixed with the registry name
	FlagProcess  Flags = 0x2 // file is scoped to the lifetime of the writer process
	FlagSentinel Flags = 0x4 // values use sentinel markers for missing samples

	flagsMask = FlagNoPrefix | FlagProcess | FlagSentinel
)

const (
	LabelContext   LabelType = 1 << 0
	LabelDomain    LabelType = 1 << 1
	LabelIndom     LabelType = 1 << 2
	LabelCluster   LabelType = 1 << 3
	LabelItem      LabelType = 1 << 4
	LabelInstances LabelType = 1 << 5
	LabelOptional  LabelType = 1 << 7

	labelKindMask = LabelContext | LabelDomain | LabelIndom | LabelCluster | LabelItem | LabelInstances
)

const (
	CompressionNone CompressionType = 0x1
	CompressionZstd CompressionType = 0x2
	CompressionS2   CompressionType = 0x3
	CompressionLZ4  CompressionType = 0x4
)

// Valid reports whether t is a value type that can be stored in a slot.
func (t ValueType) Valid() bool {
	switch t {
	case TypeI32, TypeU32, TypeI64, TypeU64, TypeFloat, TypeDouble, TypeString, TypeElapsed:
		return true
	default:
		return false
	}
}

// Numeric reports whether values of this type live entirely in the value word.
func (t ValueType) Numeric() bool {
	return t.Valid() && t != TypeString
}

func (t ValueType) String() string {
	switch t {
	case TypeNoSupport:
		return "nosupport"
	case TypeI32:
		return "i32"
	case TypeU32:
		return "u32"
	case TypeI64:
		return "i64"
	case TypeU64:
		return "u64"
	case TypeFloat:
		return "float"
	case TypeDouble:
		return "double"
	case TypeString:
		return "string"
	case TypeElapsed:
		return "elapsed"
	default:
		return fmt.Sprintf("type(%d)", int32(t))
	}
}

// ParseValueType converts the textual form produced by String back to a ValueType.
func ParseValueType(s string) (ValueType, error) {
	for _, t := range []ValueType{TypeI32, TypeU32, TypeI64, TypeU64, TypeFloat, TypeDouble, TypeString, TypeElapsed} {
		if t.String() == s {
			return t, nil
		}
	}

	return TypeNoSupport, fmt.Errorf("unknown value type %q", s)
}

func (s Semantics) Valid() bool {
	return s == SemCounter || s == SemInstant || s == SemDiscrete
}

func (s Semantics) String() string {
	switch s {
	case SemCounter:
		return "counter"
	case SemInstant:
		return "instant"
	case SemDiscrete:
		return "discrete"
	default:
		return fmt.Sprintf("semantics(%d)", int32(s))
	}
}

// ParseSemantics converts the textual form produced by String back to Semantics.
func ParseSemantics(s string) (Semantics, error) {
	for _, v := range []Semantics{SemCounter, SemInstant, SemDiscrete} {
		if v.String() == s {
			return v, nil
		}
	}

	return 0, fmt.Errorf("unknown semantics %q", s)
}

func (t TocType) String() string {
	switch t {
	case TocIndoms:
		return "indoms"
	case TocInstances:
		return "instances"
	case TocMetrics:
		return "metrics"
	case TocValues:
		return "values"
	case TocStrings:
		return "strings"
	case TocInstances2:
		return "instances2"
	case TocMetrics2:
		return "metrics2"
	case TocLabels:
		return "labels"
	default:
		return fmt.Sprintf("toc(%d)", uint32(t))
	}
}

// Valid reports whether only known flag bits are set.
func (f Flags) Valid() bool {
	return f&^flagsMask == 0
}

func (f Flags) Has(flag Flags) bool {
	return f&flag != 0
}

func (f Flags) String() string {
	s := ""
	add := func(name string) {
		if s != "" {
			s += "|"
		}
		s += name
	}
	if f.Has(FlagNoPrefix) {
		add("noprefix")
	}
	if f.Has(FlagProcess) {
		add("process")
	}
	if f.Has(FlagSentinel) {
		add("sentinel")
	}
	if s == "" {
		return "none"
	}

	return s
}

// Kind returns the label type without the optional bit.
func (l LabelType) Kind() LabelType {
	return l & labelKindMask
}

// Valid reports whether exactly one kind bit is set, optionally with LabelOptional.
func (l LabelType) Valid() bool {
	if l&^(labelKindMask|LabelOptional) != 0 {
		return false
	}
	kind := l.Kind()

	return kind != 0 && kind&(kind-1) == 0
}

func (l LabelType) String() string {
	var s string
	switch l.Kind() {
	case LabelContext:
		s = "context"
	case LabelDomain:
		s = "domain"
	case LabelIndom:
		s = "indom"
	case LabelCluster:
		s = "cluster"
	case LabelItem:
		s = "item"
	case LabelInstances:
		s = "instances"
	default:
		s = fmt.Sprintf("label(%d)", uint32(l))
	}
	if l&LabelOptional != 0 {
		s += ",optional"
	}

	return s
}

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

// ParseCompression accepts the lower or title case codec name.
func ParseCompression(s string) (CompressionType, error) {
	switch s {
	case "none", "None", "":
		return CompressionNone, nil
	case "zstd", "Zstd":
		return CompressionZstd, nil
	case "s2", "S2":
		return CompressionS2, nil
	case "lz4", "LZ4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", s)
	}
}

// ParseFlag converts a single flag name produced by Flags.String.
func ParseFlag(s string) (Flags, error) {
	switch s {
	case "noprefix":
		return FlagNoPrefix, nil
	case "process":
		return FlagProcess, nil
	case "sentinel":
		return FlagSentinel, nil
	default:
		return 0, fmt.Errorf("unknown flag %q", s)
	}
}

// ParseLabelKind converts a label kind name produced by LabelType.String,
// without the optional suffix.
func ParseLabelKind(s string) (LabelType, error) {
	for _, l := range []LabelType{LabelContext, LabelDomain, LabelIndom, LabelCluster, LabelItem, LabelInstances} {
		if l.String() == s {
			return l, nil
		}
	}

	return 0, fmt.Errorf("unknown label type %q", s)
}
