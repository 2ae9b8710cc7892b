package section

import (
	"fmt"

	"github.com/arloliu/mmv/errs"
)

// Space scales.
const (
	SpaceByte  = 0
	SpaceKByte = 1
	SpaceMByte = 2
	SpaceGByte = 3
	SpaceTByte = 4
	SpacePByte = 5
	SpaceEByte = 6
)

// Time scales.
const (
	TimeNSec = 0
	TimeUSec = 1
	TimeMSec = 2
	TimeSec  = 3
	TimeMin  = 4
	TimeHour = 5
)

// Units is the dimensional unit encoding of a metric.
//
// On disk it is packed into one 32-bit word with fixed bit positions,
// independent of the host's bit-field allocation order:
//
//	bits 28-31  DimSpace   (signed)
//	bits 24-27  DimTime    (signed)
//	bits 20-23  DimCount   (signed)
//	bits 16-19  ScaleSpace
//	bits 12-15  ScaleTime
//	bits  8-11  ScaleCount (signed)
//	bits  0-7   zero
type Units struct {
	DimSpace   int8
	DimTime    int8
	DimCount   int8
	ScaleSpace uint8
	ScaleTime  uint8
	ScaleCount int8
}

// Pack returns the on-disk dimension word.
func (u Units) Pack() uint32 {
	nib := func(v int8) uint32 { return uint32(uint8(v)) & 0xF }

	return nib(u.DimSpace)<<28 |
		nib(u.DimTime)<<24 |
		nib(u.DimCount)<<20 |
		uint32(u.ScaleSpace&0xF)<<16 |
		uint32(u.ScaleTime&0xF)<<12 |
		nib(u.ScaleCount)<<8
}

// UnpackUnits decodes a dimension word produced by Pack.
func UnpackUnits(w uint32) Units {
	signed := func(v uint32) int8 {
		v &= 0xF
		if v&0x8 != 0 {
			return int8(v) - 16 //nolint:gosec
		}

		return int8(v) //nolint:gosec
	}

	return Units{
		DimSpace:   signed(w >> 28),
		DimTime:    signed(w >> 24),
		DimCount:   signed(w >> 20),
		ScaleSpace: uint8((w >> 16) & 0xF),
		ScaleTime:  uint8((w >> 12) & 0xF),
		ScaleCount: signed(w >> 8),
	}
}

// Validate rejects dimensions outside the signed nibble range, unknown scales,
// and scales set on a zero dimension.
func (u Units) Validate() error {
	for _, d := range []int8{u.DimSpace, u.DimTime, u.DimCount, u.ScaleCount} {
		if d < -8 || d > 7 {
			return fmt.Errorf("%w: %+v", errs.ErrInvalidUnits, u)
		}
	}
	if u.ScaleSpace > SpaceEByte || u.ScaleTime > TimeHour {
		return fmt.Errorf("%w: scale out of range %+v", errs.ErrInvalidUnits, u)
	}
	if (u.DimSpace == 0 && u.ScaleSpace != 0) ||
		(u.DimTime == 0 && u.ScaleTime != 0) ||
		(u.DimCount == 0 && u.ScaleCount != 0) {
		return fmt.Errorf("%w: scale without dimension %+v", errs.ErrInvalidUnits, u)
	}

	return nil
}

// IsZero reports whether the metric is dimensionless.
func (u Units) IsZero() bool {
	return u == Units{}
}

func (u Units) String() string {
	if u.IsZero() {
		return "none"
	}

	space := [...]string{"byte", "Kbyte", "Mbyte", "Gbyte", "Tbyte", "Pbyte", "Ebyte"}
	tm := [...]string{"nsec", "usec", "msec", "sec", "min", "hour"}

	var num, den string
	part := func(name string, dim int8) {
		switch {
		case dim > 0:
			if num != "" {
				num += " "
			}
			num += name
			if dim > 1 {
				num += fmt.Sprintf("^%d", dim)
			}
		case dim < 0:
			if den != "" {
				den += " "
			}
			den += name
			if dim < -1 {
				den += fmt.Sprintf("^%d", -dim)
			}
		}
	}
	if u.DimSpace != 0 && int(u.ScaleSpace) < len(space) {
		part(space[u.ScaleSpace], u.DimSpace)
	}
	if u.DimTime != 0 && int(u.ScaleTime) < len(tm) {
		part(tm[u.ScaleTime], u.DimTime)
	}
	if u.DimCount != 0 {
		name := "count"
		if u.ScaleCount != 0 {
			name = fmt.Sprintf("count x 10^%d", u.ScaleCount)
		}
		part(name, u.DimCount)
	}

	switch {
	case num == "":
		return "/ " + den
	case den == "":
		return num
	default:
		return num + " / " + den
	}
}
