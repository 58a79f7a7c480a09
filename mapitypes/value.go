package mapitypes

import (
	"fmt"
	"math/big"
	"time"
)

// Value is the dynamic type stored in a Result row. It is always one of:
// nil, int64, HugeInt, float64, Decimal, bool, string, JSON, []byte,
// Date, Time, Timestamp, TimestampTZ, or github.com/google/uuid.UUID.
// There is deliberately no interface constraint on Value: the wire format
// is untyped text and the ColumnType that accompanies each column is the
// only thing that tells a decoder which of the above to produce.
type Value = any

// JSON carries a json column's value verbatim; the body is guaranteed by
// the server to be valid JSON text, so no further validation is performed
// here.
type JSON string

// HugeInt is a signed 128-bit integer, wide enough for the `hugeint`
// column type. It is backed by math/big because the standard library has
// no native int128 and no arbitrary-precision library appears anywhere in
// the example pack (see DESIGN.md).
type HugeInt struct {
	v *big.Int
}

// NewHugeInt wraps i as a HugeInt.
func NewHugeInt(i *big.Int) HugeInt { return HugeInt{v: new(big.Int).Set(i)} }

// BigInt returns the underlying value as a *big.Int.
func (h HugeInt) BigInt() *big.Int { return new(big.Int).Set(h.v) }

// String renders the decimal representation.
func (h HugeInt) String() string {
	if h.v == nil {
		return "0"
	}
	return h.v.String()
}

// Decimal is an arbitrary-precision fixed-point number: unscaled * 10^-scale.
type Decimal struct {
	Unscaled *big.Int
	Scale    int32
}

// String renders the canonical decimal text (no exponent notation).
func (d Decimal) String() string {
	if d.Unscaled == nil {
		return "0"
	}
	neg := d.Unscaled.Sign() < 0
	digits := new(big.Int).Abs(d.Unscaled).String()
	if d.Scale <= 0 {
		s := digits + zeros(-d.Scale)
		if neg {
			return "-" + s
		}
		return s
	}
	for int32(len(digits)) <= d.Scale {
		digits = "0" + digits
	}
	intPart := digits[:int32(len(digits))-d.Scale]
	fracPart := digits[int32(len(digits))-d.Scale:]
	s := intPart + "." + fracPart
	if neg {
		return "-" + s
	}
	return s
}

func zeros(n int32) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '0'
	}
	return string(b)
}

// Date is a calendar date with no time-of-day or zone component.
type Date struct {
	Year  int
	Month int
	Day   int
}

// String renders Y[YYY]-MM-DD, always zero-padded to at least 4-digit year.
func (d Date) String() string { return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day) }

// Time is a time-of-day value with an explicit sub-second precision:
// 0 (seconds only), 3 (milliseconds) or 6 (microseconds).
type Time struct {
	Hour, Minute, Second int
	Nanosecond           int
	Precision            int // 0, 3, or 6
}

// String renders HH:MM:SS[.fff|.ffffff] according to Precision.
func (t Time) String() string {
	base := fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
	switch t.Precision {
	case 3:
		return fmt.Sprintf("%s.%03d", base, t.Nanosecond/1_000_000)
	case 6:
		return fmt.Sprintf("%s.%06d", base, t.Nanosecond/1_000)
	default:
		return base
	}
}

// Timestamp is a naive (zone-less) date + time-of-day.
type Timestamp struct {
	Date Date
	Time Time
}

func (ts Timestamp) String() string { return ts.Date.String() + " " + ts.Time.String() }

// TimestampTZ is a timestamp with a known UTC offset. The canonical
// representation is the UTC instant plus the offset in seconds; a
// synthetic zone name is only synthesized on demand (String/Zone), never
// stored as the source of truth, so downstream comparisons never depend
// on an invented IANA name.
type TimestampTZ struct {
	Instant       time.Time // always in UTC
	OffsetSeconds int
}

// Zone returns a *time.Location carrying the synthetic "Etc/UTC±HH:MM"
// name the wire protocol implies, for display purposes only.
func (tz TimestampTZ) Zone() *time.Location {
	sign := "+"
	off := tz.OffsetSeconds
	if off < 0 {
		sign = "-"
		off = -off
	}
	name := fmt.Sprintf("Etc/UTC%s%02d:%02d", sign, off/3600, (off%3600)/60)
	return time.FixedZone(name, tz.OffsetSeconds)
}

// Local returns the instant rendered in its reported offset.
func (tz TimestampTZ) Local() time.Time { return tz.Instant.In(tz.Zone()) }

func (tz TimestampTZ) String() string {
	t := tz.Local()
	sign := "+"
	off := tz.OffsetSeconds
	if off < 0 {
		sign = "-"
		off = -off
	}
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d%s%02d:%02d",
		t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(),
		sign, off/3600, (off%3600)/60)
}

// Equal reports whether two TimestampTZ values denote the same instant,
// regardless of their offset's textual representation: two timestamps with
// different zone offsets but the same UTC instant are equal.
func (tz TimestampTZ) Equal(other TimestampTZ) bool { return tz.Instant.Equal(other.Instant) }
