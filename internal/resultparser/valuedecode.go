package resultparser

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mapidb/mapi-go/mapitypes"
)

// decodeValue reads one column's worth of text from r according to ct.
// Time, timestamp and timestamptz values take their sub-second precision
// from the number of fractional digits in the text itself.
func decodeValue(r *rowScanner, ct mapitypes.ColumnType) (mapitypes.Value, error) {
	switch ct {
	case mapitypes.TinyInt, mapitypes.SmallInt, mapitypes.Int, mapitypes.BigInt, mapitypes.Oid, mapitypes.Serial:
		return decodeInt(r)
	case mapitypes.HugeIntType:
		return decodeHugeInt(r)
	case mapitypes.Double, mapitypes.Float, mapitypes.Real:
		return decodeFloat(r)
	case mapitypes.DecimalType:
		return decodeDecimal(r)
	case mapitypes.Boolean:
		return decodeBool(r)
	case mapitypes.Char, mapitypes.Varchar, mapitypes.Clob, mapitypes.Text:
		return decodeString(r)
	case mapitypes.JSONType:
		s, err := decodeString(r)
		if err != nil || s == nil {
			return s, err
		}
		return mapitypes.JSON(s.(string)), nil
	case mapitypes.UUIDType:
		return decodeUUID(r)
	case mapitypes.Blob:
		return decodeBlob(r)
	case mapitypes.TimeType:
		return decodeTime(r)
	case mapitypes.DateType:
		return decodeDate(r)
	case mapitypes.TimestampType:
		return decodeTimestamp(r)
	case mapitypes.TimestampTZType:
		return decodeTimestampTZ(r)
	default:
		return nil, fmt.Errorf("unsupported column type %q", ct)
	}
}

func decodeInt(r *rowScanner) (mapitypes.Value, error) {
	if r.peekIsNull() {
		r.consumeNull()
		r.skipSeparator()
		return nil, nil
	}
	tok := r.readToken()
	r.skipSeparator()
	n, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode int %q: %w", tok, err)
	}
	return n, nil
}

func decodeHugeInt(r *rowScanner) (mapitypes.Value, error) {
	if r.peekIsNull() {
		r.consumeNull()
		r.skipSeparator()
		return nil, nil
	}
	tok := r.readToken()
	r.skipSeparator()
	n, ok := new(big.Int).SetString(tok, 10)
	if !ok {
		return nil, fmt.Errorf("decode hugeint %q", tok)
	}
	return mapitypes.NewHugeInt(n), nil
}

func decodeFloat(r *rowScanner) (mapitypes.Value, error) {
	if r.peekIsNull() {
		r.consumeNull()
		r.skipSeparator()
		return nil, nil
	}
	tok := r.readToken()
	r.skipSeparator()
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return nil, fmt.Errorf("decode float %q: %w", tok, err)
	}
	return f, nil
}

func decodeDecimal(r *rowScanner) (mapitypes.Value, error) {
	if r.peekIsNull() {
		r.consumeNull()
		r.skipSeparator()
		return nil, nil
	}
	tok := r.readToken()
	r.skipSeparator()
	return parseDecimalLiteral(tok)
}

// parseDecimalLiteral parses a plain decimal literal ("-123.4500") into
// Decimal's unscaled-integer + scale representation.
func parseDecimalLiteral(tok string) (mapitypes.Decimal, error) {
	neg := false
	s := tok
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}

	intPart, fracPart, hasFrac := strings.Cut(s, ".")
	digits := intPart + fracPart
	if digits == "" {
		digits = "0"
	}
	unscaled, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return mapitypes.Decimal{}, fmt.Errorf("decode decimal %q", tok)
	}
	if neg {
		unscaled.Neg(unscaled)
	}
	scale := int32(0)
	if hasFrac {
		scale = int32(len(fracPart))
	}
	return mapitypes.Decimal{Unscaled: unscaled, Scale: scale}, nil
}

func decodeBool(r *rowScanner) (mapitypes.Value, error) {
	if r.peekIsNull() {
		r.consumeNull()
		r.skipSeparator()
		return nil, nil
	}
	tok := r.readToken()
	r.skipSeparator()
	switch tok {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return nil, fmt.Errorf("decode boolean %q", tok)
	}
}

func decodeString(r *rowScanner) (mapitypes.Value, error) {
	if r.peekIsNull() {
		r.consumeNull()
		r.skipSeparator()
		return nil, nil
	}
	s, err := r.readQuotedString()
	if err != nil {
		return nil, err
	}
	r.skipSeparator()
	return s, nil
}

func decodeUUID(r *rowScanner) (mapitypes.Value, error) {
	if r.peekIsNull() {
		r.consumeNull()
		r.skipSeparator()
		return nil, nil
	}
	tok, err := r.readFixed(36)
	if err != nil {
		return nil, err
	}
	r.skipSeparator()
	id, err := uuid.Parse(tok)
	if err != nil {
		return nil, fmt.Errorf("decode uuid %q: %w", tok, err)
	}
	return id, nil
}

func decodeBlob(r *rowScanner) (mapitypes.Value, error) {
	if r.peekIsNull() {
		r.consumeNull()
		r.skipSeparator()
		return nil, nil
	}
	tok := r.readToken()
	r.skipSeparator()
	if len(tok)%2 != 0 {
		return nil, fmt.Errorf("decode blob: odd hex length %q", tok)
	}
	out := make([]byte, len(tok)/2)
	for i := 0; i < len(out); i++ {
		b, err := strconv.ParseUint(tok[i*2:i*2+2], 16, 8)
		if err != nil {
			return nil, fmt.Errorf("decode blob %q: %w", tok, err)
		}
		out[i] = byte(b)
	}
	return out, nil
}

func decodeDate(r *rowScanner) (mapitypes.Value, error) {
	if r.peekIsNull() {
		r.consumeNull()
		r.skipSeparator()
		return nil, nil
	}
	tok := r.readToken()
	r.skipSeparator()
	d, err := parseDate(tok)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func parseDate(tok string) (mapitypes.Date, error) {
	y, m, d, _, err := splitDate(tok)
	if err != nil {
		return mapitypes.Date{}, err
	}
	return mapitypes.Date{Year: y, Month: m, Day: d}, nil
}

// splitDate parses "Y[YYY]-MM-DD" and returns the remainder of tok past
// the date (used by decodeTimestamp to continue parsing the time part).
func splitDate(tok string) (year, month, day int, rest string, err error) {
	parts := strings.SplitN(tok, "-", 3)
	if len(parts) != 3 {
		return 0, 0, 0, "", fmt.Errorf("decode date %q", tok)
	}
	year, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, 0, "", fmt.Errorf("decode date year %q: %w", tok, err)
	}
	month, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, 0, "", fmt.Errorf("decode date month %q: %w", tok, err)
	}
	dayAndRest := parts[2]
	dayDigits := 0
	for dayDigits < len(dayAndRest) && dayAndRest[dayDigits] >= '0' && dayAndRest[dayDigits] <= '9' {
		dayDigits++
	}
	day, err = strconv.Atoi(dayAndRest[:dayDigits])
	if err != nil {
		return 0, 0, 0, "", fmt.Errorf("decode date day %q: %w", tok, err)
	}
	return year, month, day, dayAndRest[dayDigits:], nil
}

func decodeTime(r *rowScanner) (mapitypes.Value, error) {
	if r.peekIsNull() {
		r.consumeNull()
		r.skipSeparator()
		return nil, nil
	}
	tok := r.readToken()
	r.skipSeparator()
	t, _, err := parseTime(tok)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// parseTime parses "HH:MM:SS[.fffffff]" and reports how many characters
// of tok it consumed so timestamp parsing can find the remainder.
func parseTime(tok string) (mapitypes.Time, int, error) {
	if len(tok) < 8 {
		return mapitypes.Time{}, 0, fmt.Errorf("decode time %q", tok)
	}
	hh, err := strconv.Atoi(tok[0:2])
	if err != nil {
		return mapitypes.Time{}, 0, fmt.Errorf("decode time hour %q: %w", tok, err)
	}
	if tok[2] != ':' {
		return mapitypes.Time{}, 0, fmt.Errorf("decode time %q: expected ':'", tok)
	}
	mm, err := strconv.Atoi(tok[3:5])
	if err != nil {
		return mapitypes.Time{}, 0, fmt.Errorf("decode time minute %q: %w", tok, err)
	}
	if tok[5] != ':' {
		return mapitypes.Time{}, 0, fmt.Errorf("decode time %q: expected ':'", tok)
	}
	ss, err := strconv.Atoi(tok[6:8])
	if err != nil {
		return mapitypes.Time{}, 0, fmt.Errorf("decode time second %q: %w", tok, err)
	}
	consumed := 8
	nanos := 0
	precision := 0
	if consumed < len(tok) && tok[consumed] == '.' {
		j := consumed + 1
		for j < len(tok) && tok[j] >= '0' && tok[j] <= '9' {
			j++
		}
		fracDigits := tok[consumed+1 : j]
		switch len(fracDigits) {
		case 3:
			precision = 3
		case 6:
			precision = 6
		default:
			precision = len(fracDigits)
		}
		nanos = fracToNanos(fracDigits)
		consumed = j
	}
	return mapitypes.Time{Hour: hh, Minute: mm, Second: ss, Nanosecond: nanos, Precision: precision}, consumed, nil
}

func fracToNanos(digits string) int {
	for len(digits) < 9 {
		digits += "0"
	}
	digits = digits[:9]
	n, _ := strconv.Atoi(digits)
	return n
}

func decodeTimestamp(r *rowScanner) (mapitypes.Value, error) {
	if r.peekIsNull() {
		r.consumeNull()
		r.skipSeparator()
		return nil, nil
	}
	tok := r.readToken()
	r.skipSeparator()
	y, mo, d, rest, err := splitDate(tok)
	if err != nil {
		return nil, err
	}
	rest = strings.TrimPrefix(rest, " ")
	tval, _, err := parseTime(rest)
	if err != nil {
		return nil, err
	}
	return mapitypes.Timestamp{Date: mapitypes.Date{Year: y, Month: mo, Day: d}, Time: tval}, nil
}

func decodeTimestampTZ(r *rowScanner) (mapitypes.Value, error) {
	if r.peekIsNull() {
		r.consumeNull()
		r.skipSeparator()
		return nil, nil
	}
	tok := r.readToken()
	r.skipSeparator()
	y, mo, d, rest, err := splitDate(tok)
	if err != nil {
		return nil, err
	}
	rest = strings.TrimPrefix(rest, " ")
	tval, consumed, err := parseTime(rest)
	if err != nil {
		return nil, err
	}
	zonePart := rest[consumed:]

	var offsetSeconds int
	switch {
	case zonePart == "z" || zonePart == "Z":
		offsetSeconds = 0
	case strings.HasPrefix(zonePart, "+") || strings.HasPrefix(zonePart, "-"):
		sign := 1
		if zonePart[0] == '-' {
			sign = -1
		}
		z := zonePart[1:]
		parts := strings.SplitN(z, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("decode timestamptz zone %q", tok)
		}
		hh, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("decode timestamptz zone hour %q: %w", tok, err)
		}
		mm, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("decode timestamptz zone minute %q: %w", tok, err)
		}
		offsetSeconds = sign * (hh*3600 + mm*60)
	default:
		return nil, fmt.Errorf("decode timestamptz %q: unrecognised zone suffix %q", tok, zonePart)
	}

	naive := time.Date(y, time.Month(mo), d, tval.Hour, tval.Minute, tval.Second, tval.Nanosecond, time.UTC)
	instant := naive.Add(-time.Duration(offsetSeconds) * time.Second)
	return mapitypes.TimestampTZ{Instant: instant, OffsetSeconds: offsetSeconds}, nil
}
