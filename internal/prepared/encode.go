package prepared

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/mapidb/mapi-go/mapitypes"
)

func encodeArg(v mapitypes.Value, pt mapitypes.ParamType) (string, error) {
	if v == nil {
		return "NULL", nil
	}

	switch val := v.(type) {
	case int64:
		return strconv.FormatInt(val, 10), nil
	case int:
		return strconv.Itoa(val), nil
	case mapitypes.HugeInt:
		return val.String(), nil
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32), nil
	case mapitypes.Decimal:
		return val.String(), nil
	case bool:
		if val {
			return "true", nil
		}
		return "false", nil
	case string:
		return quoteLiteral(val), nil
	case []byte:
		return "blob '" + hex.EncodeToString(val) + "'", nil
	case mapitypes.JSON:
		return "json " + quoteLiteral(string(val)), nil
	case uuid.UUID:
		return "uuid '" + val.String() + "'", nil
	case mapitypes.Date:
		return "date '" + val.String() + "'", nil
	case mapitypes.Time:
		return "time" + precisionSuffix(pt.Precision) + " " + quoteLiteral(formatTimePrecision(val, pt.Precision)), nil
	case mapitypes.Timestamp:
		return "timestamp" + precisionSuffix(pt.Precision) + " " + quoteLiteral(formatTimestampPrecision(val, pt.Precision)), nil
	case mapitypes.TimestampTZ:
		return "timestamptz" + precisionSuffix(pt.Precision) + " " + quoteLiteral(val.String()), nil
	default:
		return "", fmt.Errorf("unsupported argument type %T", v)
	}
}

// quoteLiteral wraps s in single quotes, backslash-escaping '\' and '\''.
func quoteLiteral(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\', '\'':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

func precisionSuffix(p int) string {
	switch p {
	case 3, 6:
		return fmt.Sprintf("(%d)", p)
	default:
		return ""
	}
}

// formatTimePrecision renders t truncated/padded to precision digits of
// sub-second resolution, regardless of t's own Precision field: the exec
// literal must match what the prepared parameter declared.
func formatTimePrecision(t mapitypes.Time, precision int) string {
	base := fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
	switch precision {
	case 3:
		return fmt.Sprintf("%s.%03d", base, t.Nanosecond/1_000_000)
	case 6:
		return fmt.Sprintf("%s.%06d", base, t.Nanosecond/1_000)
	default:
		return base
	}
}

func formatTimestampPrecision(ts mapitypes.Timestamp, precision int) string {
	return ts.Date.String() + " " + formatTimePrecision(ts.Time, precision)
}
