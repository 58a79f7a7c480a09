package mapitypes

// ColumnType names a server-side SQL column type as reported in a result's
// type header or a prepared statement's parameter descriptors.
type ColumnType string

// The complete set of column types the wire protocol describes.
const (
	Int         ColumnType = "int"
	TinyInt     ColumnType = "tinyint"
	SmallInt    ColumnType = "smallint"
	BigInt      ColumnType = "bigint"
	HugeIntType ColumnType = "hugeint"
	Oid         ColumnType = "oid"
	Serial      ColumnType = "serial"
	Double      ColumnType = "double"
	Float       ColumnType = "float"
	Real        ColumnType = "real"
	DecimalType ColumnType = "decimal"
	Boolean     ColumnType = "boolean"
	Char        ColumnType = "char"
	Varchar     ColumnType = "varchar"
	Clob        ColumnType = "clob"
	Text        ColumnType = "text"
	JSONType    ColumnType = "json"
	UUIDType    ColumnType = "uuid"
	Blob        ColumnType = "blob"
	TimeType        ColumnType = "time"
	DateType        ColumnType = "date"
	TimestampType   ColumnType = "timestamp"
	TimestampTZType ColumnType = "timestamptz"
)

// requiresLiteralPrefix reports whether values of t require a `type '...'`/`type(p) '...'`
// literal prefix when encoded as a prepared-statement argument.
func (t ColumnType) requiresLiteralPrefix() bool {
	switch t {
	case Blob, JSONType, UUIDType, TimeType, DateType, TimestampType, TimestampTZType:
		return true
	default:
		return false
	}
}

// HasPrecision reports whether t carries a sub-second precision digit in
// the prepare response (time, timestamp, timestamptz).
func (t ColumnType) HasPrecision() bool {
	switch t {
	case TimeType, TimestampType, TimestampTZType:
		return true
	default:
		return false
	}
}
