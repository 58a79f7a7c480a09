package mapitypes

// ResultKind discriminates the shape of a Result, mirroring the four
// variants the server's `&1`..`&4` response prefixes produce.
type ResultKind int

const (
	// ResultRows holds a select result: columns, types, and materialised rows.
	ResultRows ResultKind = iota
	// ResultUpsert holds an insert/update/delete row count and optional last id.
	ResultUpsert
	// ResultMeta holds a DDL/meta acknowledgement.
	ResultMeta
	// ResultTxState marks that auto-commit was toggled.
	ResultTxState
)

// Result is the single return type for every statement the driver runs.
// Only the fields relevant to Kind are populated; the rest are zero.
type Result struct {
	Kind ResultKind

	Meta []byte // the whole raw server payload this Result was parsed from

	// ResultRows fields.
	Columns  []string
	Types    []ColumnType
	Rows     [][]Value
	RowCount uint64

	// ResultUpsert fields (RowCount is shared with ResultRows).
	LastID *int64

	// ResultTxState fields.
	AutoCommit bool
}

// ParamType describes one placeholder of a prepared statement: a plain
// column type, or — for time/timestamp/timestamptz — a type plus the
// sub-second precision the server will expect at exec time.
type ParamType struct {
	Type ColumnType
	// Precision is -1 unless Type is time/timestamp/timestamptz, in which
	// case it is 0, 3, or 6.
	Precision int
}
