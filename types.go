// Package mapi is a client driver for a columnar SQL database server that
// speaks the MAPI wire protocol: authenticated connections, parameterised
// SQL, streamed/materialised results, transactions with server-side
// prepared statements, and a pool that amortises connection setup.
package mapi

import (
	"github.com/mapidb/mapi-go/internal/prepared"
	"github.com/mapidb/mapi-go/mapitypes"
)

// Value, ColumnType, Result and friends live in mapitypes so that the
// internal protocol packages (which produce them) never have to import
// this package back — see DESIGN.md for why the split exists. They are
// re-exported here as the ergonomic, documented public surface.
type (
	Value       = mapitypes.Value
	ColumnType  = mapitypes.ColumnType
	Result      = mapitypes.Result
	ResultKind  = mapitypes.ResultKind
	ParamType   = mapitypes.ParamType
	Error       = mapitypes.Error
	ErrorSource = mapitypes.ErrorSource

	JSON        = mapitypes.JSON
	HugeInt     = mapitypes.HugeInt
	Decimal     = mapitypes.Decimal
	Date        = mapitypes.Date
	Time        = mapitypes.Time
	Timestamp   = mapitypes.Timestamp
	TimestampTZ = mapitypes.TimestampTZ

	// PreparedStatement is a named, transaction-cached prepared statement
	// returned by Transaction.Prepare.
	PreparedStatement = prepared.Statement
)

const (
	ResultRows    = mapitypes.ResultRows
	ResultUpsert  = mapitypes.ResultUpsert
	ResultMeta    = mapitypes.ResultMeta
	ResultTxState = mapitypes.ResultTxState

	SourceServer  = mapitypes.SourceServer
	SourceNetwork = mapitypes.SourceNetwork
	SourceDriver  = mapitypes.SourceDriver
	SourceClient  = mapitypes.SourceClient
)

const (
	Int             = mapitypes.Int
	TinyInt         = mapitypes.TinyInt
	SmallInt        = mapitypes.SmallInt
	BigInt          = mapitypes.BigInt
	HugeIntType     = mapitypes.HugeIntType
	Oid             = mapitypes.Oid
	Serial          = mapitypes.Serial
	Double          = mapitypes.Double
	Float           = mapitypes.Float
	Real            = mapitypes.Real
	DecimalType     = mapitypes.DecimalType
	Boolean         = mapitypes.Boolean
	Char            = mapitypes.Char
	Varchar         = mapitypes.Varchar
	Clob            = mapitypes.Clob
	Text            = mapitypes.Text
	JSONType        = mapitypes.JSONType
	UUIDType        = mapitypes.UUIDType
	Blob            = mapitypes.Blob
	TimeType        = mapitypes.TimeType
	DateType        = mapitypes.DateType
	TimestampType   = mapitypes.TimestampType
	TimestampTZType = mapitypes.TimestampTZType
)

// NewHugeInt wraps a *big.Int as a HugeInt value.
var NewHugeInt = mapitypes.NewHugeInt

// IsBenignDeallocateError reports whether err is the harmless
// "unknown prepared statement" server error (code 7003) that a failed
// exec leaves behind.
var IsBenignDeallocateError = mapitypes.IsBenignDeallocateError
