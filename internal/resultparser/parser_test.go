package resultparser

import (
	"errors"
	"testing"
	"time"

	"github.com/mapidb/mapi-go/mapitypes"
)

func TestParseRowsEmptySelect(t *testing.T) {
	raw := []byte("&1 0 0 1 0\n" +
		"% sys.L1 # table\n" +
		"% L1 # name\n" +
		"% int # type\n" +
		"% 1 # length\n")

	res, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Kind != mapitypes.ResultRows {
		t.Fatalf("expected ResultRows, got %v", res.Kind)
	}
	if res.RowCount != 0 || len(res.Rows) != 0 {
		t.Fatalf("expected no rows, got %+v", res)
	}
	if len(res.Columns) != 1 || res.Columns[0] != "L1" {
		t.Fatalf("unexpected columns: %v", res.Columns)
	}
	if len(res.Types) != 1 || res.Types[0] != mapitypes.Int {
		t.Fatalf("unexpected types: %v", res.Types)
	}
}

func TestParseRowsWithValues(t *testing.T) {
	raw := []byte("&1 1 1 2 1\n" +
		"% sys.L1,\tsys.L1 # table\n" +
		"% L1,\tL2 # name\n" +
		"% int,\tvarchar # type\n" +
		"% 1,\t1 # length\n" +
		"[ 0,\t\"a\"\t]\n")

	res, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Rows) != 1 || len(res.Rows[0]) != 2 {
		t.Fatalf("unexpected rows: %+v", res.Rows)
	}
	if res.Rows[0][0].(int64) != 0 {
		t.Fatalf("expected 0, got %v", res.Rows[0][0])
	}
	if res.Rows[0][1].(string) != "a" {
		t.Fatalf("expected %q, got %v", "a", res.Rows[0][1])
	}
}

func TestParseMetaEmbeddedError(t *testing.T) {
	raw := []byte("&3 72\n!201!er1")
	_, err := Parse(raw)
	var me *mapitypes.Error
	if !errors.As(err, &me) {
		t.Fatalf("expected *mapitypes.Error, got %T: %v", err, err)
	}
	if me.Source != mapitypes.SourceServer || me.Code == nil || *me.Code != 201 || me.Message != "er1" {
		t.Fatalf("unexpected error: %+v", me)
	}
}

func TestParseTxState(t *testing.T) {
	res, err := Parse([]byte("&4 t"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Kind != mapitypes.ResultTxState || !res.AutoCommit {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestParseUpsertNoLastID(t *testing.T) {
	res, err := Parse([]byte("&2 3 -1"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.RowCount != 3 || res.LastID != nil {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestDecodeTimestampTZ(t *testing.T) {
	raw := []byte("&1 1 1 1 1\n" +
		"% sys.L1 # table\n" +
		"% L1 # name\n" +
		"% timestamptz # type\n" +
		"% 1 # length\n" +
		"[ 2038-01-19 03:14:07.123456+02:00\t]\n")

	res, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ts := res.Rows[0][0].(mapitypes.TimestampTZ)
	if ts.OffsetSeconds != 2*3600 {
		t.Fatalf("expected +2h offset, got %d", ts.OffsetSeconds)
	}
	want := time.Date(2038, 1, 19, 1, 14, 7, 123456000, time.UTC)
	if !ts.Instant.Equal(want) {
		t.Fatalf("expected instant %v, got %v", want, ts.Instant)
	}
}

func TestDecodeNullValues(t *testing.T) {
	raw := []byte("&1 1 1 2 1\n" +
		"% sys.L1,\tsys.L1 # table\n" +
		"% L1,\tL2 # name\n" +
		"% int,\tvarchar # type\n" +
		"% 1,\t1 # length\n" +
		"[ NULL,\tNULL\t]\n")

	res, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Rows[0][0] != nil || res.Rows[0][1] != nil {
		t.Fatalf("expected both values nil, got %+v", res.Rows[0])
	}
}

func TestParsePrepareFiltersNonPlaceholders(t *testing.T) {
	raw := []byte("&5 7 1 6 2\n" +
		"% .prepare # table\n" +
		"% type,\tdigits,\tscale,\tschema,\ttable,\tcolumn # name\n" +
		"% varchar,\tint,\tint,\tvarchar,\tvarchar,\tvarchar # type\n" +
		"% 1,\t1,\t1,\t1,\t1,\t1 # length\n" +
		"[ 0,\t\"int\",\t0,\tNULL,\tNULL,\tNULL\t]\n" +
		"[ 3,\t\"timestamp\",\t0,\tNULL,\tNULL,\tNULL\t]\n" +
		"[ 0,\t\"int\",\t0,\t\"sys\",\t\"foo\",\t\"id\"\t]\n")

	id, params, err := ParsePrepare(raw)
	if err != nil {
		t.Fatalf("ParsePrepare: %v", err)
	}
	if id != "7" {
		t.Fatalf("expected id 7, got %q", id)
	}
	if len(params) != 2 {
		t.Fatalf("expected 2 placeholder params, got %d: %+v", len(params), params)
	}
	if params[0].Type != mapitypes.Int || params[0].Precision != -1 {
		t.Fatalf("unexpected param 0: %+v", params[0])
	}
	if params[1].Type != mapitypes.TimestampType || params[1].Precision != 2 {
		t.Fatalf("unexpected param 1: %+v", params[1])
	}
}
