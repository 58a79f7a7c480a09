package prepared

import (
	"math/big"
	"testing"

	"github.com/google/uuid"

	"github.com/mapidb/mapi-go/mapitypes"
)

func TestEncodeArgsScalars(t *testing.T) {
	values := []mapitypes.Value{
		nil,
		int64(42),
		3.5,
		true,
		"it's a \\test",
	}
	paramTypes := []mapitypes.ParamType{
		{Type: mapitypes.Int, Precision: -1},
		{Type: mapitypes.Int, Precision: -1},
		{Type: mapitypes.Double, Precision: -1},
		{Type: mapitypes.Boolean, Precision: -1},
		{Type: mapitypes.Varchar, Precision: -1},
	}
	got, err := EncodeArgs(values, paramTypes)
	if err != nil {
		t.Fatalf("EncodeArgs: %v", err)
	}
	want := `NULL,42,3.5,true,'it\'s a \\test'`
	if got != want {
		t.Fatalf("got  %q\nwant %q", got, want)
	}
}

func TestEncodeArgsTimePrecision(t *testing.T) {
	v := mapitypes.Time{Hour: 1, Minute: 2, Second: 3, Nanosecond: 123456789}
	got, err := EncodeArgs([]mapitypes.Value{v}, []mapitypes.ParamType{{Type: mapitypes.TimeType, Precision: 3}})
	if err != nil {
		t.Fatalf("EncodeArgs: %v", err)
	}
	want := "time(3) '01:02:03.123'"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}

	got, err = EncodeArgs([]mapitypes.Value{v}, []mapitypes.ParamType{{Type: mapitypes.TimeType, Precision: 6}})
	if err != nil {
		t.Fatalf("EncodeArgs: %v", err)
	}
	want = "time(6) '01:02:03.123456'"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}

	got, err = EncodeArgs([]mapitypes.Value{v}, []mapitypes.ParamType{{Type: mapitypes.TimeType, Precision: 0}})
	if err != nil {
		t.Fatalf("EncodeArgs: %v", err)
	}
	want = "time '01:02:03'"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestEncodeArgsBlobJSONUUID(t *testing.T) {
	id := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")
	values := []mapitypes.Value{
		[]byte{0xDE, 0xAD, 0xBE, 0xEF},
		mapitypes.JSON(`{"a":1}`),
		id,
	}
	paramTypes := []mapitypes.ParamType{
		{Type: mapitypes.Blob, Precision: -1},
		{Type: mapitypes.JSONType, Precision: -1},
		{Type: mapitypes.UUIDType, Precision: -1},
	}
	got, err := EncodeArgs(values, paramTypes)
	if err != nil {
		t.Fatalf("EncodeArgs: %v", err)
	}
	want := `blob 'deadbeef',json '{"a":1}',uuid '550e8400-e29b-41d4-a716-446655440000'`
	if got != want {
		t.Fatalf("got  %q\nwant %q", got, want)
	}
}

func TestEncodeArgsDecimalAndHugeInt(t *testing.T) {
	dec := mapitypes.Decimal{Unscaled: big.NewInt(12345), Scale: 2}
	huge := mapitypes.NewHugeInt(new(big.Int).SetInt64(-170141183460469231))
	got, err := EncodeArgs(
		[]mapitypes.Value{dec, huge},
		[]mapitypes.ParamType{{Type: mapitypes.DecimalType, Precision: -1}, {Type: mapitypes.HugeIntType, Precision: -1}},
	)
	if err != nil {
		t.Fatalf("EncodeArgs: %v", err)
	}
	want := "123.45,-170141183460469231"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestEncodeArgsShorterThanParamTypes(t *testing.T) {
	got, err := EncodeArgs(
		[]mapitypes.Value{int64(1)},
		[]mapitypes.ParamType{{Type: mapitypes.Int, Precision: -1}, {Type: mapitypes.Varchar, Precision: -1}},
	)
	if err != nil {
		t.Fatalf("EncodeArgs: %v", err)
	}
	if got != "1" {
		t.Fatalf("expected just the supplied argument, got %q", got)
	}
}
