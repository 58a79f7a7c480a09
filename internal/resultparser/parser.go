// Package resultparser decodes the server's textual reply payloads
// (already de-framed by internal/frame) into mapitypes.Result values, or
// into a prepared statement's id and parameter descriptors.
package resultparser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mapidb/mapi-go/mapitypes"
)

// driverErr wraps a parse failure as a SourceDriver mapitypes.Error, with
// the offending payload preserved as Details.
func driverErr(raw []byte, format string, args ...any) error {
	return &mapitypes.Error{
		Source:  mapitypes.SourceDriver,
		Message: fmt.Sprintf(format, args...),
		Details: raw,
	}
}

// Parse dispatches a de-framed message to the decoder matching its
// 3-byte prefix and returns the resulting Result, or a mapitypes.Error
// (SourceServer for an embedded `!...` error, SourceDriver for anything
// that violates the expected shape).
func Parse(raw []byte) (*mapitypes.Result, error) {
	if len(raw) < 2 {
		return nil, driverErr(raw, "empty or truncated server reply")
	}
	switch prefix(raw) {
	case "&1":
		return parseRows(raw)
	case "&2":
		return parseUpsert(raw)
	case "&3":
		return parseMeta(raw)
	case "&4":
		return parseTxState(raw)
	case "&5":
		return nil, driverErr(raw, "prepare reply must be parsed with ParsePrepare")
	case "&6":
		return nil, driverErr(raw, "QBLOCK results are not supported")
	default:
		return nil, driverErr(raw, "unrecognised server reply prefix %q", string(raw[:2]))
	}
}

func prefix(raw []byte) string { return string(raw[:2]) }

// lines splits a message into its newline-delimited sections, dropping a
// single trailing empty element produced by a terminal '\n'.
func lines(raw []byte) []string {
	ls := strings.Split(string(raw), "\n")
	if len(ls) > 0 && ls[len(ls)-1] == "" {
		ls = ls[:len(ls)-1]
	}
	return ls
}

// annotatedFields parses a "% a,\tb,\tc # marker" section line into its
// comma-tab separated field list.
func annotatedFields(line string) ([]string, error) {
	body := strings.TrimPrefix(line, "% ")
	if body == line {
		return nil, fmt.Errorf("expected '%%' section line, got %q", line)
	}
	idx := strings.LastIndex(body, " # ")
	if idx >= 0 {
		body = body[:idx]
	}
	if body == "" {
		return nil, nil
	}
	return strings.Split(body, ",\t"), nil
}

func parseRows(raw []byte) (*mapitypes.Result, error) {
	ls := lines(raw)
	if len(ls) < 5 {
		return nil, driverErr(raw, "select result: expected at least 5 sections, got %d", len(ls))
	}

	header := strings.TrimPrefix(ls[0], "&1 ")
	headerFields := strings.Fields(header)
	if len(headerFields) < 2 {
		return nil, driverErr(raw, "select result: malformed header %q", ls[0])
	}
	rowCount, err := strconv.ParseUint(headerFields[1], 10, 64)
	if err != nil {
		return nil, driverErr(raw, "select result: bad row count %q: %v", headerFields[1], err)
	}

	columns, err := annotatedFields(ls[2])
	if err != nil {
		return nil, driverErr(raw, "select result: %v", err)
	}
	typeNames, err := annotatedFields(ls[3])
	if err != nil {
		return nil, driverErr(raw, "select result: %v", err)
	}
	if len(columns) != len(typeNames) {
		return nil, driverErr(raw, "select result: %d columns but %d types", len(columns), len(typeNames))
	}
	types := make([]mapitypes.ColumnType, len(typeNames))
	for i, t := range typeNames {
		types[i] = mapitypes.ColumnType(strings.TrimSpace(t))
	}

	rowLines := ls[5:]
	rows := make([][]mapitypes.Value, 0, len(rowLines))
	for _, rl := range rowLines {
		if rl == "" {
			continue
		}
		row, err := parseRowLine(rl, types)
		if err != nil {
			return nil, driverErr(raw, "select result: row %q: %v", rl, err)
		}
		rows = append(rows, row)
	}

	return &mapitypes.Result{
		Kind:     mapitypes.ResultRows,
		Meta:     raw,
		Columns:  columns,
		Types:    types,
		Rows:     rows,
		RowCount: rowCount,
	}, nil
}

func parseRowLine(line string, types []mapitypes.ColumnType) ([]mapitypes.Value, error) {
	body := strings.TrimPrefix(line, "[ ")
	if body == line {
		return nil, fmt.Errorf("row does not start with '[ ': %q", line)
	}
	body = strings.TrimSuffix(body, "\t]")

	s := newRowScanner(body)
	row := make([]mapitypes.Value, len(types))
	for i, ct := range types {
		v, err := decodeValue(s, ct)
		if err != nil {
			return nil, fmt.Errorf("column %d (%s): %w", i, ct, err)
		}
		row[i] = v
	}
	return row, nil
}

func parseUpsert(raw []byte) (*mapitypes.Result, error) {
	header := strings.TrimPrefix(string(raw), "&2 ")
	fields := strings.Fields(header)
	if len(fields) < 1 {
		return nil, driverErr(raw, "upsert result: missing row count")
	}
	rowCount, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return nil, driverErr(raw, "upsert result: bad row count %q: %v", fields[0], err)
	}
	res := &mapitypes.Result{Kind: mapitypes.ResultUpsert, Meta: raw, RowCount: rowCount}
	if len(fields) >= 2 {
		id, err := strconv.ParseInt(fields[1], 10, 64)
		if err == nil && id != -1 {
			res.LastID = &id
		}
	}
	return res, nil
}

func parseMeta(raw []byte) (*mapitypes.Result, error) {
	ls := lines(raw)
	if len(ls) > 1 && strings.HasPrefix(ls[1], "!") {
		return nil, parseEmbeddedServerError(ls[1])
	}
	return &mapitypes.Result{Kind: mapitypes.ResultMeta, Meta: raw}, nil
}

// parseEmbeddedServerError decodes the same `!code!message` shape the
// framer uses for top-level server errors, but from a line embedded
// inside an otherwise-successful-looking &3 payload.
func parseEmbeddedServerError(line string) error {
	body := strings.TrimPrefix(line, "!")
	idx := strings.IndexByte(body, '!')
	if idx < 0 {
		return &mapitypes.Error{Source: mapitypes.SourceServer, Message: body}
	}
	codeStr, msg := body[:idx], body[idx+1:]
	n, err := strconv.ParseInt(codeStr, 10, 32)
	if err != nil {
		return &mapitypes.Error{Source: mapitypes.SourceServer, Message: body}
	}
	code := int32(n)
	return &mapitypes.Error{Source: mapitypes.SourceServer, Code: &code, Message: msg}
}

func parseTxState(raw []byte) (*mapitypes.Result, error) {
	body := strings.TrimSpace(strings.TrimPrefix(string(raw), "&4"))
	switch body {
	case "t":
		return &mapitypes.Result{Kind: mapitypes.ResultTxState, Meta: raw, AutoCommit: true}, nil
	case "f":
		return &mapitypes.Result{Kind: mapitypes.ResultTxState, Meta: raw, AutoCommit: false}, nil
	default:
		return nil, driverErr(raw, "transaction state result: unexpected payload %q", body)
	}
}

// ParsePrepare decodes a `&5` prepare response into a statement id and
// its placeholder parameter descriptors. Non-placeholder rows (the
// prepared SELECT's own result columns, when the prepared statement is a
// query) are parsed but discarded.
func ParsePrepare(raw []byte) (id string, params []mapitypes.ParamType, err error) {
	ls := lines(raw)
	if len(ls) < 5 {
		return "", nil, driverErr(raw, "prepare result: expected at least 5 sections, got %d", len(ls))
	}

	header := strings.TrimPrefix(ls[0], "&5 ")
	fields := strings.Fields(header)
	if len(fields) < 1 {
		return "", nil, driverErr(raw, "prepare result: malformed header %q", ls[0])
	}
	id = fields[0]

	for _, rl := range ls[5:] {
		if rl == "" {
			continue
		}
		isPlaceholder, pt, perr := parsePrepareRow(rl)
		if perr != nil {
			return "", nil, driverErr(raw, "prepare result: row %q: %v", rl, perr)
		}
		if isPlaceholder {
			params = append(params, pt)
		}
	}
	return id, params, nil
}

// parsePrepareRow decodes one descriptor row of a &5 reply. The last
// three comma-tab fields are the (schema, table, column) provenance of a
// prepared SELECT's own result columns; a placeholder parameter has no
// provenance and reports all three as NULL, which is how the driver tells
// the two kinds of row apart. The remaining leading fields are (digits,
// type, scale, ...): digits is consulted only for time/timestamp/timestamptz,
// and the precision recorded is digits - 1, since the server reports one
// more than the exec literal takes. That offset is an empirical server
// quirk, applied as-is rather than derived.
func parsePrepareRow(line string) (isPlaceholder bool, pt mapitypes.ParamType, err error) {
	body := strings.TrimPrefix(line, "[ ")
	if body == line {
		return false, pt, fmt.Errorf("row does not start with '[ '")
	}
	body = strings.TrimSuffix(body, "\t]")

	fields := strings.Split(body, ",\t")
	if len(fields) < 6 {
		return false, pt, fmt.Errorf("expected at least 6 fields, got %d", len(fields))
	}

	last3 := fields[len(fields)-3:]
	if !(last3[0] == "NULL" && last3[1] == "NULL" && last3[2] == "NULL") {
		return false, pt, nil
	}

	digitsTok := strings.TrimSpace(fields[0])
	typeTok := strings.Trim(strings.TrimSpace(fields[1]), `"`)
	ct := mapitypes.ColumnType(typeTok)

	if !ct.HasPrecision() {
		return true, mapitypes.ParamType{Type: ct, Precision: -1}, nil
	}

	digits, derr := strconv.Atoi(digitsTok)
	if derr != nil {
		return false, pt, fmt.Errorf("bad precision digits %q: %w", digitsTok, derr)
	}
	return true, mapitypes.ParamType{Type: ct, Precision: digits - 1}, nil
}
