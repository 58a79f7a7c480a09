// Package prepared implements the server-side prepared-statement
// lifecycle (prepare/exec/deallocate) and the literal encoder for its
// arguments.
package prepared

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mapidb/mapi-go/internal/frame"
	"github.com/mapidb/mapi-go/internal/resultparser"
	"github.com/mapidb/mapi-go/mapitypes"
)

// Statement is a server-side prepared statement bound to a single
// connection's frame.Conn. Its ID is only meaningful against that same
// connection; callers must never reuse a Statement across connections.
type Statement struct {
	ID             string
	ParameterTypes []mapitypes.ParamType

	fc *frame.Conn
}

// New prepares sql on fc and returns the resulting Statement.
func New(fc *frame.Conn, sql string) (*Statement, error) {
	if err := fc.Send([]byte("prepare " + sql)); err != nil {
		return nil, err
	}
	reply, err := fc.Receive()
	if err != nil {
		return nil, err
	}
	id, params, err := resultparser.ParsePrepare(reply)
	if err != nil {
		return nil, err
	}
	return &Statement{ID: id, ParameterTypes: params, fc: fc}, nil
}

// Exec runs the statement with args (already literal-encoded by EncodeArgs)
// and returns the server's result.
func (s *Statement) Exec(args string) (*mapitypes.Result, error) {
	msg := fmt.Sprintf("exec %s(%s)", s.ID, args)
	if err := s.fc.Send([]byte(msg)); err != nil {
		return nil, err
	}
	reply, err := s.fc.Receive()
	if err != nil {
		return nil, err
	}
	return resultparser.Parse(reply)
}

// Close deallocates the statement. A code-7003 "unknown prepared
// statement" server error — which is what a prior failed Exec leaves
// behind, since the server already deallocated it — is swallowed as benign.
func (s *Statement) Close() error {
	if err := s.fc.Send([]byte("deallocate " + s.ID)); err != nil {
		return err
	}
	_, err := s.fc.Receive()
	var fe *frame.Error
	if errors.As(err, &fe) && fe.Source == "server" && fe.Code != nil && *fe.Code == 7003 {
		return nil
	}
	if err != nil && mapitypes.IsBenignDeallocateError(err) {
		return nil
	}
	return err
}

// EncodeArgs renders values as the comma-separated argument list an `exec`
// statement expects, consulting paramTypes only for the literal prefixes
// and precision suffixes a value's type requires. If values is shorter than
// paramTypes, only the supplied values are encoded — the server is left to
// report the resulting arity mismatch.
func EncodeArgs(values []mapitypes.Value, paramTypes []mapitypes.ParamType) (string, error) {
	parts := make([]string, len(values))
	for i, v := range values {
		var pt mapitypes.ParamType
		if i < len(paramTypes) {
			pt = paramTypes[i]
		} else {
			pt = mapitypes.ParamType{Precision: -1}
		}
		enc, err := encodeArg(v, pt)
		if err != nil {
			return "", fmt.Errorf("argument %d: %w", i, err)
		}
		parts[i] = enc
	}
	return strings.Join(parts, ","), nil
}
