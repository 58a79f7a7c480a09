package mapi

import (
	"errors"
	"fmt"

	"github.com/mapidb/mapi-go/internal/frame"
	"github.com/mapidb/mapi-go/internal/neterr"
	"github.com/mapidb/mapi-go/mapitypes"
)

// ErrConnClosed is returned by any Connection method called after Close.
var ErrConnClosed = errors.New("mapi: connection closed")

// ErrPoolClosed is returned by Pool.Checkout after Pool.Close.
var ErrPoolClosed = errors.New("mapi: pool closed")

// ErrCheckoutTimeout is returned by Pool.Checkout when no connection became
// available before the context was done.
var ErrCheckoutTimeout = errors.New("mapi: pool checkout timed out")

func driverErr(format string, args ...any) error {
	return &mapitypes.Error{Source: mapitypes.SourceDriver, Message: fmt.Sprintf(format, args...)}
}

func clientErr(format string, args ...any) error {
	return &mapitypes.Error{Source: mapitypes.SourceClient, Message: fmt.Sprintf(format, args...)}
}

// wireErr normalises whatever the frame/auth/resultparser/prepared layers
// returned into a *mapitypes.Error, the single error type this package's
// public API hands back. Those layers already return *mapitypes.Error for
// anything they detect themselves; this only has to translate the lower,
// transport-level *frame.Error.
func wireErr(err error) error {
	if err == nil {
		return nil
	}
	var fe *frame.Error
	if errors.As(err, &fe) {
		source := mapitypes.SourceServer
		if fe.Source == "network" {
			source = mapitypes.SourceNetwork
		}
		return &mapitypes.Error{Source: source, Code: fe.Code, Message: fe.Message}
	}
	return err
}

// isFatal reports whether err should cause the owning Connection to be
// torn down rather than reused: any network-sourced failure, per
// neterr.ErrFatal.
func isFatal(err error) bool {
	return errors.Is(err, neterr.ErrFatal)
}
