// Package neterr defines the sentinel used to mark a connection as
// unusable after a network-level failure.
package neterr

import "errors"

// ErrFatal wraps any error that signals the underlying socket is broken.
// Callers test with errors.Is(err, ErrFatal); the pool evicts a worker
// whose last operation returned an error satisfying this.
var ErrFatal = errors.New("mapi: fatal connection error")
