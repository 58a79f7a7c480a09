package mapitypes

import (
	"errors"
	"fmt"
)

// ErrorSource classifies where a driver Error originated.
type ErrorSource string

const (
	SourceServer  ErrorSource = "server"
	SourceNetwork ErrorSource = "network"
	SourceDriver  ErrorSource = "driver"
	SourceClient  ErrorSource = "client"
)

// Error is the single error type returned by every caller-facing
// operation. Code is populated only for SourceServer errors whose code
// segment parsed as an integer.
type Error struct {
	Source  ErrorSource
	Code    *int32
	Message string
	Details []byte
}

// Error implements the error interface as a single "source message" line,
// with details appended on a blank line when present.
func (e *Error) Error() string {
	s := fmt.Sprintf("%s %s", e.Source, e.Message)
	if len(e.Details) > 0 {
		s += "\n\n" + string(e.Details)
	}
	return s
}

// IsBenignDeallocateError reports whether err is the "unknown prepared
// statement" server error (code 7003) a failed exec leaves behind. The
// driver treats this as a normal, non-fatal outcome of Prepared.Close.
func IsBenignDeallocateError(err error) bool {
	var pe *Error
	if !errors.As(err, &pe) || pe.Source != SourceServer || pe.Code == nil {
		return false
	}
	return *pe.Code == 7003
}
