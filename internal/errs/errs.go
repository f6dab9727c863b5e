// Package errs defines the engine's error taxonomy: a small set of typed
// errors carrying a stable Kind so callers can branch on failure class
// without string matching, the way the reference module distinguishes
// UnknownObjectiveError from InvalidMetricsError.
package errs

import (
	"errors"
	"fmt"
)

// Kind names one of the taxonomy's failure classes.
type Kind string

const (
	ValidationFailed Kind = "validation-failed"
	SpawnFailed       Kind = "spawn-failed"
	Timeout           Kind = "timeout"
	Cancelled         Kind = "cancelled"
	ExitNonzero       Kind = "exit-nonzero"
	ParseFailed       Kind = "parse-failed"
	ModelInternal     Kind = "model-internal"
	KPIUnavailable    Kind = "kpi-unavailable"
)

// Retryable reports whether the Controller's retry policy should consider
// re-attempting an iteration that failed with this kind.
func (k Kind) Retryable() bool {
	switch k {
	case SpawnFailed, Timeout, ExitNonzero, ParseFailed, ModelInternal:
		return true
	default:
		return false
	}
}

// Error wraps an underlying cause with a taxonomy Kind.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error, otherwise
// returns ModelInternal as the catch-all classification.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return ModelInternal
}
