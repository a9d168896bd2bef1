// Package errs defines the error kinds that services report to the HTTP and MCP layers.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a failure for the request boundary.
type Kind int

const (
	KindStore Kind = iota
	KindValidation
	KindNotFound
	KindUpload
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindUpload:
		return "upload"
	default:
		return "store"
	}
}

// Error carries a Kind, a caller-facing message and an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Store wraps a persistence failure. A nil err yields nil.
func Store(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindStore, Msg: msg, Err: err}
}

// Upload wraps an object store failure. A nil err yields nil.
func Upload(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindUpload, Msg: msg, Err: err}
}

// KindOf reports the Kind of the first *Error in err's chain.
// Errors outside the taxonomy are treated as store failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStore
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}
