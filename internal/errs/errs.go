// Package errs defines the error kinds shared by ingestion and retrieval.
package errs

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrIO           = errors.New("medibot: io failure")
	ErrConfig       = errors.New("medibot: invalid configuration")
	ErrCorruptIndex = errors.New("medibot: corrupt index")
)

// Error tags an underlying error with the operation that failed and its kind.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Wrap returns err tagged with op and kind, or nil when err is nil.
func Wrap(op string, kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// New builds an Error of the given kind from a formatted message.
func New(op string, kind error, format string, args ...any) error {
	return &Error{Op: op, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf reports which of the known kinds err carries, or nil.
func KindOf(err error) error {
	for _, k := range []error{ErrIO, ErrConfig, ErrCorruptIndex} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
