package ir

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind categorizes IR and code generation errors.
type ErrorKind uint8

const (
	// ErrStructural indicates malformed IR, e.g. a construct routed to an
	// incompatible backend.
	ErrStructural ErrorKind = iota

	// ErrNumeric indicates a literal that cannot be represented, e.g. NaN.
	ErrNumeric

	// ErrNotImplemented indicates a tag with no lowering rule on the selected
	// backend, or an unimplemented node factory path.
	ErrNotImplemented

	// ErrConsistency indicates a broken internal invariant: a frozen hash that
	// changed or a call graph cycle.
	ErrConsistency
)

// String returns a human-readable error kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrStructural:
		return "StructuralError"
	case ErrNumeric:
		return "NumericError"
	case ErrNotImplemented:
		return "NotImplemented"
	case ErrConsistency:
		return "ConsistencyError"
	default:
		return "Unknown"
	}
}

// Error is a fatal IR or code generation error.
type Error struct {
	// Kind categorizes the error.
	Kind ErrorKind

	// Message provides details about the error.
	Message string

	// Context optionally names the construct being processed
	// (a tag, a type description, a function).
	Context string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s in %s: %s", e.Kind, e.Context, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewError creates a new error without construct context.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewErrorWithContext creates a new error naming the construct it occurred in.
func NewErrorWithContext(kind ErrorKind, context, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Context: context}
}

// IsKind reports whether err, or the cause it wraps, is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
