package indexing

import (
	"errors"
	"fmt"
)

// Kind separates failures that must stop a run from those the run absorbs.
type Kind int

// Error kinds.
const (
	KindFatal Kind = iota + 1
	KindRecoverable
)

func (k Kind) String() string {
	switch k {
	case KindFatal:
		return "fatal"
	case KindRecoverable:
		return "recoverable"
	default:
		return "unknown"
	}
}

// Sentinels wrapped by *Error.
var (
	ErrCredentialLoad = errors.New("credential load failed")
	ErrTokenRefresh   = errors.New("token refresh failed")
	ErrFetch          = errors.New("sitemap fetch failed")
	ErrParse          = errors.New("sitemap parse failed")
)

// Error carries the kind, the failing operation and its input.
type Error struct {
	Kind  Kind
	Op    string
	Input string
	Err   error
}

func (e *Error) Error() string {
	if e.Input == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Input, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps cause under sentinel so both match with errors.Is.
func NewError(kind Kind, op, input string, sentinel, cause error) *Error {
	var err error
	switch {
	case cause == nil:
		err = sentinel
	case sentinel == nil:
		err = cause
	default:
		err = fmt.Errorf("%w: %w", sentinel, cause)
	}
	return &Error{Kind: kind, Op: op, Input: input, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return 0
}

// IsFatal reports whether err must abort the run.
func IsFatal(err error) bool {
	return KindOf(err) == KindFatal
}

// IsRecoverable reports whether the run may continue or abort gracefully.
func IsRecoverable(err error) bool {
	return KindOf(err) == KindRecoverable
}
