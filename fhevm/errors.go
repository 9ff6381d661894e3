package fhevm

import (
	"fmt"
)

// Error is a typed adapter failure. Decorated copies keep the Code, so they
// still match their sentinel with errors.Is.
type Error struct {
	Err  error
	Code int
}

// Error returns the message contained inside the Error.
func (e Error) Error() string {
	return e.Err.Error()
}

// Unwrap returns the wrapped error.
func (e Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an Error with the same Code.
func (e Error) Is(target error) bool {
	t, ok := target.(Error)
	return ok && t.Code == e.Code
}

// Withf returns a copy of Error with the Sprintf formatted string appended at the end of e.Err
func (e Error) Withf(format string, args ...any) Error {
	return Error{
		Err:  fmt.Errorf("%w: %v", e.Err, fmt.Sprintf(format, args...)),
		Code: e.Code,
	}
}

// With returns a copy of Error with the string appended at the end of e.Err
func (e Error) With(s string) Error {
	return Error{
		Err:  fmt.Errorf("%w: %v", e.Err, s),
		Code: e.Code,
	}
}

// WithErr returns a copy of Error wrapping err as well, so both can be
// matched with errors.Is.
func (e Error) WithErr(err error) Error {
	return Error{
		Err:  fmt.Errorf("%w: %w", e.Err, err),
		Code: e.Code,
	}
}
