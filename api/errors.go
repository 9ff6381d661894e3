package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/vocdoni/nebula-fhevm/log"
)

// Error is the error returned by the relayer handlers. Code identifies the
// kind of failure and HTTPstatus is the status the response is written with.
// Two Errors match with errors.Is when their codes are equal, so a copy made
// with With, Withf or WithErr still matches the definition it came from.
type Error struct {
	Err        error
	Code       int
	HTTPstatus int
}

// MarshalJSON encodes the message and the code, for example
// {"error":"handle not found","code":40016}. HTTPstatus is not encoded.
func (e Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(
		struct {
			Err  string `json:"error"`
			Code int    `json:"code"`
		}{
			Err:  e.Err.Error(),
			Code: e.Code,
		})
}

// UnmarshalJSON decodes an error body written by Write.
func (e *Error) UnmarshalJSON(data []byte) error {
	var body struct {
		Err  string `json:"error"`
		Code int    `json:"code"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return err
	}
	e.Err = errors.New(body.Err)
	e.Code = body.Code
	return nil
}

// ParseError decodes an error body returned by the relayer with the given
// HTTP status.
func ParseError(data []byte, status int) (Error, error) {
	e := Error{HTTPstatus: status}
	if err := json.Unmarshal(data, &e); err != nil {
		return Error{}, fmt.Errorf("invalid error body: %w", err)
	}
	return e, nil
}

func (e Error) Error() string {
	return e.Err.Error()
}

func (e Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an Error with the same code.
func (e Error) Is(target error) bool {
	t, ok := target.(Error)
	return ok && t.Code == e.Code
}

// Write sends the error as a JSON body with the error HTTP status.
func (e Error) Write(w http.ResponseWriter) {
	msg, err := json.Marshal(e)
	if err != nil {
		log.Warn(err)
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	if log.Level() == log.LogLevelDebug {
		log.Debugw("API error response", "error", e.Error(), "code", e.Code, "httpStatus", e.HTTPstatus)
	}
	w.Header().Set("Content-Type", "application/json")
	http.Error(w, string(msg), e.HTTPstatus)
}

// Withf returns a copy of e with the formatted string appended to the message.
func (e Error) Withf(format string, args ...any) Error {
	return e.wrap(fmt.Errorf("%w: %v", e.Err, fmt.Sprintf(format, args...)))
}

// With returns a copy of e with s appended to the message.
func (e Error) With(s string) Error {
	return e.wrap(fmt.Errorf("%w: %v", e.Err, s))
}

// WithErr returns a copy of e wrapping err too, so both match with errors.Is.
func (e Error) WithErr(err error) Error {
	return e.wrap(fmt.Errorf("%w: %w", e.Err, err))
}

func (e Error) wrap(err error) Error {
	return Error{Err: err, Code: e.Code, HTTPstatus: e.HTTPstatus}
}
