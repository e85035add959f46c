// Package snaperr defines the error kinds surfaced by the snapshot engine.
//
// Every failure that is not a plain mismatch is reported as an *Error with a
// Code. The workflow never recovers from these automatically: each one becomes
// a failed verdict carrying the error.
package snaperr

import (
	"errors"
	"fmt"
)

// Code categorizes snapshot errors.
type Code string

const (
	// CodeUnrenderable indicates an adapter could not produce a serialized form
	// (for example a zero-sized rendering target).
	CodeUnrenderable Code = "UNRENDERABLE_VALUE"

	// CodeDecode indicates stored bytes cannot be interpreted under the declared format.
	CodeDecode Code = "CODEC_DECODE_FAILURE"

	// CodeMisuse indicates an asynchronous continuation was resolved more than once.
	CodeMisuse Code = "ASYNC_CONTINUATION_MISUSE"

	// CodeTimeout indicates an asynchronous continuation was never resolved
	// within the bounded wait.
	CodeTimeout Code = "ASYNC_TIMEOUT"

	// CodeStoreIO indicates a persist or load failure in a snapshot store.
	CodeStoreIO Code = "STORE_IO_FAILURE"
)

// Error is a categorized snapshot error.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Op names the operation that failed ("save", "decode", "resolve", ...).
	Op string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Unrenderable creates an error for a value an adapter cannot serialize.
func Unrenderable(message string, err error) *Error {
	return &Error{Code: CodeUnrenderable, Op: "snapshot", Message: message, Err: err}
}

// Decode creates an error for bytes that cannot be decoded as format.
func Decode(format string, err error) *Error {
	return &Error{
		Code:    CodeDecode,
		Op:      "decode",
		Message: fmt.Sprintf("stored bytes are not valid %s", format),
		Err:     err,
	}
}

// Misuse creates an error for a continuation resolved more than once.
func Misuse(message string) *Error {
	return &Error{Code: CodeMisuse, Op: "resolve", Message: message}
}

// Timeout creates an error for a continuation that was never resolved.
func Timeout(message string, err error) *Error {
	return &Error{Code: CodeTimeout, Op: "await", Message: message, Err: err}
}

// StoreIO creates an error for a failed store operation on path.
func StoreIO(op, path string, err error) *Error {
	return &Error{Code: CodeStoreIO, Op: op, Message: path, Err: err}
}

// CodeOf returns the Code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsUnrenderable reports whether err is an unrenderable-value error.
func IsUnrenderable(err error) bool { return CodeOf(err) == CodeUnrenderable }

// IsDecode reports whether err is a codec decode failure.
func IsDecode(err error) bool { return CodeOf(err) == CodeDecode }

// IsMisuse reports whether err is a continuation misuse: resolved more than
// once, or never resolved before the bounded wait expired.
func IsMisuse(err error) bool {
	code := CodeOf(err)
	return code == CodeMisuse || code == CodeTimeout
}

// IsTimeout reports whether err is an expired bounded wait.
func IsTimeout(err error) bool { return CodeOf(err) == CodeTimeout }

// IsStoreIO reports whether err is a store I/O failure.
func IsStoreIO(err error) bool { return CodeOf(err) == CodeStoreIO }
