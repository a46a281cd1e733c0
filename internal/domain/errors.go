package domain

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrWatchNotFound   = errors.New("watch not found")
	ErrSubjectNotFound = errors.New("subject not found in ranking")
	ErrNoData          = errors.New("response carried no data")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrInternalError   = errors.New("internal server error")
)

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrWatchNotFound) || errors.Is(err, ErrSubjectNotFound)
}

// LimitError reports a search parameter that exceeds a hard limit of the API.
// The builder that produced it is left unchanged.
type LimitError struct {
	// Param is the wire name of the offending parameter
	Param string

	// Value is the rejected value (or list length)
	Value uint64

	// Maximum is the largest accepted value (or list length)
	Maximum uint64
}

// Error implements the error interface.
func (e *LimitError) Error() string {
	return fmt.Sprintf("%s: %d exceeds the maximum of %d", e.Param, e.Value, e.Maximum)
}

// DecodeError reports a response body that does not match the expected
// entity schema.
type DecodeError struct {
	// Path locates the offending value, e.g. "data[2].stats.Shoes".
	// Empty when the body is not valid JSON.
	Path string

	// Offset is the byte offset of a syntax error, 0 otherwise
	Offset int64

	// Reason describes what is wrong
	Reason string

	// Cause is the underlying error (if any)
	Cause error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	msg := "decode response"
	if e.Path != "" {
		msg += " at " + e.Path
	}
	if e.Offset > 0 {
		msg += fmt.Sprintf(" (offset %d)", e.Offset)
	}
	msg += ": " + e.Reason
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain support.
func (e *DecodeError) Unwrap() error {
	return e.Cause
}
