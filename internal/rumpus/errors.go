package rumpus

import (
	"errors"
	"fmt"
)

// ErrInvalidKey is returned by New for a delegation key that is empty or
// cannot be sent as an HTTP header value.
var ErrInvalidKey = errors.New("invalid delegation key")

// ErrInvalidBaseURL is returned by New for a base URL that is not an
// absolute http(s) URL.
var ErrInvalidBaseURL = errors.New("invalid base URL")

// TransportError reports a request that did not produce a decodable
// response: the request failed outright or the API answered with a non-2xx
// status.
type TransportError struct {
	// Endpoint is the name of the endpoint that was requested
	Endpoint string

	// StatusCode is the HTTP status code (0 if no response was received)
	StatusCode int

	// Message is the API's error message, or the status text
	Message string

	// Cause is the underlying error (if any)
	Cause error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	msg := fmt.Sprintf("rumpus %s", e.Endpoint)
	if e.StatusCode > 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	msg += ": " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain support.
func (e *TransportError) Unwrap() error {
	return e.Cause
}
