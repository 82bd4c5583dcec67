package api

import (
	"errors"
	"fmt"
)

// TransportError means no HTTP response was received: dial failure, reset,
// timeout, or cancellation before the request completed.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is a response with a non-2xx status.
type StatusError struct {
	Op         string
	StatusCode int
	Code       string
	Message    string
	RequestID  string
}

func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "unexpected status"
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %d %s: %s", e.Op, e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("%s: %d: %s", e.Op, e.StatusCode, msg)
}

func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}
