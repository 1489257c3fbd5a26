package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady is returned when a withdrawal is attempted outside ReadyToWithdraw.
	ErrNotReady = errors.New("deposit is not ready to withdraw")
	// ErrTornDown is returned by operations on a component that has been stopped.
	ErrTornDown = errors.New("component has been torn down")
)

// TransportError means the request did not complete or the node answered with
// a non-success status.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status code %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ApplicationError is a well-formed reply that explicitly signals failure.
// Reason is the server's message, verbatim.
type ApplicationError struct {
	Op     string
	Reason string
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// ValidationError is a client-side precondition failure; no request was sent.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid request: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }
