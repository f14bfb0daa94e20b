package service

import (
	"context"
	"errors"
	"fmt"
)

// Operation names used in TransportError.Op.
const (
	OpListTasks   = "list tasks"
	OpCreateTask  = "create task"
	OpUpdateTask  = "update task"
	OpDeleteTask  = "delete task"
	OpProbeHealth = "probe health"
)

// TransportError is the only error kind returned across the Remote boundary.
// It covers network failures, timeouts and non-2xx responses.
type TransportError struct {
	// Op names the failed operation, e.g. "list tasks".
	Op string

	// StatusCode is the HTTP status when a response was received, 0 otherwise.
	StatusCode int

	// Reason is the human-readable cause shown to the user.
	Reason string

	// Err is the underlying error, if any.
	Err error
}

// Error returns the human-readable reason.
func (e *TransportError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "request failed"
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the call was cut short by a deadline.
func (e *TransportError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// NewStatusError builds a TransportError for a non-2xx response.
func NewStatusError(op string, status int) *TransportError {
	return &TransportError{
		Op:         op,
		StatusCode: status,
		Reason:     fmt.Sprintf("request failed with status code %d", status),
	}
}

// AsTransportError converts err into a *TransportError.
// Errors that are not already transport errors are wrapped with op.
func AsTransportError(op string, err error) *TransportError {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te
	}

	reason := err.Error()
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		reason = "timeout"
	case errors.Is(err, context.Canceled):
		reason = "request cancelled"
	}
	return &TransportError{Op: op, Reason: reason, Err: err}
}
