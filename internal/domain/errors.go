// internal/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

// Flow errors are returned by the auth coordinator when a transition is
// requested from a state that does not allow it. Callers check them with errors.Is.
var (
	ErrNotIdle          = &FlowError{Reason: "an authentication flow is already active"}
	ErrNoPendingFlow    = &FlowError{Reason: "no pending device flow"}
	ErrNotAuthenticated = &FlowError{Reason: "not authenticated"}
	ErrVerifyInProgress = &FlowError{Reason: "verification already in progress"}
)

// FlowError reports misuse of the authentication state machine.
type FlowError struct {
	Reason string
}

func (e *FlowError) Error() string {
	return e.Reason
}

// TransportError is returned when the backend could not be reached at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ServiceError is returned by every service client operation on failure.
// Op names the remote operation ("status", "start", "poll", ...).
// StatusCode is zero when the failure happened before a response was read.
type ServiceError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: backend returned %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err was caused by a transport failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
