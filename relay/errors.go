package relay

import (
	"errors"
	"fmt"
)

var (
	// ErrCouldNotConnect wraps every failure of the host and join flows.
	ErrCouldNotConnect = errors.New("could not connect to relay")

	ErrUnauthorized       = errors.New("relay: not signed in")
	ErrAllocationNotFound = errors.New("relay: allocation not found")
	ErrJoinCodeNotFound   = errors.New("relay: join code not found")
	ErrAllocationFull     = errors.New("relay: allocation full")
	ErrNotReady           = errors.New("relay: host has not published an endpoint")
)

// ServiceError is a non-2xx answer from the broker.
type ServiceError struct {
	Status  int
	Code    string
	Message string
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("relay service error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("relay service error %d (%s)", e.Status, e.Code)
}

// Is lets callers match a ServiceError against the sentinel for its code.
func (e *ServiceError) Is(target error) bool {
	switch e.Code {
	case CodeUnauthorized:
		return target == ErrUnauthorized
	case CodeAllocationNotFound:
		return target == ErrAllocationNotFound
	case CodeJoinCodeNotFound:
		return target == ErrJoinCodeNotFound
	case CodeAllocationFull:
		return target == ErrAllocationFull
	case CodeNotReady:
		return target == ErrNotReady
	}
	return false
}
