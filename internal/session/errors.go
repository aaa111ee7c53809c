package session

import (
	"errors"
	"fmt"
)

var (
	// ErrCapacityExceeded is matched by every CapacityError
	ErrCapacityExceeded = errors.New("session capacity exceeded")

	// ErrNotFound means no live session has the requested name
	ErrNotFound = errors.New("session not found")

	// ErrSessionClosed is returned by Do once the session has been torn down
	ErrSessionClosed = errors.New("session closed")

	// ErrShuttingDown is returned by Resolve after DrainAll has started
	ErrShuttingDown = errors.New("session registry is shutting down")
)

// CapacityError reports an admission rejection
type CapacityError struct {
	Max int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("maximum number of concurrent sessions (%d) reached", e.Max)
}

func (e *CapacityError) Is(target error) bool {
	return target == ErrCapacityExceeded
}

// LaunchError reports an engine that failed to start
type LaunchError struct {
	Name string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch browser for session %q: %v", e.Name, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}
