package announce

import (
	"errors"
	"fmt"
)

// ErrNotFound reports that the requested announcement does not exist in the
// given scope.
var ErrNotFound = errors.New("announce: announcement not found")

// ValidationError rejects malformed input before any side effect happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PersistenceError wraps a Config Store failure. It always fails the whole
// call; no partial state is reported as success past it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("announce: persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func persistErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}
