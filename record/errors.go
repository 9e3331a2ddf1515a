package record

import (
	"errors"
	"fmt"
)

// Sentinel errors for record lifecycle violations.
var (
	// ErrNotLoaded is returned when update or delete is attempted on a
	// record that is not persisted.
	ErrNotLoaded = errors.New("record is not loaded")

	// ErrAlreadyPersisted is returned when create is attempted on a
	// record that is already persisted.
	ErrAlreadyPersisted = errors.New("record is already persisted")

	// ErrNotFound is the sentinel matched by NotFoundError via errors.Is.
	ErrNotFound = errors.New("record not found")
)

// NotFoundError is raised by the find-or-fail entry point when no row
// matches the identifier. The plain lookup returns a nil sentinel
// instead.
type NotFoundError struct {
	Table string
	ID    interface{}
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %s record with id %v", e.Table, e.ID)
}

// Is reports whether the error matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// InvariantError reports a broken internal invariant, such as a
// serialized field whose stored value is not a string.
type InvariantError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}
