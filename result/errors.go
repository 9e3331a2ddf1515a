package result

import (
	"errors"
	"fmt"
)

// ErrFieldNotFound is the sentinel matched by FieldError via errors.Is.
var ErrFieldNotFound = errors.New("field not found")

// FieldError reports access to a column that does not exist in the
// result schema. It is distinct from a present-but-null value.
type FieldError struct {
	Field string
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return fmt.Sprintf("no such field %q", e.Field)
}

// Is reports whether the error matches ErrFieldNotFound.
func (e *FieldError) Is(target error) bool {
	return target == ErrFieldNotFound
}

// CursorError reports a driver-level fetch failure. After a CursorError
// the cursor position is undefined and iteration must not continue.
type CursorError struct {
	Op    string
	Cause error
}

// Error implements the error interface.
func (e *CursorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cursor %s: %v", e.Op, e.Cause)
	}
	return "cursor " + e.Op
}

// Unwrap returns the underlying error.
func (e *CursorError) Unwrap() error {
	return e.Cause
}
