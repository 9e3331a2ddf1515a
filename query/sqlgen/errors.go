package sqlgen

import "fmt"

// BuildError reports builder state that cannot be compiled into valid SQL.
// It is a programming error: the compiler fails fast instead of emitting
// a malformed statement.
type BuildError struct {
	Op     string
	Reason string
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	return fmt.Sprintf("cannot build %s: %s", e.Op, e.Reason)
}

func newBuildError(op, reason string) *BuildError {
	return &BuildError{Op: op, Reason: reason}
}

// QuoteError reports a value that could not be quoted, usually because
// the engine's string escaping primitive failed.
type QuoteError struct {
	Value string
	Cause error
}

// Error implements the error interface.
func (e *QuoteError) Error() string {
	return fmt.Sprintf("cannot quote %q: %v", e.Value, e.Cause)
}

// Unwrap returns the underlying error.
func (e *QuoteError) Unwrap() error {
	return e.Cause
}
