package engine

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Sentinel errors for engine state.
var (
	// ErrClosed is returned when an operation is attempted on a closed engine.
	ErrClosed = errors.New("engine is closed")

	// ErrTxActive is returned when Begin is called while a transaction is open.
	ErrTxActive = errors.New("transaction already active")

	// ErrNoTx is returned when Commit or Rollback is called without a transaction.
	ErrNoTx = errors.New("no active transaction")

	// ErrLockUnsupported is returned when advisory locks are not available
	// for the engine's provider.
	ErrLockUnsupported = errors.New("advisory locks are not supported by this provider")
)

// Error wraps a driver-level failure with the driver error code and the
// offending SQL so callers can diagnose without re-running the query.
type Error struct {
	Code  string
	SQL   string
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("engine error %s: %v (SQL: %s)", e.Code, e.Cause, e.SQL)
	}
	return fmt.Sprintf("engine error: %v (SQL: %s)", e.Cause, e.SQL)
}

// Unwrap returns the underlying driver error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// wrapError wraps a driver error, extracting the driver-specific error
// code where the driver exposes one.
func wrapError(sqlText string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: driverCode(err), SQL: sqlText, Cause: err}
}

func driverCode(err error) string {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return strconv.FormatUint(uint64(myErr.Number), 10)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return strconv.Itoa(int(liteErr.Code))
	}
	return ""
}
