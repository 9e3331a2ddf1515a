// Package engine wraps a database/sql connection behind the execution
// surface the query builder and active record layers depend on: raw
// statement execution, string escaping, coarse transactions and named
// advisory locks. It never retries a failed statement; driver errors
// propagate wrapped in *Error.
package engine

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/quillsql/quill/internal/debug"
)

// Engine executes compiled SQL against one database connection pool.
// An Engine is not safe for use across concurrent logical operations
// while a transaction is active.
type Engine struct {
	db       *sql.DB
	provider string
	tx       *sql.Tx
	closed   bool
}

// Open opens a connection pool for the given provider and DSN.
// Supported providers: "postgres"/"postgresql", "mysql", "sqlite".
func Open(provider, dsn string) (*Engine, error) {
	driver := driverName(provider)
	if driver == "" {
		return nil, &Error{SQL: "", Cause: errUnsupportedProvider(provider)}
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, wrapError("", err)
	}
	return &Engine{db: db, provider: normalizeProvider(provider)}, nil
}

// FromDB wraps an existing connection pool.
func FromDB(provider string, db *sql.DB) *Engine {
	return &Engine{db: db, provider: normalizeProvider(provider)}
}

func driverName(provider string) string {
	switch normalizeProvider(provider) {
	case "postgres":
		return "postgres"
	case "mysql":
		return "mysql"
	case "sqlite":
		return "sqlite3"
	default:
		return ""
	}
}

func normalizeProvider(provider string) string {
	switch strings.ToLower(provider) {
	case "postgresql", "postgres":
		return "postgres"
	case "mysql":
		return "mysql"
	case "sqlite", "sqlite3":
		return "sqlite"
	default:
		return strings.ToLower(provider)
	}
}

type unsupportedProviderError string

func (e unsupportedProviderError) Error() string {
	return "unsupported provider: " + string(e)
}

func errUnsupportedProvider(provider string) error {
	return unsupportedProviderError(provider)
}

// Provider returns the normalized provider name.
func (e *Engine) Provider() string {
	return e.provider
}

// DB returns the underlying connection pool.
func (e *Engine) DB() *sql.DB {
	return e.db
}

// Connect verifies the connection.
func (e *Engine) Connect(ctx context.Context) error {
	if e.closed {
		return ErrClosed
	}
	return wrapError("", e.db.PingContext(ctx))
}

// Close closes the connection pool. Escaping and execution fail with
// ErrClosed afterwards.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	if e.db == nil {
		return nil
	}
	return e.db.Close()
}

// Query executes a statement that returns rows.
func (e *Engine) Query(ctx context.Context, sqlText string) (*sql.Rows, error) {
	if e.closed {
		return nil, &Error{SQL: sqlText, Cause: ErrClosed}
	}
	start := time.Now()
	var rows *sql.Rows
	var err error
	if e.tx != nil {
		rows, err = e.tx.QueryContext(ctx, sqlText)
	} else {
		rows, err = e.db.QueryContext(ctx, sqlText)
	}
	debug.Query(sqlText, time.Since(start), err)
	if err != nil {
		return nil, wrapError(sqlText, err)
	}
	return rows, nil
}

// Exec executes a statement and returns the affected-row count.
func (e *Engine) Exec(ctx context.Context, sqlText string) (int64, error) {
	res, err := e.exec(ctx, sqlText)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, wrapError(sqlText, err)
	}
	return affected, nil
}

// ExecInsert executes an INSERT statement and returns the engine-issued
// identifier of the inserted row.
func (e *Engine) ExecInsert(ctx context.Context, sqlText string) (int64, error) {
	res, err := e.exec(ctx, sqlText)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrapError(sqlText, err)
	}
	return id, nil
}

func (e *Engine) exec(ctx context.Context, sqlText string) (sql.Result, error) {
	if e.closed {
		return nil, &Error{SQL: sqlText, Cause: ErrClosed}
	}
	start := time.Now()
	var res sql.Result
	var err error
	if e.tx != nil {
		res, err = e.tx.ExecContext(ctx, sqlText)
	} else {
		res, err = e.db.ExecContext(ctx, sqlText)
	}
	debug.Query(sqlText, time.Since(start), err)
	if err != nil {
		return nil, wrapError(sqlText, err)
	}
	return res, nil
}

// EscapeString escapes a string for inclusion in a single-quoted SQL
// literal, using the provider's convention: backslash escaping for
// MySQL, quote doubling otherwise. It fails once the engine is closed.
func (e *Engine) EscapeString(s string) (string, error) {
	if e.closed {
		return "", ErrClosed
	}
	if e.provider == "mysql" {
		return escapeBackslash(s), nil
	}
	return strings.ReplaceAll(s, "'", "''"), nil
}

func escapeBackslash(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case 0:
			b.WriteString(`\0`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case 0x1a:
			b.WriteString(`\Z`)
		case '\'':
			b.WriteString(`\'`)
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Begin starts a connection-scoped transaction. Transactions are coarse
// and non-composable; a second Begin before Commit/Rollback fails.
func (e *Engine) Begin(ctx context.Context) error {
	if e.closed {
		return ErrClosed
	}
	if e.tx != nil {
		return ErrTxActive
	}
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapError("BEGIN", err)
	}
	e.tx = tx
	return nil
}

// Commit commits the active transaction.
func (e *Engine) Commit() error {
	if e.tx == nil {
		return ErrNoTx
	}
	err := e.tx.Commit()
	e.tx = nil
	return wrapError("COMMIT", err)
}

// Rollback rolls back the active transaction.
func (e *Engine) Rollback() error {
	if e.tx == nil {
		return ErrNoTx
	}
	err := e.tx.Rollback()
	e.tx = nil
	return wrapError("ROLLBACK", err)
}

// InTransaction reports whether a transaction is active.
func (e *Engine) InTransaction() bool {
	return e.tx != nil
}

// GetLock acquires a named advisory lock, waiting up to timeout
// seconds. It reports whether the lock was obtained.
func (e *Engine) GetLock(ctx context.Context, name string, timeout int) (bool, error) {
	escaped, err := e.EscapeString(name)
	if err != nil {
		return false, err
	}
	var sqlText string
	switch e.provider {
	case "mysql":
		sqlText = "SELECT GET_LOCK('" + escaped + "', " + strconv.Itoa(timeout) + ")"
	case "postgres":
		sqlText = "SELECT pg_try_advisory_lock(hashtext('" + escaped + "'))"
	default:
		return false, ErrLockUnsupported
	}
	return e.queryLock(ctx, sqlText)
}

// ReleaseLock releases a named advisory lock.
func (e *Engine) ReleaseLock(ctx context.Context, name string) (bool, error) {
	escaped, err := e.EscapeString(name)
	if err != nil {
		return false, err
	}
	var sqlText string
	switch e.provider {
	case "mysql":
		sqlText = "SELECT RELEASE_LOCK('" + escaped + "')"
	case "postgres":
		sqlText = "SELECT pg_advisory_unlock(hashtext('" + escaped + "'))"
	default:
		return false, ErrLockUnsupported
	}
	return e.queryLock(ctx, sqlText)
}

func (e *Engine) queryLock(ctx context.Context, sqlText string) (bool, error) {
	rows, err := e.Query(ctx, sqlText)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	if !rows.Next() {
		return false, wrapError(sqlText, rows.Err())
	}
	var got sql.NullBool
	if err := rows.Scan(&got); err != nil {
		return false, wrapError(sqlText, err)
	}
	return got.Valid && got.Bool, nil
}
