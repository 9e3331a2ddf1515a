package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestEngine(t *testing.T) *Engine {
	t.Helper()
	eng, err := Open("sqlite", ":memory:")
	require.NoError(t, err)
	// An in-memory database exists per connection.
	eng.DB().SetMaxOpenConns(1)
	t.Cleanup(func() { eng.Close() })
	return eng
}

func TestOpen_UnsupportedProvider(t *testing.T) {
	_, err := Open("oracle", "whatever")
	require.Error(t, err)
}

func TestEngine_ProviderNormalization(t *testing.T) {
	assert.Equal(t, "postgres", FromDB("PostgreSQL", nil).Provider())
	assert.Equal(t, "sqlite", FromDB("sqlite3", nil).Provider())
	assert.Equal(t, "mysql", FromDB("MySQL", nil).Provider())
}

func TestEngine_EscapeString(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		in       string
		want     string
	}{
		{"mysql backslash", "mysql", "O'Reilly", `O\'Reilly`},
		{"mysql backslash literal", "mysql", `a\b`, `a\\b`},
		{"mysql newline", "mysql", "a\nb", `a\nb`},
		{"postgres quote doubling", "postgres", "O'Reilly", "O''Reilly"},
		{"postgres leaves backslash", "postgres", `a\b`, `a\b`},
		{"sqlite quote doubling", "sqlite", "it's", "it''s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromDB(tt.provider, nil).EscapeString(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEngine_ClosedFails(t *testing.T) {
	eng := openTestEngine(t)
	require.NoError(t, eng.Close())

	_, err := eng.EscapeString("x")
	assert.ErrorIs(t, err, ErrClosed)

	_, err = eng.Query(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, ErrClosed)

	_, err = eng.Exec(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, ErrClosed)

	assert.ErrorIs(t, eng.Begin(context.Background()), ErrClosed)
}

func TestEngine_ExecAndQuery(t *testing.T) {
	eng := openTestEngine(t)
	ctx := context.Background()

	_, err := eng.Exec(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY AUTOINCREMENT, v TEXT)")
	require.NoError(t, err)

	id, err := eng.ExecInsert(ctx, "INSERT INTO t (v) VALUES ('a')")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	affected, err := eng.Exec(ctx, "UPDATE t SET v = 'b'")
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	rows, err := eng.Query(ctx, "SELECT v FROM t")
	require.NoError(t, err)
	defer rows.Close()
	require.True(t, rows.Next())
	var v string
	require.NoError(t, rows.Scan(&v))
	assert.Equal(t, "b", v)
}

func TestEngine_WrapsDriverErrors(t *testing.T) {
	eng := openTestEngine(t)

	_, err := eng.Query(context.Background(), "SELECT * FROM missing")
	require.Error(t, err)

	var engErr *Error
	require.True(t, errors.As(err, &engErr))
	assert.Equal(t, "SELECT * FROM missing", engErr.SQL)
	assert.NotNil(t, engErr.Cause)
}

func TestEngine_Transactions(t *testing.T) {
	eng := openTestEngine(t)
	ctx := context.Background()

	_, err := eng.Exec(ctx, "CREATE TABLE t (v TEXT)")
	require.NoError(t, err)

	assert.ErrorIs(t, eng.Commit(), ErrNoTx)
	assert.ErrorIs(t, eng.Rollback(), ErrNoTx)

	require.NoError(t, eng.Begin(ctx))
	assert.True(t, eng.InTransaction())
	assert.ErrorIs(t, eng.Begin(ctx), ErrTxActive)

	_, err = eng.Exec(ctx, "INSERT INTO t (v) VALUES ('a')")
	require.NoError(t, err)
	require.NoError(t, eng.Rollback())
	assert.False(t, eng.InTransaction())

	rows, err := eng.Query(ctx, "SELECT COUNT(*) FROM t")
	require.NoError(t, err)
	defer rows.Close()
	require.True(t, rows.Next())
	var n int
	require.NoError(t, rows.Scan(&n))
	assert.Equal(t, 0, n)
	// Release the pool's only connection before the next Begin.
	require.NoError(t, rows.Close())

	require.NoError(t, eng.Begin(ctx))
	_, err = eng.Exec(ctx, "INSERT INTO t (v) VALUES ('b')")
	require.NoError(t, err)
	require.NoError(t, eng.Commit())

	rows, err = eng.Query(ctx, "SELECT COUNT(*) FROM t")
	require.NoError(t, err)
	defer rows.Close()
	require.True(t, rows.Next())
	require.NoError(t, rows.Scan(&n))
	assert.Equal(t, 1, n)
}

func TestEngine_LocksUnsupportedOnSQLite(t *testing.T) {
	eng := openTestEngine(t)

	_, err := eng.GetLock(context.Background(), "jobs", 1)
	assert.ErrorIs(t, err, ErrLockUnsupported)

	_, err = eng.ReleaseLock(context.Background(), "jobs")
	assert.ErrorIs(t, err, ErrLockUnsupported)
}
