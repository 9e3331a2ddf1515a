package result

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openRows(t *testing.T, shape Shape) *Cursor {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec("CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, nickname TEXT)")
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO users (id, name, nickname) VALUES
		(1, 'John', NULL),
		(2, 'Jane', 'JJ'),
		(3, 'Ann', NULL)`)
	require.NoError(t, err)

	rows, err := db.Query("SELECT id, name, nickname FROM users ORDER BY id")
	require.NoError(t, err)

	cur, err := NewCursor(rows, shape)
	require.NoError(t, err)
	t.Cleanup(func() { cur.Close() })
	return cur
}

func TestCursor_Iterate(t *testing.T) {
	cur := openRows(t, Shape{})

	var names []string
	for cur.Next() {
		names = append(names, cur.Current()["name"].(string))
	}
	require.NoError(t, cur.Err())
	assert.Equal(t, []string{"John", "Jane", "Ann"}, names)
}

func TestCursor_RewindReplaysBuffer(t *testing.T) {
	cur := openRows(t, Shape{})

	for cur.Next() {
	}
	require.NoError(t, cur.Err())

	cur.Rewind()
	require.True(t, cur.Next())
	assert.Equal(t, "John", cur.Current()["name"])
}

func TestCursor_SeekAndIndex(t *testing.T) {
	cur := openRows(t, Shape{})

	require.NoError(t, cur.Seek(2))
	assert.Equal(t, "Ann", cur.Current()["name"])

	// Index does not move the cursor.
	row, err := cur.Index(0)
	require.NoError(t, err)
	assert.Equal(t, "John", row["name"])
	assert.Equal(t, "Ann", cur.Current()["name"])

	err = cur.Seek(9)
	require.Error(t, err)
	var cerr *CursorError
	assert.True(t, errors.As(err, &cerr))
}

func TestCursor_Count(t *testing.T) {
	cur := openRows(t, Shape{})

	n, err := cur.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// Counting drains the stream but rows stay readable.
	require.True(t, cur.Next())
	assert.Equal(t, "John", cur.Current()["name"])
}

func TestCursor_Column(t *testing.T) {
	cur := openRows(t, Shape{})
	require.True(t, cur.Next())

	v, err := cur.Column("name", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "John", v)

	// NULL value yields the default.
	v, err = cur.Column("nickname", "none")
	require.NoError(t, err)
	assert.Equal(t, "none", v)

	// A column missing from the schema is an error, not a default.
	_, err = cur.Column("email", "none")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFieldNotFound)

	var ferr *FieldError
	require.True(t, errors.As(err, &ferr))
	assert.Equal(t, "email", ferr.Field)
}

func TestCursor_OneEmptyIsNil(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec("CREATE TABLE t (v TEXT)")
	require.NoError(t, err)
	rows, err := db.Query("SELECT v FROM t")
	require.NoError(t, err)

	cur, err := NewCursor(rows, Shape{})
	require.NoError(t, err)
	defer cur.Close()

	v, err := cur.One()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestCursor_AllHydrated(t *testing.T) {
	cur := openRows(t, Shape{
		Hydrate: func(row Row) (interface{}, error) {
			return fmt.Sprintf("%v:%v", row["id"], row["name"]), nil
		},
	})

	all, err := cur.All()
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"1:John", "2:Jane", "3:Ann"}, all)
}

func TestCursor_IndexedLastWins(t *testing.T) {
	cur := openRows(t, Shape{IndexBy: "nickname"})

	indexed, err := cur.Indexed()
	require.NoError(t, err)
	// John and Ann share the NULL nickname key; the later row wins.
	require.Len(t, indexed, 2)
	assert.Equal(t, "Ann", indexed["<nil>"].(Row)["name"])
	assert.Equal(t, "Jane", indexed["JJ"].(Row)["name"])
}

func TestCursor_IndexedWithoutColumnFails(t *testing.T) {
	cur := openRows(t, Shape{})

	_, err := cur.Indexed()
	require.Error(t, err)
}

func TestCursor_ToList(t *testing.T) {
	cur := openRows(t, Shape{})

	list, err := cur.ToList("id", "name", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"1": "John",
		"2": "Jane",
		"3": "Ann",
	}, list)
}

func TestCursor_ToListFirstEntry(t *testing.T) {
	t.Run("map merges", func(t *testing.T) {
		cur := openRows(t, Shape{})
		list, err := cur.ToList("id", "name", map[string]interface{}{"0": "All"})
		require.NoError(t, err)
		assert.Equal(t, "All", list["0"])
		assert.Equal(t, "John", list["1"])
	})

	t.Run("scalar lands under the blank key", func(t *testing.T) {
		cur := openRows(t, Shape{})
		list, err := cur.ToList("id", "name", "All")
		require.NoError(t, err)
		assert.Equal(t, "All", list[""])
		assert.Equal(t, "John", list["1"])
	})
}

type exportable struct {
	id   int64
	name string
}

func (e *exportable) ToRow() Row {
	return Row{"id": e.id, "name": e.name}
}

func TestCursor_ToArray(t *testing.T) {
	t.Run("plain rows pass through", func(t *testing.T) {
		cur := openRows(t, Shape{})
		arr, err := cur.ToArray()
		require.NoError(t, err)
		require.Len(t, arr, 3)
		assert.Equal(t, "John", arr[0]["name"])
	})

	t.Run("hydrated objects export themselves", func(t *testing.T) {
		cur := openRows(t, Shape{
			Hydrate: func(row Row) (interface{}, error) {
				return &exportable{id: row["id"].(int64), name: row["name"].(string)}, nil
			},
		})
		arr, err := cur.ToArray()
		require.NoError(t, err)
		require.Len(t, arr, 3)
		assert.Equal(t, Row{"id": int64(2), "name": "Jane"}, arr[1])
	})
}
