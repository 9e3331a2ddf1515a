// Package result adapts a driver result handle into a row-oriented
// view with random access, counting and bulk materialization.
package result

import (
	"database/sql"
	"fmt"
)

// Row is one materialized record, keyed by column name.
type Row map[string]interface{}

// Hydrator converts a raw row into a domain object.
type Hydrator func(Row) (interface{}, error)

// Exporter is implemented by hydrated objects that can convert
// themselves back into a plain row.
type Exporter interface {
	ToRow() Row
}

// Shape directs how a cursor materializes rows.
type Shape struct {
	// Hydrate, when set, turns each row into a domain object.
	Hydrate Hydrator

	// IndexBy keys Indexed() results by the named column.
	IndexBy string
}

// Cursor wraps one driver result handle. database/sql streams are
// forward-only, so fetched rows are buffered lazily; random access and
// re-iteration are served from the buffer.
type Cursor struct {
	rows  *sql.Rows
	cols  []string
	shape Shape
	buf   []Row
	pos   int
	done  bool
	err   error
}

// NewCursor wraps a driver result handle. The cursor takes ownership of
// rows and closes it once the stream is drained or Close is called.
func NewCursor(rows *sql.Rows, shape Shape) (*Cursor, error) {
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, &CursorError{Op: "columns", Cause: err}
	}
	return &Cursor{rows: rows, cols: cols, shape: shape, pos: -1}, nil
}

// Columns returns the column names in result order.
func (c *Cursor) Columns() []string {
	return c.cols
}

// fetchNext pulls one more row from the driver into the buffer.
func (c *Cursor) fetchNext() (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	if c.done {
		return false, nil
	}
	if !c.rows.Next() {
		c.done = true
		if err := c.rows.Err(); err != nil {
			c.err = &CursorError{Op: "fetch", Cause: err}
			return false, c.err
		}
		c.rows.Close()
		return false, nil
	}

	values := make([]interface{}, len(c.cols))
	ptrs := make([]interface{}, len(c.cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := c.rows.Scan(ptrs...); err != nil {
		c.err = &CursorError{Op: "scan", Cause: err}
		return false, c.err
	}

	row := make(Row, len(c.cols))
	for i, col := range c.cols {
		if b, ok := values[i].([]byte); ok {
			row[col] = string(b)
		} else {
			row[col] = values[i]
		}
	}
	c.buf = append(c.buf, row)
	return true, nil
}

// fetchTo buffers rows until position i is available or the stream ends.
func (c *Cursor) fetchTo(i int) error {
	for len(c.buf) <= i {
		ok, err := c.fetchNext()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
	}
	return nil
}

// drain buffers the remainder of the stream.
func (c *Cursor) drain() error {
	for {
		ok, err := c.fetchNext()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
}

// Next advances the cursor. It returns false at the end of the result
// set or after a fetch error; check Err afterwards.
func (c *Cursor) Next() bool {
	if c.err != nil {
		return false
	}
	if c.pos+1 < len(c.buf) {
		c.pos++
		return true
	}
	ok, err := c.fetchNext()
	if err != nil || !ok {
		return false
	}
	c.pos++
	return true
}

// Err returns the first error encountered while fetching.
func (c *Cursor) Err() error {
	return c.err
}

// Current returns the row at the cursor position, or nil when the
// cursor is not positioned on a row.
func (c *Cursor) Current() Row {
	if c.pos < 0 || c.pos >= len(c.buf) {
		return nil
	}
	return c.buf[c.pos]
}

// Rewind repositions the cursor before the first row. Iteration
// restarts from the buffer.
func (c *Cursor) Rewind() {
	if c.err == nil {
		c.pos = -1
	}
}

// Seek positions the cursor on row i.
func (c *Cursor) Seek(i int) error {
	if i < 0 {
		return &CursorError{Op: fmt.Sprintf("seek %d", i)}
	}
	if err := c.fetchTo(i); err != nil {
		return err
	}
	if i >= len(c.buf) {
		return &CursorError{Op: fmt.Sprintf("seek %d: out of range", i)}
	}
	c.pos = i
	return nil
}

// Index returns row i without moving the cursor.
func (c *Cursor) Index(i int) (Row, error) {
	if i < 0 {
		return nil, &CursorError{Op: fmt.Sprintf("index %d", i)}
	}
	if err := c.fetchTo(i); err != nil {
		return nil, err
	}
	if i >= len(c.buf) {
		return nil, &CursorError{Op: fmt.Sprintf("index %d: out of range", i)}
	}
	return c.buf[i], nil
}

// Count returns the total number of rows, materializing the remainder
// of the stream.
func (c *Cursor) Count() (int, error) {
	if err := c.drain(); err != nil {
		return 0, err
	}
	return len(c.buf), nil
}

// Column returns one field of the current row. A null value yields def;
// a column missing from the result schema is a FieldError.
func (c *Cursor) Column(name string, def interface{}) (interface{}, error) {
	row := c.Current()
	if row == nil {
		return nil, &CursorError{Op: "column: cursor is not positioned on a row"}
	}
	if !c.hasColumn(name) {
		return nil, &FieldError{Field: name}
	}
	if v := row[name]; v != nil {
		return v, nil
	}
	return def, nil
}

func (c *Cursor) hasColumn(name string) bool {
	for _, col := range c.cols {
		if col == name {
			return true
		}
	}
	return false
}

// One returns the first row, hydrated when the shape says so, or nil
// when the result set is empty. Absence is not an error.
func (c *Cursor) One() (interface{}, error) {
	if err := c.fetchTo(0); err != nil {
		return nil, err
	}
	if len(c.buf) == 0 {
		return nil, nil
	}
	return c.materialize(c.buf[0])
}

// All materializes every row, in order. With an object shape each row
// is hydrated one by one; with a plain row shape the buffered bulk
// fetch is used directly.
func (c *Cursor) All() ([]interface{}, error) {
	if err := c.drain(); err != nil {
		return nil, err
	}
	out := make([]interface{}, 0, len(c.buf))
	for _, row := range c.buf {
		item, err := c.materialize(row)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// Indexed materializes every row into a mapping keyed by the shape's
// IndexBy column. Duplicate keys are not an error: a later row
// overwrites an earlier one.
func (c *Cursor) Indexed() (map[string]interface{}, error) {
	if c.shape.IndexBy == "" {
		return nil, &CursorError{Op: "indexed: no index column configured"}
	}
	if err := c.drain(); err != nil {
		return nil, err
	}
	out := make(map[string]interface{}, len(c.buf))
	for _, row := range c.buf {
		item, err := c.materialize(row)
		if err != nil {
			return nil, err
		}
		out[fmt.Sprint(row[c.shape.IndexBy])] = item
	}
	return out, nil
}

func (c *Cursor) materialize(row Row) (interface{}, error) {
	if c.shape.Hydrate != nil {
		return c.shape.Hydrate(row)
	}
	return row, nil
}

// ToList builds a mapping from key-column values to value-column values
// across all rows. A non-nil first is added as an extra entry: a map is
// merged in, any other value lands under the blank key.
func (c *Cursor) ToList(keyColumn, valueColumn string, first interface{}) (map[string]interface{}, error) {
	if err := c.drain(); err != nil {
		return nil, err
	}
	out := make(map[string]interface{}, len(c.buf)+1)
	switch f := first.(type) {
	case nil:
	case map[string]interface{}:
		for k, v := range f {
			out[k] = v
		}
	default:
		out[""] = first
	}
	for _, row := range c.buf {
		out[fmt.Sprint(row[keyColumn])] = row[valueColumn]
	}
	return out, nil
}

// ToArray converts every row into plain row form. Hydrated objects
// export themselves through the Exporter contract; objects without one
// fall back to the raw row.
func (c *Cursor) ToArray() ([]Row, error) {
	if err := c.drain(); err != nil {
		return nil, err
	}
	out := make([]Row, 0, len(c.buf))
	for _, row := range c.buf {
		if c.shape.Hydrate == nil {
			out = append(out, row)
			continue
		}
		obj, err := c.shape.Hydrate(row)
		if err != nil {
			return nil, err
		}
		if exp, ok := obj.(Exporter); ok {
			out = append(out, exp.ToRow())
		} else {
			out = append(out, row)
		}
	}
	return out, nil
}

// Close releases the underlying driver handle. Buffered rows stay
// readable.
func (c *Cursor) Close() error {
	if c.done || c.err != nil {
		return nil
	}
	c.done = true
	return c.rows.Close()
}
