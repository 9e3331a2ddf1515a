// Package builder provides a fluent query builder API. A Query is a
// mutable state container for one statement: clause methods return the
// same instance for chaining and perform no I/O; compilation and
// execution happen only in the terminal methods.
package builder

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/quillsql/quill/engine"
	"github.com/quillsql/quill/query/sqlgen"
	"github.com/quillsql/quill/result"
)

// Query accumulates the state of one SELECT, INSERT, UPDATE or DELETE
// statement. A Query is not safe for concurrent use.
type Query struct {
	eng   *engine.Engine
	gen   *sqlgen.Generator
	st    sqlgen.Statement
	shape result.Shape
}

// New creates a query builder bound to an engine. A nil engine yields a
// compile-only builder whose terminal methods fail.
func New(eng *engine.Engine) *Query {
	var esc sqlgen.Escaper
	if eng != nil {
		esc = eng
	}
	return &Query{
		eng: eng,
		gen: sqlgen.NewGenerator(sqlgen.NewQuoter(esc)),
	}
}

// Select marks the statement as a SELECT and appends columns to the
// select list. Columns may be strings, Aliased pairs, Exprs or
// sub-queries. An empty select list compiles to *.
func (q *Query) Select(columns ...interface{}) *Query {
	q.st.Type = sqlgen.StatementSelect
	q.st.Columns = append(q.st.Columns, columns...)
	return q
}

// Distinct adds the DISTINCT keyword.
func (q *Query) Distinct() *Query {
	q.st.Distinct = true
	return q
}

// From sets the table to select from.
func (q *Query) From(table interface{}) *Query {
	q.st.Table = table
	return q
}

// Join adds a join of the given type ("", "LEFT", "INNER", ...).
// Subsequent On calls attach conditions to this join.
func (q *Query) Join(table interface{}, joinType string) *Query {
	q.st.Joins = append(q.st.Joins, sqlgen.Join{Table: table, Type: joinType})
	return q
}

// On adds a column-to-column condition to the most recent join.
func (q *Query) On(left interface{}, op string, right interface{}) *Query {
	if n := len(q.st.Joins); n > 0 {
		j := &q.st.Joins[n-1]
		j.On = append(j.On, sqlgen.JoinCondition{Left: left, Operator: op, Right: right})
	}
	return q
}

// Where adds an AND-connected predicate.
func (q *Query) Where(column interface{}, op string, value interface{}) *Query {
	return q.AndWhere(column, op, value)
}

// AndWhere adds an AND-connected predicate.
func (q *Query) AndWhere(column interface{}, op string, value interface{}) *Query {
	q.st.Where = append(q.st.Where, sqlgen.WhereNode{
		Conn: "AND",
		Cond: &sqlgen.Condition{Column: column, Operator: op, Value: value},
	})
	return q
}

// WhereAll adds a batch of AND-connected predicates.
func (q *Query) WhereAll(conds ...sqlgen.Condition) *Query {
	for i := range conds {
		c := conds[i]
		q.st.Where = append(q.st.Where, sqlgen.WhereNode{Conn: "AND", Cond: &c})
	}
	return q
}

// OrWhere adds an OR-connected predicate.
func (q *Query) OrWhere(column interface{}, op string, value interface{}) *Query {
	q.st.Where = append(q.st.Where, sqlgen.WhereNode{
		Conn: "OR",
		Cond: &sqlgen.Condition{Column: column, Operator: op, Value: value},
	})
	return q
}

// AndWhereGroup adds an AND-connected parenthesized predicate group.
// The callback receives a nested builder whose Where calls populate the
// group.
func (q *Query) AndWhereGroup(fn func(*Query)) *Query {
	return q.whereGroup("AND", fn)
}

// OrWhereGroup adds an OR-connected parenthesized predicate group.
func (q *Query) OrWhereGroup(fn func(*Query)) *Query {
	return q.whereGroup("OR", fn)
}

func (q *Query) whereGroup(conn string, fn func(*Query)) *Query {
	sub := &Query{eng: q.eng, gen: q.gen}
	fn(sub)
	if len(sub.st.Where) == 0 {
		return q
	}
	q.st.Where = append(q.st.Where, sqlgen.WhereNode{Conn: conn, Group: sub.st.Where})
	return q
}

// GroupBy appends GROUP BY columns.
func (q *Query) GroupBy(columns ...interface{}) *Query {
	q.st.GroupBy = append(q.st.GroupBy, columns...)
	return q
}

// Having adds an AND-connected HAVING predicate.
func (q *Query) Having(column interface{}, op string, value interface{}) *Query {
	q.st.Having = append(q.st.Having, sqlgen.WhereNode{
		Conn: "AND",
		Cond: &sqlgen.Condition{Column: column, Operator: op, Value: value},
	})
	return q
}

// OrderBy appends an ORDER BY entry.
func (q *Query) OrderBy(column interface{}, direction string) *Query {
	q.st.Order = append(q.st.Order, sqlgen.OrderBy{Column: column, Direction: direction})
	return q
}

// Limit sets the row limit.
func (q *Query) Limit(n int) *Query {
	q.st.Limit = &n
	return q
}

// Offset sets the row offset.
func (q *Query) Offset(n int) *Query {
	q.st.Offset = &n
	return q
}

// Insert marks the statement as an INSERT into table. An optional
// mapping supplies both the column list (derived from the keys, sorted)
// and one value tuple.
func (q *Query) Insert(table interface{}, mapping ...map[string]interface{}) *Query {
	q.st.Type = sqlgen.StatementInsert
	q.st.Table = table
	for _, m := range mapping {
		cols := sortedKeys(m)
		row := make([]interface{}, len(cols))
		for i, c := range cols {
			row[i] = m[c]
		}
		q.st.InsertColumns = cols
		q.st.InsertRows = append(q.st.InsertRows, row)
	}
	return q
}

// Columns sets the explicit INSERT column list.
func (q *Query) Columns(columns ...string) *Query {
	q.st.InsertColumns = columns
	return q
}

// Values appends one value tuple. Call repeatedly for a multi-row
// insert.
func (q *Query) Values(values ...interface{}) *Query {
	q.st.InsertRows = append(q.st.InsertRows, values)
	return q
}

// Update marks the statement as an UPDATE of table.
func (q *Query) Update(table interface{}) *Query {
	q.st.Type = sqlgen.StatementUpdate
	q.st.Table = table
	return q
}

// Set merges assignments into the UPDATE SET mapping.
func (q *Query) Set(values map[string]interface{}) *Query {
	if q.st.SetValues == nil {
		q.st.SetValues = make(map[string]interface{}, len(values))
	}
	for k, v := range values {
		q.st.SetValues[k] = v
	}
	return q
}

// Delete marks the statement as a DELETE from table.
func (q *Query) Delete(table interface{}) *Query {
	q.st.Type = sqlgen.StatementDelete
	q.st.Table = table
	return q
}

// AsRows directs materialization to plain rows. This is the default;
// the last shape call wins.
func (q *Query) AsRows() *Query {
	q.shape.Hydrate = nil
	return q
}

// AsObject directs materialization through the given hydrator. The last
// shape call wins.
func (q *Query) AsObject(h result.Hydrator) *Query {
	q.shape.Hydrate = h
	return q
}

// IndexBy keys AllIndexed results by the named column. Duplicate keys
// are not an error; the last row for a key wins.
func (q *Query) IndexBy(column string) *Query {
	q.shape.IndexBy = column
	return q
}

// SQL compiles the current state. It implements sqlgen.SQLer so a Query
// can appear as a sub-query inside another builder.
func (q *Query) SQL() (string, error) {
	return q.gen.Build(&q.st)
}

// Build compiles the current state into SQL text without executing it.
func (q *Query) Build() (string, error) {
	return q.SQL()
}

// Get compiles and executes a SELECT, returning a cursor over the
// result. Non-SELECT statements execute through Execute.
func (q *Query) Get(ctx context.Context) (*result.Cursor, error) {
	if q.st.Type != sqlgen.StatementSelect {
		return nil, &sqlgen.BuildError{Op: q.st.Type.String(), Reason: "Get requires a SELECT statement"}
	}
	if q.eng == nil {
		return nil, &sqlgen.BuildError{Op: "SELECT", Reason: "no engine attached"}
	}
	sqlText, err := q.SQL()
	if err != nil {
		return nil, err
	}
	rows, err := q.eng.Query(ctx, sqlText)
	if err != nil {
		return nil, err
	}
	return result.NewCursor(rows, q.shape)
}

// One executes the query with limit 1 and returns the first row or
// object, or nil when nothing matched. Absence is not an error.
func (q *Query) One(ctx context.Context) (interface{}, error) {
	one := 1
	clone := q.clone()
	clone.st.Limit = &one
	cur, err := clone.Get(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close()
	return cur.One()
}

// All executes the query and materializes every row, in order.
func (q *Query) All(ctx context.Context) ([]interface{}, error) {
	cur, err := q.Get(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close()
	return cur.All()
}

// AllIndexed executes the query and materializes a mapping keyed by the
// IndexBy column.
func (q *Query) AllIndexed(ctx context.Context) (map[string]interface{}, error) {
	cur, err := q.Get(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close()
	return cur.Indexed()
}

// Count executes SELECT COUNT(*) against a clone of the current state.
// The builder's own column list is left untouched, so the same builder
// can still run All or Get afterwards.
func (q *Query) Count(ctx context.Context) (int64, error) {
	clone := q.clone()
	clone.st.Columns = []interface{}{sqlgen.Raw("COUNT(*)")}
	clone.st.Order = nil
	clone.st.Limit = nil
	clone.st.Offset = nil
	clone.shape = result.Shape{}
	v, err := clone.Scalar(ctx)
	if err != nil {
		return 0, err
	}
	return toInt64(v)
}

// Scalar executes the query and returns the first column of the first
// row, or nil when nothing matched.
func (q *Query) Scalar(ctx context.Context) (interface{}, error) {
	cur, err := q.Get(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close()
	if !cur.Next() {
		return nil, cur.Err()
	}
	row := cur.Current()
	cols := cur.Columns()
	if len(cols) == 0 {
		return nil, nil
	}
	return row[cols[0]], nil
}

// Execute compiles and executes a write statement. It returns the
// inserted identifier for INSERT and the affected-row count for UPDATE
// and DELETE.
func (q *Query) Execute(ctx context.Context) (int64, error) {
	if q.eng == nil {
		return 0, &sqlgen.BuildError{Op: q.st.Type.String(), Reason: "no engine attached"}
	}
	sqlText, err := q.SQL()
	if err != nil {
		return 0, err
	}
	switch q.st.Type {
	case sqlgen.StatementInsert:
		return q.eng.ExecInsert(ctx, sqlText)
	case sqlgen.StatementUpdate, sqlgen.StatementDelete:
		return q.eng.Exec(ctx, sqlText)
	default:
		return 0, &sqlgen.BuildError{Op: "SELECT", Reason: "Execute requires a write statement"}
	}
}

// clone copies the builder state. The copy is shallow for nested
// references (sub-queries, expressions); compilation never mutates
// state, so sharing them is safe.
func (q *Query) clone() *Query {
	c := &Query{eng: q.eng, gen: q.gen, shape: q.shape}
	c.st = q.st
	c.st.Columns = append([]interface{}(nil), q.st.Columns...)
	c.st.Joins = append([]sqlgen.Join(nil), q.st.Joins...)
	c.st.Where = append([]sqlgen.WhereNode(nil), q.st.Where...)
	c.st.GroupBy = append([]interface{}(nil), q.st.GroupBy...)
	c.st.Having = append([]sqlgen.WhereNode(nil), q.st.Having...)
	c.st.Order = append([]sqlgen.OrderBy(nil), q.st.Order...)
	c.st.InsertColumns = append([]string(nil), q.st.InsertColumns...)
	c.st.InsertRows = append([][]interface{}(nil), q.st.InsertRows...)
	if q.st.Limit != nil {
		n := *q.st.Limit
		c.st.Limit = &n
	}
	if q.st.Offset != nil {
		n := *q.st.Offset
		c.st.Offset = &n
	}
	if q.st.SetValues != nil {
		c.st.SetValues = make(map[string]interface{}, len(q.st.SetValues))
		for k, v := range q.st.SetValues {
			c.st.SetValues[k] = v
		}
	}
	return c
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// toInt64 converts a driver scalar into an int64. Drivers disagree on
// the concrete type of COUNT(*) results.
func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case []byte:
		return strconv.ParseInt(string(n), 10, 64)
	case string:
		return strconv.ParseInt(n, 10, 64)
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to int64", v)
	}
}
