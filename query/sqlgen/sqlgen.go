package sqlgen

import (
	"sort"
	"strconv"
	"strings"
)

// StatementType identifies the kind of statement a Statement compiles to.
type StatementType int

// Statement types.
const (
	StatementSelect StatementType = iota
	StatementInsert
	StatementUpdate
	StatementDelete
)

// String returns the SQL verb for the statement type.
func (t StatementType) String() string {
	switch t {
	case StatementInsert:
		return "INSERT"
	case StatementUpdate:
		return "UPDATE"
	case StatementDelete:
		return "DELETE"
	default:
		return "SELECT"
	}
}

// Condition is one (column, operator, value) predicate leaf.
type Condition struct {
	Column   interface{}
	Operator string
	Value    interface{}
}

// WhereNode is one entry of a predicate tree: either a condition leaf
// or a parenthesized group, joined to the previous entry by Conn.
type WhereNode struct {
	Conn  string // "AND" or "OR"
	Cond  *Condition
	Group []WhereNode
}

// OrderBy represents one ORDER BY entry.
type OrderBy struct {
	Column    interface{}
	Direction string
}

// JoinCondition is one ON predicate of a join; both sides are column
// references.
type JoinCondition struct {
	Left     interface{}
	Operator string
	Right    interface{}
}

// Join represents one JOIN clause.
type Join struct {
	Table interface{}
	Type  string // "", "LEFT", "RIGHT", "INNER", ...
	On    []JoinCondition
}

// Statement holds the accumulated state of one SQL statement. State is
// meaningful only for the matching statement type; the compiler ignores
// clauses that do not apply and rejects statements whose required state
// is missing.
type Statement struct {
	Type     StatementType
	Table    interface{}
	Columns  []interface{}
	Distinct bool
	Joins    []Join
	Where    []WhereNode
	GroupBy  []interface{}
	Having   []WhereNode
	Order    []OrderBy
	Limit    *int
	Offset   *int

	// INSERT state.
	InsertColumns []string
	InsertRows    [][]interface{}

	// UPDATE state.
	SetValues map[string]interface{}
}

// Generator compiles a Statement into a single SQL string with every
// value quoted by the attached Quoter.
type Generator struct {
	quoter *Quoter
}

// NewGenerator creates a generator using the given quoter.
func NewGenerator(q *Quoter) *Generator {
	if q == nil {
		q = NewQuoter(nil)
	}
	return &Generator{quoter: q}
}

// Quoter returns the generator's quoter.
func (g *Generator) Quoter() *Quoter {
	return g.quoter
}

// Build compiles the statement into SQL text.
func (g *Generator) Build(st *Statement) (string, error) {
	if st.Table == nil {
		return "", newBuildError(st.Type.String(), "no table specified")
	}
	switch st.Type {
	case StatementInsert:
		return g.buildInsert(st)
	case StatementUpdate:
		return g.buildUpdate(st)
	case StatementDelete:
		return g.buildDelete(st)
	default:
		return g.buildSelect(st)
	}
}

func (g *Generator) buildSelect(st *Statement) (string, error) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if st.Distinct {
		sb.WriteString("DISTINCT ")
	}
	if len(st.Columns) == 0 {
		sb.WriteString("*")
	} else {
		cols := make([]string, len(st.Columns))
		for i, c := range st.Columns {
			quoted, err := g.quoter.QuoteColumn(c, "")
			if err != nil {
				return "", err
			}
			cols[i] = quoted
		}
		sb.WriteString(strings.Join(cols, ", "))
	}

	table, err := g.quoter.QuoteTable(st.Table)
	if err != nil {
		return "", err
	}
	sb.WriteString(" FROM ")
	sb.WriteString(table)

	for _, j := range st.Joins {
		if err := g.writeJoin(&sb, j); err != nil {
			return "", err
		}
	}

	if err := g.writeWhere(&sb, " WHERE ", st.Where); err != nil {
		return "", err
	}

	if len(st.GroupBy) > 0 {
		cols := make([]string, len(st.GroupBy))
		for i, c := range st.GroupBy {
			quoted, err := g.quoter.QuoteColumn(c, "")
			if err != nil {
				return "", err
			}
			cols[i] = quoted
		}
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(cols, ", "))
	}

	if err := g.writeWhere(&sb, " HAVING ", st.Having); err != nil {
		return "", err
	}

	if len(st.Order) > 0 {
		parts := make([]string, len(st.Order))
		for i, o := range st.Order {
			col, err := g.quoter.QuoteColumn(o.Column, "")
			if err != nil {
				return "", err
			}
			dir := strings.ToUpper(o.Direction)
			if dir != "DESC" {
				dir = "ASC"
			}
			parts[i] = col + " " + dir
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(parts, ", "))
	}

	g.writeLimit(&sb, st)
	return sb.String(), nil
}

func (g *Generator) buildInsert(st *Statement) (string, error) {
	if len(st.InsertRows) == 0 {
		return "", newBuildError("INSERT", "no values to insert")
	}
	if len(st.InsertColumns) == 0 {
		return "", newBuildError("INSERT", "no column list")
	}

	table, err := g.quoter.QuoteTable(st.Table)
	if err != nil {
		return "", err
	}

	cols := make([]string, len(st.InsertColumns))
	for i, c := range st.InsertColumns {
		quoted, err := g.quoter.QuoteColumn(c, "")
		if err != nil {
			return "", err
		}
		cols[i] = quoted
	}

	tuples := make([]string, len(st.InsertRows))
	for i, row := range st.InsertRows {
		if len(row) != len(st.InsertColumns) {
			return "", newBuildError("INSERT",
				"value tuple "+strconv.Itoa(i)+" does not match the column list")
		}
		quoted, err := g.quoter.quoteList(row)
		if err != nil {
			return "", err
		}
		tuples[i] = quoted
	}

	return "INSERT INTO " + table +
		" (" + strings.Join(cols, ", ") + ") VALUES " +
		strings.Join(tuples, ", "), nil
}

func (g *Generator) buildUpdate(st *Statement) (string, error) {
	if len(st.SetValues) == 0 {
		return "", newBuildError("UPDATE", "no SET assignments")
	}

	table, err := g.quoter.QuoteTable(st.Table)
	if err != nil {
		return "", err
	}

	// Sorted for deterministic SQL text.
	keys := make([]string, 0, len(st.SetValues))
	for k := range st.SetValues {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	assignments := make([]string, len(keys))
	for i, k := range keys {
		col, err := g.quoter.QuoteColumn(k, "")
		if err != nil {
			return "", err
		}
		val, err := g.quoter.Quote(st.SetValues[k])
		if err != nil {
			return "", err
		}
		assignments[i] = col + " = " + val
	}

	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(table)
	sb.WriteString(" SET ")
	sb.WriteString(strings.Join(assignments, ", "))
	if err := g.writeWhere(&sb, " WHERE ", st.Where); err != nil {
		return "", err
	}
	g.writeLimit(&sb, st)
	return sb.String(), nil
}

func (g *Generator) buildDelete(st *Statement) (string, error) {
	table, err := g.quoter.QuoteTable(st.Table)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(table)
	if err := g.writeWhere(&sb, " WHERE ", st.Where); err != nil {
		return "", err
	}
	g.writeLimit(&sb, st)
	return sb.String(), nil
}

func (g *Generator) writeJoin(sb *strings.Builder, j Join) error {
	table, err := g.quoter.QuoteTable(j.Table)
	if err != nil {
		return err
	}
	sb.WriteString(" ")
	if j.Type != "" {
		sb.WriteString(strings.ToUpper(j.Type))
		sb.WriteString(" ")
	}
	sb.WriteString("JOIN ")
	sb.WriteString(table)
	if len(j.On) == 0 {
		return nil
	}
	sb.WriteString(" ON (")
	for i, on := range j.On {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		left, err := g.quoter.QuoteColumn(on.Left, "")
		if err != nil {
			return err
		}
		right, err := g.quoter.QuoteColumn(on.Right, "")
		if err != nil {
			return err
		}
		sb.WriteString(left + " " + on.Operator + " " + right)
	}
	sb.WriteString(")")
	return nil
}

func (g *Generator) writeWhere(sb *strings.Builder, keyword string, nodes []WhereNode) error {
	if len(nodes) == 0 {
		return nil
	}
	compiled, err := g.buildWhereNodes(nodes)
	if err != nil {
		return err
	}
	sb.WriteString(keyword)
	sb.WriteString(compiled)
	return nil
}

// buildWhereNodes compiles a predicate tree left to right, preserving
// the explicit parenthesization of groups.
func (g *Generator) buildWhereNodes(nodes []WhereNode) (string, error) {
	var sb strings.Builder
	for i, n := range nodes {
		if i > 0 {
			conn := strings.ToUpper(n.Conn)
			if conn != "OR" {
				conn = "AND"
			}
			sb.WriteString(" " + conn + " ")
		}
		if n.Group != nil {
			inner, err := g.buildWhereNodes(n.Group)
			if err != nil {
				return "", err
			}
			sb.WriteString("(" + inner + ")")
			continue
		}
		if n.Cond == nil {
			return "", newBuildError("WHERE", "empty predicate node")
		}
		compiled, err := g.buildCondition(n.Cond)
		if err != nil {
			return "", err
		}
		sb.WriteString(compiled)
	}
	return sb.String(), nil
}

func (g *Generator) buildCondition(c *Condition) (string, error) {
	col, err := g.quoter.QuoteColumn(c.Column, "")
	if err != nil {
		return "", err
	}
	op := strings.ToUpper(strings.TrimSpace(c.Operator))

	if c.Value == nil {
		switch op {
		case "=", "IS", "IS NULL":
			return col + " IS NULL", nil
		case "!=", "<>", "IS NOT", "IS NOT NULL":
			return col + " IS NOT NULL", nil
		}
	}

	switch op {
	case "BETWEEN", "NOT BETWEEN":
		pair, ok := c.Value.([]interface{})
		if !ok || len(pair) != 2 {
			return "", newBuildError("WHERE", op+" requires a two-element value")
		}
		min, err := g.quoter.Quote(pair[0])
		if err != nil {
			return "", err
		}
		max, err := g.quoter.Quote(pair[1])
		if err != nil {
			return "", err
		}
		return col + " " + op + " " + min + " AND " + max, nil
	default:
		val, err := g.quoter.Quote(c.Value)
		if err != nil {
			return "", err
		}
		return col + " " + op + " " + val, nil
	}
}

func (g *Generator) writeLimit(sb *strings.Builder, st *Statement) {
	if st.Limit != nil {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(*st.Limit))
	}
	if st.Offset != nil && st.Type == StatementSelect {
		sb.WriteString(" OFFSET ")
		sb.WriteString(strconv.Itoa(*st.Offset))
	}
}
