// Package sqlgen compiles accumulated query state into SQL text.
package sqlgen

// Expr is a raw SQL fragment inserted into compiled SQL verbatim,
// without any quoting or escaping.
type Expr string

// Raw wraps a string as a raw SQL expression.
func Raw(s string) Expr {
	return Expr(s)
}

// Aliased pairs a column or table reference with an alias.
type Aliased struct {
	Value interface{}
	Alias string
}

// As creates an aliased column or table reference.
func As(value interface{}, alias string) Aliased {
	return Aliased{Value: value, Alias: alias}
}

// SQLer is implemented by sub-queries. The quoters wrap the compiled
// SQL of a SQLer in parentheses wherever it appears.
type SQLer interface {
	SQL() (string, error)
}
