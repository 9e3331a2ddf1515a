package sqlgen

import (
	"fmt"
	"strconv"
	"strings"
)

// Escaper escapes a string for safe inclusion in a single-quoted SQL
// literal. The database engine provides the real implementation; the
// escape can fail when the underlying connection is gone.
type Escaper interface {
	EscapeString(s string) (string, error)
}

// StandardEscaper escapes strings using the backslash convention.
// It is the fallback used when no engine is attached to a quoter.
type StandardEscaper struct{}

// EscapeString implements the Escaper interface.
func (StandardEscaper) EscapeString(s string) (string, error) {
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
	return b.String(), nil
}

// Quoter turns program values into SQL literal text and identifiers
// into quoted SQL identifier text. Every value that ends up inside a
// compiled statement passes through one of its methods.
type Quoter struct {
	esc Escaper
}

// NewQuoter creates a quoter backed by the given escaper. A nil escaper
// falls back to StandardEscaper.
func NewQuoter(esc Escaper) *Quoter {
	if esc == nil {
		esc = StandardEscaper{}
	}
	return &Quoter{esc: esc}
}

// Quote converts a value into SQL literal text.
func (q *Quoter) Quote(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "NULL", nil
	case Expr:
		return string(v), nil
	case SQLer:
		sub, err := v.SQL()
		if err != nil {
			return "", err
		}
		return "(" + sub + ")", nil
	case bool:
		if v {
			return "'1'", nil
		}
		return "'0'", nil
	case int:
		return strconv.FormatInt(int64(v), 10), nil
	case int8:
		return strconv.FormatInt(int64(v), 10), nil
	case int16:
		return strconv.FormatInt(int64(v), 10), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float32:
		// Fixed notation, never scientific and never locale-dependent.
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case string:
		return q.quoteString(v)
	case []byte:
		return q.quoteString(string(v))
	case []interface{}:
		return q.quoteList(v)
	case []string:
		list := make([]interface{}, len(v))
		for i, s := range v {
			list[i] = s
		}
		return q.quoteList(list)
	case []int:
		list := make([]interface{}, len(v))
		for i, n := range v {
			list[i] = n
		}
		return q.quoteList(list)
	case []int64:
		list := make([]interface{}, len(v))
		for i, n := range v {
			list[i] = n
		}
		return q.quoteList(list)
	case fmt.Stringer:
		return q.quoteString(v.String())
	default:
		return q.quoteString(fmt.Sprintf("%v", v))
	}
}

// quoteList quotes each element and joins them into a parenthesized,
// comma-separated list, as used by IN (...).
func (q *Quoter) quoteList(values []interface{}) (string, error) {
	parts := make([]string, len(values))
	for i, v := range values {
		quoted, err := q.Quote(v)
		if err != nil {
			return "", err
		}
		parts[i] = quoted
	}
	return "(" + strings.Join(parts, ", ") + ")", nil
}

func (q *Quoter) quoteString(s string) (string, error) {
	escaped, err := q.esc.EscapeString(s)
	if err != nil {
		return "", &QuoteError{Value: s, Cause: err}
	}
	return "'" + escaped + "'", nil
}

// QuoteTable converts a table reference into quoted SQL identifier text.
func (q *Quoter) QuoteTable(value interface{}) (string, error) {
	return q.quoteIdentifier(value, "")
}

// QuoteColumn converts a column reference into quoted SQL identifier
// text. A non-empty table qualifier prefixes columns that carry no
// qualifier of their own.
func (q *Quoter) QuoteColumn(value interface{}, table string) (string, error) {
	return q.quoteIdentifier(value, table)
}

func (q *Quoter) quoteIdentifier(value interface{}, table string) (string, error) {
	switch v := value.(type) {
	case Aliased:
		name, err := q.quoteIdentifier(v.Value, table)
		if err != nil {
			return "", err
		}
		return name + " AS " + q.quotePlain(v.Alias, ""), nil
	case Expr:
		return string(v), nil
	case SQLer:
		sub, err := v.SQL()
		if err != nil {
			return "", err
		}
		return "(" + sub + ")", nil
	case string:
		return q.quotePlain(v, table), nil
	default:
		return q.quotePlain(fmt.Sprintf("%v", value), table), nil
	}
}

// quotePlain quotes a plain string identifier. Embedded backticks are
// doubled, dotted identifiers are quoted segment by segment, and the
// wildcard segment stays bare.
func (q *Quoter) quotePlain(name, table string) string {
	if table != "" && !strings.Contains(name, ".") {
		name = table + "." + name
	}
	name = strings.ReplaceAll(name, "`", "``")
	if !strings.Contains(name, ".") {
		if name == "*" {
			return name
		}
		return "`" + name + "`"
	}
	segments := strings.Split(name, ".")
	for i, seg := range segments {
		if seg != "*" {
			segments[i] = "`" + seg + "`"
		}
	}
	return strings.Join(segments, ".")
}
