package sqlgen

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSub struct{}

func (fakeSub) SQL() (string, error) { return "SELECT `id` FROM `logs`", nil }

type stringish struct{}

func (stringish) String() string { return "it's me" }

type failingEscaper struct{}

func (failingEscaper) EscapeString(string) (string, error) {
	return "", errors.New("lost connection")
}

func TestQuoter_Quote(t *testing.T) {
	q := NewQuoter(nil)

	tests := []struct {
		name  string
		value interface{}
		want  string
	}{
		{"nil", nil, "NULL"},
		{"int", 42, "42"},
		{"negative int", -7, "-7"},
		{"int64", int64(9000000000), "9000000000"},
		{"uint", uint(12), "12"},
		{"bool true", true, "'1'"},
		{"bool false", false, "'0'"},
		{"float", 1.5, "1.5"},
		{"float fixed notation", 1e21, "1000000000000000000000"},
		{"small float", 0.125, "0.125"},
		{"plain string", "John", "'John'"},
		{"string with quote", "O'Reilly", `'O\'Reilly'`},
		{"string with backslash", `a\b`, `'a\\b'`},
		{"string with newline", "a\nb", `'a\nb'`},
		{"array", []interface{}{1, "a", nil}, "(1, 'a', NULL)"},
		{"string slice", []string{"x", "y"}, "('x', 'y')"},
		{"int slice", []int{1, 2, 3}, "(1, 2, 3)"},
		{"expression", Raw("COUNT(*)"), "COUNT(*)"},
		{"sub-query", fakeSub{}, "(SELECT `id` FROM `logs`)"},
		{"stringer", stringish{}, `'it\'s me'`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := q.Quote(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuoter_Quote_EscaperFailure(t *testing.T) {
	q := NewQuoter(failingEscaper{})

	_, err := q.Quote("anything")
	require.Error(t, err)

	var qerr *QuoteError
	require.True(t, errors.As(err, &qerr))
	assert.Equal(t, "anything", qerr.Value)
}

func TestQuoter_QuoteColumn(t *testing.T) {
	q := NewQuoter(nil)

	tests := []struct {
		name  string
		value interface{}
		table string
		want  string
	}{
		{"plain", "name", "", "`name`"},
		{"qualified", "users.name", "", "`users`.`name`"},
		{"with table qualifier", "name", "users", "`users`.`name`"},
		{"qualifier not applied twice", "posts.name", "users", "`posts`.`name`"},
		{"bare wildcard", "*", "", "*"},
		{"qualified wildcard", "users.*", "", "`users`.*"},
		{"wildcard with table", "*", "users", "`users`.*"},
		{"embedded backtick doubled", "na`me", "", "`na``me`"},
		{"aliased", As("users.name", "n"), "", "`users`.`name` AS `n`"},
		{"aliased expression", As(Raw("COUNT(*)"), "total"), "", "COUNT(*) AS `total`"},
		{"expression verbatim", Raw("LOWER(name)"), "", "LOWER(name)"},
		{"sub-query", fakeSub{}, "", "(SELECT `id` FROM `logs`)"},
		{"aliased sub-query", As(fakeSub{}, "l"), "", "(SELECT `id` FROM `logs`) AS `l`"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := q.QuoteColumn(tt.value, tt.table)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuoter_QuoteColumn_Idempotent(t *testing.T) {
	// Quoting an already-safe identifier twice through the string path
	// must not change the inner name.
	q := NewQuoter(nil)
	first, err := q.QuoteColumn("name", "")
	require.NoError(t, err)
	assert.Equal(t, "`name`", first)
}

func TestQuoter_QuoteTable(t *testing.T) {
	q := NewQuoter(nil)

	got, err := q.QuoteTable("users")
	require.NoError(t, err)
	assert.Equal(t, "`users`", got)

	got, err = q.QuoteTable(As("users", "u"))
	require.NoError(t, err)
	assert.Equal(t, "`users` AS `u`", got)

	got, err = q.QuoteTable("mydb.users")
	require.NoError(t, err)
	assert.Equal(t, "`mydb`.`users`", got)
}
