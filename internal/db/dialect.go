package db

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// Dialect identifies which SQL backend a connection talks to. It is decided once when the
// provider is opened and travels with every connection handed out.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

func (d Dialect) String() string {
	return string(d)
}

// Placeholder returns the bind-parameter format used by the dialect.
func (d Dialect) Placeholder() sq.PlaceholderFormat {
	if d == DialectPostgres {
		return sq.Dollar
	}
	return sq.Question
}

// Builder returns a squirrel statement builder rendering placeholders for this dialect.
func (d Dialect) Builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(d.Placeholder())
}

// Rebind rewrites a query written with '?' markers into the dialect's placeholder format.
// Query text must not contain literal question marks.
func (d Dialect) Rebind(query string) string {
	out, err := d.Placeholder().ReplacePlaceholders(query)
	if err != nil {
		// Only reachable with a malformed template, which is a programming error.
		panic(fmt.Sprintf("db: rebind %q: %v", query, err))
	}
	return out
}

// SupportsReturning reports whether INSERT ... RETURNING is available.
func (d Dialect) SupportsReturning() bool {
	return d == DialectPostgres
}

// Valid reports whether d is one of the supported dialects.
func (d Dialect) Valid() bool {
	return d == DialectPostgres || d == DialectMySQL
}
