package db

import (
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Dialect captures the SQL differences between the supported databases
type Dialect struct {
	Name string

	// Placeholder is the bind parameter style used by the driver
	Placeholder sq.PlaceholderFormat

	// Returning reports whether INSERT ... RETURNING is available
	Returning bool

	// LikeOp is the case-insensitive pattern match operator
	LikeOp string

	quote string

	// prefixAsSchema is false when the database has no namespaces and the
	// prefix is folded into the table name instead
	prefixAsSchema bool
}

var (
	// Postgres is the PostgreSQL dialect
	Postgres = Dialect{Name: "postgres", Placeholder: sq.Dollar, Returning: true, LikeOp: "ILIKE", quote: `"`, prefixAsSchema: true}

	// MySQL is the MySQL dialect
	MySQL = Dialect{Name: "mysql", Placeholder: sq.Question, LikeOp: "LIKE", quote: "`", prefixAsSchema: true}

	// SQLite is the SQLite dialect
	SQLite = Dialect{Name: "sqlite", Placeholder: sq.Question, Returning: true, LikeOp: "LIKE", quote: `"`}
)

// Quote quotes an identifier, doubling any embedded quote characters
func (d Dialect) Quote(ident string) string {
	return d.quote + strings.ReplaceAll(ident, d.quote, d.quote+d.quote) + d.quote
}

// TableName returns the quoted, prefix-qualified table name
func (d Dialect) TableName(prefix, table string) string {
	if prefix == "" {
		return d.Quote(table)
	}
	if d.prefixAsSchema {
		return d.Quote(prefix) + "." + d.Quote(table)
	}
	return d.Quote(prefix + "_" + table)
}

// Locate returns the namespace and unquoted table name under which
// introspection finds a prefixed table. An empty namespace means the default.
func (d Dialect) Locate(prefix, table string) (namespace, name string) {
	if prefix == "" || d.prefixAsSchema {
		return prefix, table
	}
	return "", prefix + "_" + table
}

// Column returns a quoted column reference qualified by a table alias
func (d Dialect) Column(alias, column string) string {
	if alias == "" {
		return d.Quote(column)
	}
	return d.Quote(alias) + "." + d.Quote(column)
}

// Builder returns a statement builder using the dialect's placeholders
func (d Dialect) Builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(d.Placeholder)
}
