package db

import (
	"context"
	"fmt"

	"github.com/tordrt/scaffold/internal/schema"
)

// Introspector reads table metadata from a live database
type Introspector interface {
	// Introspect extracts the given tables. If tables is empty, all tables in
	// the namespace are extracted.
	Introspect(ctx context.Context, tables []string) (*schema.Catalog, error)
}

// tableExtractor is the per-dialect half of an introspector
type tableExtractor interface {
	tableNames(ctx context.Context) ([]string, error)
	columns(ctx context.Context, table string) ([]schema.Column, error)
	primaryKey(ctx context.Context, table string) ([]string, error)
	relations(ctx context.Context, table string) ([]schema.Relation, error)
}

type introspector struct {
	ex tableExtractor
}

// NewIntrospector returns an introspector for the querier's dialect.
// namespace is the PostgreSQL/MySQL schema to read; it is ignored on SQLite.
func NewIntrospector(q Querier, namespace string) (Introspector, error) {
	switch q.Dialect().Name {
	case Postgres.Name:
		if namespace == "" {
			namespace = "public"
		}
		return &introspector{ex: &postgresExtractor{q: q, schema: namespace}}, nil
	case MySQL.Name:
		if namespace == "" {
			if c, ok := q.(*MySQLClient); ok {
				namespace = c.Database()
			}
		}
		if namespace == "" {
			return nil, fmt.Errorf("failed to determine database name (please specify a namespace)")
		}
		return &introspector{ex: &mysqlExtractor{q: q, schema: namespace}}, nil
	case SQLite.Name:
		return &introspector{ex: &sqliteExtractor{q: q}}, nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", q.Dialect().Name)
	}
}

// Introspect extracts the complete metadata for the requested tables
func (i *introspector) Introspect(ctx context.Context, tables []string) (*schema.Catalog, error) {
	tableNames := tables
	if len(tableNames) == 0 {
		var err error
		tableNames, err = i.ex.tableNames(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get table names: %w", err)
		}
	}

	var extracted []schema.Table
	for _, tableName := range tableNames {
		table, err := i.extractTable(ctx, tableName)
		if err != nil {
			return nil, fmt.Errorf("failed to extract table %s: %w", tableName, err)
		}
		extracted = append(extracted, *table)
	}

	return &schema.Catalog{Tables: extracted}, nil
}

// extractTable extracts all information for a single table
func (i *introspector) extractTable(ctx context.Context, tableName string) (*schema.Table, error) {
	table := &schema.Table{Name: tableName}

	columns, err := i.ex.columns(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	table.Columns = columns

	pk, err := i.ex.primaryKey(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract primary key: %w", err)
	}
	table.PrimaryKey = pk

	relations, err := i.ex.relations(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract relations: %w", err)
	}
	table.Relations = relations

	return table, nil
}

// stringValue reads a row value as a string regardless of driver type
func stringValue(row Row, key string) string {
	v, ok := row[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// intValue reads a row value as an integer
func intValue(row Row, key string) int64 {
	switch v := row[key].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		var n int64
		_, _ = fmt.Sscan(v, &n)
		return n
	default:
		return 0
	}
}
