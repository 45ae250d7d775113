package db

import (
	"context"
	"fmt"

	"github.com/tordrt/scaffold/internal/schema"
)

// sqliteExtractor reads metadata through PRAGMA statements
type sqliteExtractor struct {
	q Querier
}

func (e *sqliteExtractor) tableNames(ctx context.Context) ([]string, error) {
	query := `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`

	rows, err := e.q.Query(ctx, query)
	if err != nil {
		return nil, err
	}

	tables := make([]string, 0, len(rows))
	for _, row := range rows {
		tables = append(tables, stringValue(row, "name"))
	}
	return tables, nil
}

func (e *sqliteExtractor) tableInfo(ctx context.Context, tableName string) ([]Row, error) {
	return e.q.Query(ctx, fmt.Sprintf("PRAGMA table_info(%s)", SQLite.Quote(tableName)))
}

func (e *sqliteExtractor) columns(ctx context.Context, tableName string) ([]schema.Column, error) {
	rows, err := e.tableInfo(ctx, tableName)
	if err != nil {
		return nil, err
	}

	columns := make([]schema.Column, 0, len(rows))
	for _, row := range rows {
		columns = append(columns, schema.Column{
			Name:     stringValue(row, "name"),
			Type:     stringValue(row, "type"),
			Nullable: intValue(row, "notnull") == 0,
		})
	}
	return columns, nil
}

func (e *sqliteExtractor) primaryKey(ctx context.Context, tableName string) ([]string, error) {
	rows, err := e.tableInfo(ctx, tableName)
	if err != nil {
		return nil, err
	}

	// pk holds the 1-based position within the key, 0 for other columns
	ordered := make([]string, len(rows))
	count := 0
	for _, row := range rows {
		if pos := intValue(row, "pk"); pos > 0 && int(pos) <= len(rows) {
			ordered[pos-1] = stringValue(row, "name")
			count++
		}
	}
	if count == 0 {
		return nil, nil
	}
	return ordered[:count], nil
}

func (e *sqliteExtractor) relations(ctx context.Context, tableName string) ([]schema.Relation, error) {
	rows, err := e.q.Query(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", SQLite.Quote(tableName)))
	if err != nil {
		return nil, err
	}

	var relations []schema.Relation
	for _, row := range rows {
		relations = append(relations, schema.Relation{
			SourceColumn: stringValue(row, "from"),
			TargetTable:  stringValue(row, "table"),
			TargetColumn: stringValue(row, "to"),
		})
	}
	return relations, nil
}
