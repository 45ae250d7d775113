package db

import (
	"context"

	"github.com/tordrt/scaffold/internal/schema"
)

// mysqlExtractor reads metadata from information_schema. Column aliases are
// lower-cased explicitly since MySQL 8 returns them upper-case.
type mysqlExtractor struct {
	q      Querier
	schema string
}

func (e *mysqlExtractor) tableNames(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name AS name
		FROM information_schema.tables
		WHERE table_schema = ? AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := e.q.Query(ctx, query, e.schema)
	if err != nil {
		return nil, err
	}

	tables := make([]string, 0, len(rows))
	for _, row := range rows {
		tables = append(tables, stringValue(row, "name"))
	}
	return tables, nil
}

func (e *mysqlExtractor) columns(ctx context.Context, tableName string) ([]schema.Column, error) {
	query := `
		SELECT column_name AS name, column_type AS type, is_nullable AS nullable
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position
	`

	rows, err := e.q.Query(ctx, query, e.schema, tableName)
	if err != nil {
		return nil, err
	}

	columns := make([]schema.Column, 0, len(rows))
	for _, row := range rows {
		columns = append(columns, schema.Column{
			Name:     stringValue(row, "name"),
			Type:     stringValue(row, "type"),
			Nullable: stringValue(row, "nullable") == "YES",
		})
	}
	return columns, nil
}

func (e *mysqlExtractor) primaryKey(ctx context.Context, tableName string) ([]string, error) {
	query := `
		SELECT column_name AS name
		FROM information_schema.key_column_usage
		WHERE table_schema = ?
			AND table_name = ?
			AND constraint_name = 'PRIMARY'
		ORDER BY ordinal_position
	`

	rows, err := e.q.Query(ctx, query, e.schema, tableName)
	if err != nil {
		return nil, err
	}

	var pk []string
	for _, row := range rows {
		pk = append(pk, stringValue(row, "name"))
	}
	return pk, nil
}

func (e *mysqlExtractor) relations(ctx context.Context, tableName string) ([]schema.Relation, error) {
	query := `
		SELECT
			column_name AS source_column,
			referenced_table_name AS target_table,
			referenced_column_name AS target_column
		FROM information_schema.key_column_usage
		WHERE table_schema = ?
			AND table_name = ?
			AND referenced_table_name IS NOT NULL
		ORDER BY ordinal_position
	`

	rows, err := e.q.Query(ctx, query, e.schema, tableName)
	if err != nil {
		return nil, err
	}

	var relations []schema.Relation
	for _, row := range rows {
		relations = append(relations, schema.Relation{
			SourceColumn: stringValue(row, "source_column"),
			TargetTable:  stringValue(row, "target_table"),
			TargetColumn: stringValue(row, "target_column"),
		})
	}
	return relations, nil
}
