package db

import (
	"context"

	"github.com/tordrt/scaffold/internal/schema"
)

// postgresExtractor reads metadata from information_schema
type postgresExtractor struct {
	q      Querier
	schema string
}

func (e *postgresExtractor) tableNames(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := e.q.Query(ctx, query, e.schema)
	if err != nil {
		return nil, err
	}

	tables := make([]string, 0, len(rows))
	for _, row := range rows {
		tables = append(tables, stringValue(row, "table_name"))
	}
	return tables, nil
}

func (e *postgresExtractor) columns(ctx context.Context, tableName string) ([]schema.Column, error) {
	query := `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`

	rows, err := e.q.Query(ctx, query, e.schema, tableName)
	if err != nil {
		return nil, err
	}

	columns := make([]schema.Column, 0, len(rows))
	for _, row := range rows {
		columns = append(columns, schema.Column{
			Name:     stringValue(row, "column_name"),
			Type:     stringValue(row, "data_type"),
			Nullable: stringValue(row, "is_nullable") == "YES",
		})
	}
	return columns, nil
}

func (e *postgresExtractor) primaryKey(ctx context.Context, tableName string) ([]string, error) {
	query := `
		SELECT kcu.column_name
		FROM information_schema.key_column_usage kcu
		JOIN information_schema.table_constraints tc
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.table_schema = $1
			AND tc.table_name = $2
			AND tc.constraint_type = 'PRIMARY KEY'
		ORDER BY kcu.ordinal_position
	`

	rows, err := e.q.Query(ctx, query, e.schema, tableName)
	if err != nil {
		return nil, err
	}

	var pk []string
	for _, row := range rows {
		pk = append(pk, stringValue(row, "column_name"))
	}
	return pk, nil
}

func (e *postgresExtractor) relations(ctx context.Context, tableName string) ([]schema.Relation, error) {
	query := `
		SELECT
			kcu.column_name,
			ccu.table_name AS foreign_table_name,
			ccu.column_name AS foreign_column_name
		FROM information_schema.table_constraints AS tc
		JOIN information_schema.key_column_usage AS kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage AS ccu
			ON ccu.constraint_name = tc.constraint_name
			AND ccu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
			AND tc.table_schema = $1
			AND tc.table_name = $2
		ORDER BY kcu.ordinal_position
	`

	rows, err := e.q.Query(ctx, query, e.schema, tableName)
	if err != nil {
		return nil, err
	}

	var relations []schema.Relation
	for _, row := range rows {
		relations = append(relations, schema.Relation{
			SourceColumn: stringValue(row, "column_name"),
			TargetTable:  stringValue(row, "foreign_table_name"),
			TargetColumn: stringValue(row, "foreign_column_name"),
		})
	}
	return relations, nil
}
