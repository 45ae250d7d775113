package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Row is a result row keyed by column name (or alias)
type Row = map[string]any

// Querier is the connection surface the data access layer needs
type Querier interface {
	Dialect() Dialect

	// Query runs a statement and returns every row
	Query(ctx context.Context, query string, args ...any) ([]Row, error)

	// Exec runs a statement and returns the number of affected rows
	Exec(ctx context.Context, query string, args ...any) (int64, error)

	// Insert runs an INSERT and returns the generated id, for dialects
	// without RETURNING
	Insert(ctx context.Context, query string, args ...any) (int64, error)

	Close() error
}

// sqlDB implements Querier over database/sql
type sqlDB struct {
	db      *sql.DB
	dialect Dialect
}

func (s *sqlDB) Dialect() Dialect {
	return s.dialect
}

func (s *sqlDB) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var result []Row
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range columns {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		result = append(result, row)
	}

	return result, rows.Err()
}

func (s *sqlDB) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *sqlDB) Insert(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Close closes the database connection
func (s *sqlDB) Close() error {
	return s.db.Close()
}

// normalizeValue turns driver byte slices into strings so rows encode cleanly
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
