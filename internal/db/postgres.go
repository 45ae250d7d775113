package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresClient manages a connection pool to PostgreSQL
type PostgresClient struct {
	pool *pgxpool.Pool
}

// NewPostgresClient creates a new PostgreSQL client
func NewPostgresClient(ctx context.Context, connString string) (*PostgresClient, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresClient{pool: pool}, nil
}

func (c *PostgresClient) Dialect() Dialect {
	return Postgres
}

func (c *PostgresClient) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	out, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, err
	}
	for _, row := range out {
		for k, v := range row {
			row[k] = pgValue(v)
		}
	}
	return out, nil
}

// pgValue converts pgx values that do not encode as JSON scalars. uuid
// columns decode to [16]byte.
func pgValue(v any) any {
	if b, ok := v.([16]byte); ok {
		return uuid.UUID(b).String()
	}
	return v
}

func (c *PostgresClient) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := c.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Insert is not used on PostgreSQL, which reads ids back with RETURNING
func (c *PostgresClient) Insert(ctx context.Context, query string, args ...any) (int64, error) {
	return 0, fmt.Errorf("insert without RETURNING is not supported on PostgreSQL")
}

// Close closes the connection pool
func (c *PostgresClient) Close() error {
	c.pool.Close()
	return nil
}

