package db

import (
	"context"
	"fmt"
	"strings"
)

// ParseURL detects the database type and returns the driver connection string
func ParseURL(url string) (dbType, connectionStr string, err error) {
	if url == "" {
		return "", "", fmt.Errorf("database URL is required")
	}

	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return Postgres.Name, url, nil
	}

	if strings.HasPrefix(url, "mysql://") {
		// Strip mysql:// prefix for the Go MySQL driver
		return MySQL.Name, strings.TrimPrefix(url, "mysql://"), nil
	}

	if strings.HasPrefix(url, "sqlite://") {
		// Strip sqlite:// prefix to get file path
		return SQLite.Name, strings.TrimPrefix(url, "sqlite://"), nil
	}

	return "", "", fmt.Errorf("invalid database URL scheme (must start with postgres://, mysql://, or sqlite://)")
}

// Open connects to the database named by url
func Open(ctx context.Context, url string) (Querier, error) {
	dbType, connStr, err := ParseURL(url)
	if err != nil {
		return nil, err
	}

	switch dbType {
	case Postgres.Name:
		client, err := NewPostgresClient(ctx, connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		return client, nil
	case MySQL.Name:
		client, err := NewMySQLClient(ctx, connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
		}
		return client, nil
	default:
		client, err := NewSQLiteClient(ctx, connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
		}
		return client, nil
	}
}
