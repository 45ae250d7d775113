package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/scaffold/internal/db"
	"github.com/tordrt/scaffold/internal/modules/todo"
)

func execute(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}, args...))
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func sqliteURL(t *testing.T, ddl string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scaffold.db")

	client, err := db.NewSQLiteClient(context.Background(), path)
	require.NoError(t, err)
	if ddl != "" {
		_, err = client.Exec(context.Background(), ddl)
		require.NoError(t, err)
	}
	require.NoError(t, client.Close())
	return "sqlite://" + path
}

func TestDescribe(t *testing.T) {
	out, err := execute(t, context.Background(), "describe", "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "ENTITY TodoList (table: todo_lists, PK: id)")

	dir := filepath.Join(t.TempDir(), "docs")
	_, err = execute(t, context.Background(), "describe", "--output-dir", dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "_overview.md"))

	_, err = execute(t, context.Background(), "describe", "--output-dir", dir, "--output", "x.md")
	assert.ErrorContains(t, err, "cannot use both")
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		ddl     string
		want    string
		wantErr error
	}{
		{name: "matching", ddl: todo.SQLiteDDL, want: "OK: schema matches the database\n"},
		{name: "empty database", want: "error User (users): table not found\n", wantErr: errDrift},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, context.Background(), "check", "--db-url", sqliteURL(t, tt.ddl))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, context.Background(), "generate", "invoice", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(dir, "invoice", "module.go"))

	_, err = os.Stat(filepath.Join(dir, "invoice", "schema.go"))
	assert.NoError(t, err)

	_, err = execute(t, context.Background(), "generate")
	assert.Error(t, err)
}

func TestServeStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	url := sqliteURL(t, "")
	_, err := execute(t, ctx, "serve", "--db-url", url, "--listen", "127.0.0.1:0", "--create-tables")
	require.NoError(t, err)

	// the tables were created before serving
	out, err := execute(t, context.Background(), "check", "--db-url", url)
	require.NoError(t, err)
	assert.Contains(t, out, "OK")
}

func TestServeRejectsCreateTablesOutsideSQLite(t *testing.T) {
	_, err := execute(t, context.Background(), "serve", "--db-url", "postgres://localhost:1/none?connect_timeout=1", "--create-tables")
	assert.ErrorContains(t, err, "only supported on SQLite")
}
