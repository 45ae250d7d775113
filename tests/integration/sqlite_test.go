//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tordrt/scaffold/internal/db"
	"github.com/tordrt/scaffold/internal/modules/todo"
)

func TestSQLiteTodo(t *testing.T) {
	ctx := context.Background()

	// Use environment variable if set, otherwise a fresh file
	dbPath := os.Getenv("SQLITE_TEST_PATH")
	if dbPath == "" {
		dbPath = filepath.Join(t.TempDir(), "todo.db")
	}

	client, err := db.Open(ctx, "sqlite://"+dbPath)
	require.NoError(t, err, "failed to connect to SQLite")
	defer client.Close()

	createTables(t, client, []string{
		"DROP TABLE IF EXISTS todo_items",
		"DROP TABLE IF EXISTS todo_lists",
		"DROP TABLE IF EXISTS users",
		todo.SQLiteDDL,
	})
	runTodoSuite(t, client, "")
}
