//go:build integration

package integration

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/scaffold"
	"github.com/tordrt/scaffold/internal/crud"
	"github.com/tordrt/scaffold/internal/db"
	"github.com/tordrt/scaffold/internal/modules/todo"
	"github.com/tordrt/scaffold/internal/selection"
	"github.com/tordrt/scaffold/internal/shell"
)

var postgresDDL = []string{
	`DROP TABLE IF EXISTS todo_items, todo_lists, users`,
	`CREATE TABLE users (id SERIAL PRIMARY KEY, name TEXT NOT NULL)`,
	`CREATE TABLE todo_lists (
		id SERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		owner_id INTEGER REFERENCES users(id)
	)`,
	`CREATE TABLE todo_items (
		id SERIAL PRIMARY KEY,
		todo_list_id INTEGER NOT NULL REFERENCES todo_lists(id),
		title TEXT NOT NULL,
		done BOOLEAN NOT NULL DEFAULT false,
		rank INTEGER NOT NULL DEFAULT 0
	)`,
}

var mysqlDDL = []string{
	"DROP TABLE IF EXISTS todo_items, todo_lists, users",
	"CREATE TABLE users (id INT AUTO_INCREMENT PRIMARY KEY, name VARCHAR(255) NOT NULL) ENGINE=InnoDB",
	"CREATE TABLE todo_lists (" +
		"id INT AUTO_INCREMENT PRIMARY KEY, " +
		"title VARCHAR(255) NOT NULL, " +
		"owner_id INT NULL, " +
		"FOREIGN KEY (owner_id) REFERENCES users(id)) ENGINE=InnoDB",
	"CREATE TABLE todo_items (" +
		"id INT AUTO_INCREMENT PRIMARY KEY, " +
		"todo_list_id INT NOT NULL, " +
		"title VARCHAR(255) NOT NULL, " +
		"done BOOLEAN NOT NULL DEFAULT FALSE, " +
		"`rank` INT NOT NULL DEFAULT 0, " +
		"FOREIGN KEY (todo_list_id) REFERENCES todo_lists(id)) ENGINE=InnoDB",
}

func createTables(t *testing.T, q db.Querier, ddl []string) {
	t.Helper()
	for _, stmt := range ddl {
		_, err := q.Exec(context.Background(), stmt)
		require.NoError(t, err, stmt)
	}
}

func mustSelect(t *testing.T, fields string) selection.Set {
	t.Helper()
	sel, err := selection.Parse(fields)
	require.NoError(t, err)
	return sel
}

// same compares ids across drivers, which disagree on integer widths
func same(t *testing.T, want, got any) {
	t.Helper()
	assert.Equal(t, fmt.Sprint(want), fmt.Sprint(got))
}

// runTodoSuite drives the todo module through every entity operation and
// then checks the declared schemas against the database.
func runTodoSuite(t *testing.T, q db.Querier, namespace string) {
	t.Helper()
	ctx := context.Background()

	s := shell.New(q)
	require.NoError(t, s.Register(todo.Module()))
	require.NoError(t, s.Validate())

	users, _ := s.Entity(todo.Name, "user")
	lists, _ := s.Entity(todo.Name, "todo-list")
	items, _ := s.Entity(todo.Name, "todo-item")

	owner := users.Create(ctx, crud.Input{"name": "ada"}, mustSelect(t, "{id}"))
	require.Empty(t, owner.Errors)

	created := lists.Create(ctx, crud.Input{
		"title":   "groceries",
		"ownerId": owner.Node["id"],
		"items": []any{
			map[string]any{"title": "milk", "rank": 1},
			map[string]any{"title": "eggs", "rank": 2},
		},
	}, mustSelect(t, "{id title owner{name} items{id title rank}}"))
	require.Empty(t, created.Errors)
	assert.Equal(t, "ada", created.Node["owner"].(crud.Node)["name"])

	createdItems := created.Node["items"].([]crud.Node)
	require.Len(t, createdItems, 2)
	listID := created.Node["id"]
	milk, eggs := createdItems[0]["id"], createdItems[1]["id"]

	conn, err := lists.Paginated(ctx, crud.ListArgs{Limit: 1, Where: `title = "groceries"`}, mustSelect(t, "{id}"))
	require.NoError(t, err)
	assert.Len(t, conn.Edges, 1)
	assert.EqualValues(t, 1, conn.PageInfo.TotalCount)

	sorted := items.Sort(ctx, crud.SortArgs{ID: milk, TargetID: eggs}, mustSelect(t, "{rank}"))
	require.Empty(t, sorted.Errors)
	same(t, 2, sorted.Node["rank"])

	updated := lists.Update(ctx, listID, crud.Input{
		"title": "shopping",
		"items": map[string]any{
			"create": []any{map[string]any{"title": "bread", "rank": 3}},
			"delete": []any{milk},
		},
	}, mustSelect(t, "{title items{title}}"))
	require.Empty(t, updated.Errors)
	assert.Equal(t, "shopping", updated.Node["title"])
	assert.Len(t, updated.Node["items"], 2)

	groups, err := items.GetByIDs(ctx, "todoListId", []any{listID}, mustSelect(t, "{id}"))
	require.NoError(t, err)
	require.Len(t, groups, 1)

	var remaining []any
	for _, n := range groups[0] {
		remaining = append(remaining, n["id"])
	}
	deleted := items.DeleteMany(ctx, remaining)
	require.Empty(t, deleted.Errors)
	same(t, 2, deleted.Node["count"])

	gone := lists.Delete(ctx, listID, mustSelect(t, "{title}"))
	require.Empty(t, gone.Errors)
	assert.Equal(t, "shopping", gone.Node["title"])

	_, err = lists.Get(ctx, listID, nil)
	assert.ErrorIs(t, err, crud.ErrNotFound)

	issues, err := scaffold.Check(ctx, q, todo.Module().Schemas, namespace)
	require.NoError(t, err)
	assert.Empty(t, issues)
}
