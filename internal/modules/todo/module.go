// Package todo is the example feature module: todo lists with ranked items
// and an owning user.
package todo

import (
	"context"
	"embed"
	"strings"

	"github.com/tordrt/scaffold/internal/crud"
	"github.com/tordrt/scaffold/internal/schema"
	"github.com/tordrt/scaffold/internal/shell"
)

// Name is the module name and its URL segment.
const Name = "todo"

//go:embed locales/*/*.yaml
var locales embed.FS

// SQLiteDDL creates the tables of the module on SQLite.
const SQLiteDDL = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS todo_lists (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	owner_id INTEGER REFERENCES users(id)
);
CREATE TABLE IF NOT EXISTS todo_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	todo_list_id INTEGER NOT NULL REFERENCES todo_lists(id),
	title TEXT NOT NULL,
	done BOOLEAN NOT NULL DEFAULT 0,
	rank INTEGER NOT NULL DEFAULT 0
);
`

var (
	// User owns todo lists.
	User = &schema.Schema{
		Name:  "User",
		Table: "users",
		Fields: []schema.Field{
			{Key: "id", Type: "integer"},
			{Key: "name", Type: "text", Searchable: true},
		},
	}

	// TodoItem is one ranked entry of a list.
	TodoItem = &schema.Schema{
		Name:  "TodoItem",
		Table: "todo_items",
		Fields: []schema.Field{
			{Key: "id", Type: "integer"},
			{Key: "todoListId", Type: "integer"},
			{Key: "title", Type: "text", Searchable: true},
			{Key: "done", Type: "boolean"},
			{Key: "rank", Type: "integer", SortKey: true},
		},
	}

	// TodoList groups items and belongs to a user.
	TodoList = &schema.Schema{
		Name:  "TodoList",
		Table: "todo_lists",
		Fields: []schema.Field{
			{Key: "id", Type: "integer"},
			{Key: "title", Type: "text", Searchable: true},
			{Key: "owner", Kind: schema.Object, Ref: User},
			{Key: "items", Kind: schema.List, Ref: TodoItem},
		},
	}
)

// Module returns the descriptor registered with the shell.
func Module() shell.Module {
	return shell.Module{
		Name: Name,
		Routes: []shell.Route{
			{Path: "/todo", Title: "todo.title"},
			{Path: "/todo/:id", Title: "todo.list"},
		},
		Navigation: []shell.NavItem{
			{Label: "todo.title", Path: "/todo", Icon: "checklist"},
		},
		Schemas:    []*schema.Schema{User, TodoList, TodoItem},
		Locales:    locales,
		Validators: map[string]crud.Validator{
			TodoList.Name: requireTitle,
			TodoItem.Name: requireTitle,
		},
	}
}

// requireTitle rejects blank titles. Updates may omit the title.
func requireTitle(_ context.Context, op crud.Op, input crud.Input) []crud.FieldError {
	v, present := input["title"]
	if !present && op == crud.OpUpdate {
		return nil
	}
	if s, ok := v.(string); !ok || strings.TrimSpace(s) == "" {
		return []crud.FieldError{{Path: "title", Message: "title is required"}}
	}
	return nil
}
