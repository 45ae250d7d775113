package schema

import (
	"testing"
)

func testSchemas() (*Schema, *Schema, *Schema) {
	user := &Schema{
		Name:  "User",
		Table: "users",
		Fields: []Field{
			{Key: "id"},
			{Key: "displayName", Searchable: true},
		},
	}
	item := &Schema{
		Name:  "TodoItem",
		Table: "todo_items",
		Fields: []Field{
			{Key: "id"},
			{Key: "title", Searchable: true},
			{Key: "rank", SortKey: true},
			{Key: "todoListId"},
		},
	}
	list := &Schema{
		Name:   "TodoList",
		Table:  "todo_lists",
		Prefix: "acme",
		Fields: []Field{
			{Key: "id"},
			{Key: "name", Searchable: true},
			{Key: "dueDate", Column: "due"},
			{Key: "owner", Kind: Object, Ref: user},
			{Key: "items", Kind: List, Ref: item},
		},
	}
	return list, item, user
}

func TestColumnNames(t *testing.T) {
	list, _, _ := testSchemas()

	tests := []struct {
		key  string
		want string
		ok   bool
	}{
		{key: "id", want: "id", ok: true},
		{key: "name", want: "name", ok: true},
		{key: "dueDate", want: "due", ok: true},
		{key: "owner", want: "owner_id", ok: true},
		{key: "ownerId", want: "owner_id", ok: true},
		{key: "items", ok: false},
		{key: "missing", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := list.ColumnFor(tt.key)
			if ok != tt.ok {
				t.Fatalf("ColumnFor(%q) ok = %v, want %v", tt.key, ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("ColumnFor(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestForeignKeyConvention(t *testing.T) {
	list, item, _ := testSchemas()

	if got := list.ForeignKey(); got != "todoListId" {
		t.Errorf("ForeignKey() = %q, want todoListId", got)
	}
	if got := list.ForeignKeyColumn(); got != "todo_list_id" {
		t.Errorf("ForeignKeyColumn() = %q, want todo_list_id", got)
	}
	if _, ok := item.Field(list.ForeignKey()); !ok {
		t.Error("child schema should declare the parent foreign key")
	}
}

func TestSearchableAndSortKey(t *testing.T) {
	list, item, _ := testSchemas()

	cols := list.SearchableColumns()
	if len(cols) != 1 || cols[0] != "name" {
		t.Errorf("SearchableColumns() = %v, want [name]", cols)
	}

	f, ok := item.SortKey()
	if !ok || f.Key != "rank" {
		t.Errorf("SortKey() = %v, %v, want rank", f, ok)
	}
	if _, ok := list.SortKey(); ok {
		t.Error("todo list has no sort key")
	}
}

func TestValidate(t *testing.T) {
	list, _, _ := testSchemas()
	if err := list.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}

	tests := []struct {
		name   string
		schema *Schema
	}{
		{name: "missing name", schema: &Schema{Table: "t", Fields: []Field{{Key: "id"}}}},
		{name: "missing table", schema: &Schema{Name: "T", Fields: []Field{{Key: "id"}}}},
		{name: "missing primary key", schema: &Schema{Name: "T", Table: "t", Fields: []Field{{Key: "name"}}}},
		{name: "duplicate field", schema: &Schema{Name: "T", Table: "t", Fields: []Field{{Key: "id"}, {Key: "id"}}}},
		{name: "relation without target", schema: &Schema{Name: "T", Table: "t", Fields: []Field{{Key: "id"}, {Key: "kids", Kind: List}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.schema.Validate(); err == nil {
				t.Error("Expected error but got none")
			}
		})
	}
}

func TestCatalogLookup(t *testing.T) {
	c := &Catalog{Tables: []Table{
		{Name: "users", Columns: []Column{{Name: "id"}, {Name: "display_name"}}},
	}}

	table := c.Table("users")
	if table == nil {
		t.Fatal("users table not found")
	}
	if !table.HasColumn("display_name") {
		t.Error("expected display_name column")
	}
	if table.HasColumn("email") {
		t.Error("unexpected email column")
	}
	if c.Table("orders") != nil {
		t.Error("unexpected orders table")
	}
}
