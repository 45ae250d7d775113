package formatter

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/scaffold/internal/schema"
)

func entities() []*schema.Schema {
	user := &schema.Schema{
		Name:       "User",
		Table:      "users",
		GenerateID: true,
		Fields:     []schema.Field{{Key: "id", Type: "text"}, {Key: "displayName", Type: "text", Searchable: true}},
	}
	item := &schema.Schema{
		Name:  "TodoItem",
		Table: "todo_items",
		Fields: []schema.Field{
			{Key: "id", Type: "integer"},
			{Key: "todoListId", Type: "integer"},
			{Key: "rank", Type: "integer", SortKey: true},
		},
	}
	list := &schema.Schema{
		Name:   "TodoList",
		Table:  "todo_lists",
		Prefix: "acme",
		Fields: []schema.Field{
			{Key: "id", Type: "integer"},
			{Key: "title", Type: "text", Searchable: true},
			{Key: "owner", Kind: schema.Object, Ref: user},
			{Key: "items", Kind: schema.List, Ref: item},
		},
	}
	return []*schema.Schema{list, item, user}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTextFormatter(&buf).Format(entities()[:1]))

	want := `ENTITY TodoList (table: acme:todo_lists, PK: id)
  id: integer
  title: text SEARCHABLE
  owner: OBJECT User COLUMN owner_id
  items: LIST TodoItem

  RELATIONS:
    owner → User (todo_lists.owner_id)
    items → TodoItem (todo_items.todo_list_id)
`
	assert.Equal(t, want, buf.String())
}

func TestMarkdownFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewMarkdownFormatter(&buf).Format(entities()))

	out := buf.String()
	assert.Contains(t, out, "# Entities\n")
	assert.Contains(t, out, "## TodoList\n\nTable `acme:todo_lists`\n")
	assert.Contains(t, out, "- **title:** text, searchable\n")
	assert.Contains(t, out, "- **todoListId:** integer, column `todo_list_id`\n")
	assert.Contains(t, out, "- **rank:** integer, sort key\n")
	assert.Contains(t, out, "- **id:** text, PK, UUID\n")
	assert.Contains(t, out, "- items → TodoItem (list, via todo_items.todo_list_id)\n")
}

func TestFormatIssues(t *testing.T) {
	issues := []schema.Issue{
		{Entity: "TodoList", Table: "todo_lists", Column: "due", Severity: schema.SeverityError, Message: "column for field due not found"},
	}

	var text bytes.Buffer
	require.NoError(t, NewTextFormatter(&text).FormatIssues(nil))
	assert.Equal(t, "OK: schema matches the database\n", text.String())

	text.Reset()
	require.NoError(t, NewTextFormatter(&text).FormatIssues(issues))
	assert.Equal(t, "error TodoList (todo_lists.due): column for field due not found\n", text.String())

	var md bytes.Buffer
	require.NoError(t, NewMarkdownFormatter(&md).FormatIssues(issues))
	assert.Contains(t, md.String(), "| error | TodoList | todo_lists | due | column for field due not found |\n")
}

func TestMultiFileFormat(t *testing.T) {
	tests := []struct {
		format   string
		ext      string
		incoming string
	}{
		{format: FormatMarkdown, ext: ".md", incoming: "### Referenced by\n\n- TodoList.owner (object)\n"},
		{format: FormatText, ext: ".txt", incoming: "  REFERENCED BY:\n    TodoList.owner (object)\n"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "entities")
			require.NoError(t, NewMultiFileFormatter(dir, tt.format).Format(entities()))

			for _, name := range []string{"_overview", "todo-list", "todo-item", "user"} {
				assert.FileExists(t, filepath.Join(dir, name+tt.ext))
			}

			overview, err := os.ReadFile(filepath.Join(dir, "_overview"+tt.ext))
			require.NoError(t, err)
			assert.Contains(t, string(overview), "(references: User, TodoItem)")

			user, err := os.ReadFile(filepath.Join(dir, "user"+tt.ext))
			require.NoError(t, err)
			assert.Contains(t, string(user), tt.incoming)
		})
	}
}
