package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/scaffold/internal/schema"
)

func testTranslator(t *testing.T) *Translator {
	t.Helper()

	s := &schema.Schema{
		Name:  "TodoItem",
		Table: "todo_items",
		Fields: []schema.Field{
			{Key: "id", Type: "integer"},
			{Key: "title", Type: "text"},
			{Key: "rank", Type: "integer"},
			{Key: "done", Type: "boolean"},
			{Key: "dueAt", Type: "timestamp"},
		},
	}
	tr, err := NewTranslator(s, func(c string) string { return `"` + c + `"` })
	require.NoError(t, err)
	return tr
}

func TestParse(t *testing.T) {
	tr := testTranslator(t)

	tests := []struct {
		name     string
		filter   string
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "string equality",
			filter:   `title = "milk"`,
			wantSQL:  `"title" = ?`,
			wantArgs: []any{"milk"},
		},
		{
			name:     "camel case key maps to column",
			filter:   `dueAt > timestamp("2024-01-02T03:04:05Z")`,
			wantSQL:  `"due_at" > ?`,
			wantArgs: []any{time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		},
		{
			name:     "and of comparisons",
			filter:   `rank >= 2 AND title = "milk"`,
			wantSQL:  `("rank" >= ? AND "title" = ?)`,
			wantArgs: []any{int64(2), "milk"},
		},
		{
			name:     "or with not equals",
			filter:   `rank < 1 OR title != "x"`,
			wantSQL:  `("rank" < ? OR "title" <> ?)`,
			wantArgs: []any{int64(1), "x"},
		},
		{
			name:     "negation",
			filter:   `NOT rank = 3`,
			wantSQL:  `NOT ("rank" = ?)`,
			wantArgs: []any{int64(3)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond, err := tr.Parse(tt.filter)
			require.NoError(t, err)
			require.NotNil(t, cond)

			sql, args, err := cond.ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestParseEmpty(t *testing.T) {
	tr := testTranslator(t)

	cond, err := tr.Parse("   ")
	require.NoError(t, err)
	assert.Nil(t, cond)
}

func TestParseErrors(t *testing.T) {
	tr := testTranslator(t)

	for _, f := range []string{
		`unknown = 1`,
		`title = `,
		`rank = "not a number"`,
	} {
		t.Run(f, func(t *testing.T) {
			_, err := tr.Parse(f)
			assert.Error(t, err)
		})
	}
}
