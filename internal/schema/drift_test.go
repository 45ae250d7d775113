package schema

import (
	"testing"
)

func TestCompare(t *testing.T) {
	list, _, _ := testSchemas()
	target := func(s *Schema) string { return s.Table }

	full := &Table{
		Name: "todo_lists",
		Columns: []Column{
			{Name: "id"}, {Name: "name"}, {Name: "due"}, {Name: "owner_id"},
		},
		PrimaryKey: []string{"id"},
		Relations:  []Relation{{SourceColumn: "owner_id", TargetTable: "users", TargetColumn: "id"}},
	}

	tests := []struct {
		name  string
		table *Table
		want  []string
	}{
		{
			name:  "missing table",
			table: nil,
			want:  []string{"error TodoList (todo_lists): table not found"},
		},
		{
			name:  "in sync",
			table: full,
		},
		{
			name: "missing column and foreign key",
			table: &Table{
				Name:       "todo_lists",
				Columns:    []Column{{Name: "id"}, {Name: "name"}, {Name: "owner_id"}},
				PrimaryKey: []string{"id"},
			},
			want: []string{
				"error TodoList (todo_lists.due): column for field dueDate not found",
				"warning TodoList (todo_lists.owner_id): no foreign key to users",
			},
		},
		{
			name: "primary key mismatch",
			table: &Table{
				Name:       "todo_lists",
				Columns:    full.Columns,
				Relations:  full.Relations,
				PrimaryKey: []string{"name"},
			},
			want: []string{"warning TodoList (todo_lists.id): primary key is (name)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := Compare(list, "todo_lists", tt.table, target)
			if len(issues) != len(tt.want) {
				t.Fatalf("Compare() returned %d issues, want %d: %v", len(issues), len(tt.want), issues)
			}
			for i, issue := range issues {
				if got := issue.String(); got != tt.want[i] {
					t.Errorf("issue %d = %q, want %q", i, got, tt.want[i])
				}
			}
		})
	}
}
