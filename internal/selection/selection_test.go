package selection

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		want    Set
		wantErr bool
	}{
		{
			name: "flat selection without braces",
			src:  "id title",
			want: Set{{Name: "id"}, {Name: "title"}},
		},
		{
			name: "nested selection",
			src:  "{ id items { id rank } owner { name } }",
			want: Set{
				{Name: "id"},
				{Name: "items", Children: Set{{Name: "id"}, {Name: "rank"}}},
				{Name: "owner", Children: Set{{Name: "name"}}},
			},
		},
		{
			name: "typename is dropped",
			src:  "{ __typename id }",
			want: Set{{Name: "id"}},
		},
		{
			name: "fragment spread is flattened",
			src:  "query { id ...Parts } fragment Parts on TodoList { name id }",
			want: Set{{Name: "id"}, {Name: "name"}},
		},
		{
			name: "inline fragment is flattened",
			src:  "{ id ... on TodoList { name } }",
			want: Set{{Name: "id"}, {Name: "name"}},
		},
		{
			name: "empty selection",
			src:  "  ",
			want: nil,
		},
		{
			name:    "syntax error",
			src:     "{ id items { }",
			wantErr: true,
		},
		{
			name:    "unknown fragment",
			src:     "{ ...Missing }",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.src)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFromPaths(t *testing.T) {
	got := FromPaths("id", "items.title", "items.rank", "owner.name", "")
	want := Set{
		{Name: "id"},
		{Name: "items", Children: Set{{Name: "title"}, {Name: "rank"}}},
		{Name: "owner", Children: Set{{Name: "name"}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FromPaths() mismatch (-want +got):\n%s", diff)
	}
}
