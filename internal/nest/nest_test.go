package nest

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRow(t *testing.T) {
	tests := []struct {
		name string
		flat map[string]any
		want map[string]any
	}{
		{
			name: "flat row is unchanged",
			flat: map[string]any{"id": int64(1), "name": "chores"},
			want: map[string]any{"id": int64(1), "name": "chores"},
		},
		{
			name: "dotted aliases nest",
			flat: map[string]any{"id": int64(1), "owner.id": int64(7), "owner.name": "ann"},
			want: map[string]any{"id": int64(1), "owner": map[string]any{"id": int64(7), "name": "ann"}},
		},
		{
			name: "unmatched join collapses to nil",
			flat: map[string]any{"id": int64(1), "owner.id": nil, "owner.name": nil},
			want: map[string]any{"id": int64(1), "owner": nil},
		},
		{
			name: "partially null object is kept",
			flat: map[string]any{"owner.id": int64(7), "owner.name": nil},
			want: map[string]any{"owner": map[string]any{"id": int64(7), "name": nil}},
		},
		{
			name: "deep paths",
			flat: map[string]any{"a.b.c": "x"},
			want: map[string]any{"a": map[string]any{"b": map[string]any{"c": "x"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Row(tt.flat)); diff != "" {
				t.Errorf("Row() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRowsAndAlias(t *testing.T) {
	if got := Alias("owner", "name"); got != "owner.name" {
		t.Errorf("Alias() = %s", got)
	}

	got := Rows([]map[string]any{{"a.b": 1}, {"a.b": 2}})
	want := []map[string]any{{"a": map[string]any{"b": 1}}, {"a": map[string]any{"b": 2}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Rows() mismatch (-want +got):\n%s", diff)
	}
}
