// Package nest rebuilds nested objects from flat rows whose keys are dotted
// aliases, e.g. {"id": 1, "owner.id": 7, "owner.name": "ann"}.
package nest

import (
	"sort"
	"strings"
)

// Separator joins path segments in column aliases.
const Separator = "."

// Alias builds the column alias for a nested path.
func Alias(path ...string) string {
	return strings.Join(path, Separator)
}

// Row reshapes one flat row into a tree. A nested object whose values are all
// NULL (an unmatched LEFT JOIN) collapses to nil.
func Row(flat map[string]any) map[string]any {
	out := make(map[string]any, len(flat))

	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		set(out, strings.Split(k, Separator), flat[k])
	}
	collapse(out)
	return out
}

// Rows reshapes every row.
func Rows(flat []map[string]any) []map[string]any {
	out := make([]map[string]any, len(flat))
	for i, r := range flat {
		out[i] = Row(r)
	}
	return out
}

func set(m map[string]any, path []string, v any) {
	if len(path) == 1 {
		if _, exists := m[path[0]].(map[string]any); exists {
			// a nested object already owns this key
			return
		}
		m[path[0]] = v
		return
	}
	child, ok := m[path[0]].(map[string]any)
	if !ok {
		child = make(map[string]any)
		m[path[0]] = child
	}
	set(child, path[1:], v)
}

// collapse replaces nested objects with only nil leaves by nil, and reports
// whether m itself is all nil.
func collapse(m map[string]any) bool {
	empty := true
	for k, v := range m {
		switch child := v.(type) {
		case map[string]any:
			if collapse(child) {
				m[k] = nil
			} else {
				empty = false
			}
		case nil:
		default:
			empty = false
		}
	}
	return empty
}
