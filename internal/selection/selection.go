// Package selection turns GraphQL-style field selections into a tree the data
// access layer can project onto columns.
package selection

import (
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// Field is one selected field with its nested selection.
type Field struct {
	Name     string
	Children Set
}

// Set is an ordered list of selected fields.
type Set []Field

// Get returns the named field.
func (s Set) Get(name string) (Field, bool) {
	for _, f := range s {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Parse parses a selection set such as "{ id title items { id rank } }".
// The surrounding braces are optional. Fragments and inline fragments are
// flattened into the enclosing set.
func Parse(src string) (Set, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, nil
	}
	if !strings.HasPrefix(src, "{") && !strings.HasPrefix(src, "query") && !strings.HasPrefix(src, "fragment") {
		src = "{" + src + "}"
	}

	doc, gerr := parser.ParseQuery(&ast.Source{Name: "selection", Input: src})
	if gerr != nil {
		return nil, fmt.Errorf("failed to parse selection: %w", gerr)
	}
	if len(doc.Operations) == 0 {
		return nil, fmt.Errorf("failed to parse selection: no selection set")
	}

	return convert(doc, doc.Operations[0].SelectionSet, 0)
}

// FromPaths builds a set from dotted paths, e.g. "id", "items.title".
func FromPaths(paths ...string) Set {
	var out Set
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			out = out.add(strings.Split(p, "."))
		}
	}
	return out
}

func (s Set) add(parts []string) Set {
	for i := range s {
		if s[i].Name == parts[0] {
			if len(parts) > 1 {
				s[i].Children = s[i].Children.add(parts[1:])
			}
			return s
		}
	}
	f := Field{Name: parts[0]}
	if len(parts) > 1 {
		f.Children = Set(nil).add(parts[1:])
	}
	return append(s, f)
}

// maxFragmentDepth bounds fragment expansion so cyclic spreads terminate
const maxFragmentDepth = 16

func convert(doc *ast.QueryDocument, sel ast.SelectionSet, depth int) (Set, error) {
	if depth > maxFragmentDepth {
		return nil, fmt.Errorf("failed to parse selection: fragments nested too deeply")
	}

	var out Set
	merge := func(fields Set) {
		for _, f := range fields {
			if existing, ok := out.Get(f.Name); ok {
				out = out.replace(Field{Name: f.Name, Children: append(existing.Children, f.Children...)})
				continue
			}
			out = append(out, f)
		}
	}

	for _, s := range sel {
		switch node := s.(type) {
		case *ast.Field:
			if strings.HasPrefix(node.Name, "__") {
				continue
			}
			children, err := convert(doc, node.SelectionSet, depth)
			if err != nil {
				return nil, err
			}
			merge(Set{{Name: node.Name, Children: children}})
		case *ast.InlineFragment:
			children, err := convert(doc, node.SelectionSet, depth+1)
			if err != nil {
				return nil, err
			}
			merge(children)
		case *ast.FragmentSpread:
			frag := doc.Fragments.ForName(node.Name)
			if frag == nil {
				return nil, fmt.Errorf("failed to parse selection: unknown fragment %s", node.Name)
			}
			children, err := convert(doc, frag.SelectionSet, depth+1)
			if err != nil {
				return nil, err
			}
			merge(children)
		}
	}
	return out, nil
}

func (s Set) replace(f Field) Set {
	for i := range s {
		if s[i].Name == f.Name {
			s[i] = f
		}
	}
	return s
}
