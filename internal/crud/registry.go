package crud

import (
	"fmt"
	"sort"

	"github.com/tordrt/scaffold/internal/schema"
)

// Registry holds the Crud of every entity so relations can be resolved by the
// sibling that owns the target table.
type Registry struct {
	entries map[string]*Crud
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Crud)}
}

// Register adds c under its schema name
func (r *Registry) Register(c *Crud) error {
	name := c.schema.Name
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("entity %s is already registered", name)
	}
	r.entries[name] = c
	c.registry = r
	return nil
}

// Lookup returns the Crud registered for an entity name
func (r *Registry) Lookup(name string) (*Crud, bool) {
	c, ok := r.entries[name]
	return c, ok
}

// Names returns the registered entity names, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Schemas returns the registered schemas, sorted by name
func (r *Registry) Schemas() []*schema.Schema {
	names := r.Names()
	out := make([]*schema.Schema, len(names))
	for i, name := range names {
		out[i] = r.entries[name].schema
	}
	return out
}

// Validate checks that every relation target is registered and that children
// of list relations carry the parent foreign key, either as a field or as an
// object relation back to the parent.
func (r *Registry) Validate() error {
	for _, name := range r.Names() {
		s := r.entries[name].schema
		for _, f := range s.Fields {
			if f.Kind == schema.Scalar {
				continue
			}
			target, ok := r.entries[f.Ref.Name]
			if !ok {
				return fmt.Errorf("entity %s: relation %s targets unregistered entity %s", s.Name, f.Key, f.Ref.Name)
			}
			if f.Kind == schema.List {
				if _, ok := target.schema.ColumnFor(s.ForeignKey()); !ok {
					return fmt.Errorf("entity %s: relation %s requires %s to declare field %s or an object relation to %s", s.Name, f.Key, f.Ref.Name, s.ForeignKey(), s.Name)
				}
			}
		}
	}
	return nil
}
