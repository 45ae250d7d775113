package schema

import (
	"fmt"

	"github.com/iancoleman/strcase"
)

// DefaultPrimaryKey is the field key used when a schema does not name one.
const DefaultPrimaryKey = "id"

// Kind describes what a field holds.
type Kind int

const (
	// Scalar is a plain column.
	Scalar Kind = iota
	// Object is a to-one relation, stored as a foreign key column on this table.
	Object
	// List is a to-many relation; children carry the foreign key.
	List
)

func (k Kind) String() string {
	switch k {
	case Object:
		return "object"
	case List:
		return "list"
	default:
		return "scalar"
	}
}

// Field describes one key of an entity.
type Field struct {
	Key        string
	Column     string // defaults to snake_case(Key)
	Type       string // informational SQL type for scalars
	Kind       Kind
	Ref        *Schema
	SortKey    bool
	Searchable bool
}

// ColumnName returns the column backing a scalar field. For an Object field it
// is the local foreign key column, e.g. owner -> owner_id.
func (f *Field) ColumnName() string {
	if f.Column != "" {
		return f.Column
	}
	if f.Kind == Object {
		return strcase.ToSnake(f.Key + "Id")
	}
	return strcase.ToSnake(f.Key)
}

// Schema is a declarative description of one table.
//
// Table, Prefix and Fields are fixed once a Crud has been built from the
// schema. Relations point at other schemas through Field.Ref.
type Schema struct {
	// Name is the entity type name, e.g. "TodoList".
	Name string

	// Table is the unqualified table name, e.g. "todo_lists".
	Table string

	// Prefix namespaces the table for multi-tenant deployments. It maps to a
	// PostgreSQL/MySQL schema, and to a table name prefix on SQLite.
	Prefix string

	// PrimaryKey is the key of the primary key field. Defaults to "id".
	PrimaryKey string

	// GenerateID makes Create assign a UUID to the primary key instead of
	// reading back a database generated value.
	GenerateID bool

	Fields []Field
}

// PrimaryKeyField returns the key of the primary key field.
func (s *Schema) PrimaryKeyField() string {
	if s.PrimaryKey == "" {
		return DefaultPrimaryKey
	}
	return s.PrimaryKey
}

// PrimaryKeyColumn returns the column of the primary key.
func (s *Schema) PrimaryKeyColumn() string {
	if f, ok := s.Field(s.PrimaryKeyField()); ok {
		return f.ColumnName()
	}
	return strcase.ToSnake(s.PrimaryKeyField())
}

// Field looks up a field by key.
func (s *Schema) Field(key string) (*Field, bool) {
	for i := range s.Fields {
		if s.Fields[i].Key == key {
			return &s.Fields[i], true
		}
	}
	return nil, false
}

// ForeignKey is the field key that children of this schema use to point back
// at it: lowerCamel(Name) + "Id", e.g. TodoList -> todoListId.
func (s *Schema) ForeignKey() string {
	return strcase.ToLowerCamel(s.Name) + "Id"
}

// ForeignKeyColumn is the column form of ForeignKey, e.g. todo_list_id.
func (s *Schema) ForeignKeyColumn() string {
	return strcase.ToSnake(s.ForeignKey())
}

// Scalars returns the scalar fields in declaration order.
func (s *Schema) Scalars() []Field {
	var out []Field
	for _, f := range s.Fields {
		if f.Kind == Scalar {
			out = append(out, f)
		}
	}
	return out
}

// SearchableColumns returns the columns flagged for free-text search.
func (s *Schema) SearchableColumns() []string {
	var cols []string
	for _, f := range s.Fields {
		if f.Kind == Scalar && f.Searchable {
			cols = append(cols, f.ColumnName())
		}
	}
	return cols
}

// SortKey returns the field flagged as sort key, if any.
func (s *Schema) SortKey() (*Field, bool) {
	for i := range s.Fields {
		if s.Fields[i].SortKey {
			return &s.Fields[i], true
		}
	}
	return nil, false
}

// ColumnFor maps an input key to its column. Relation keys of kind Object map
// to their foreign key column; the child foreign key convention is accepted
// even when it is not declared as a field.
func (s *Schema) ColumnFor(key string) (string, bool) {
	if f, ok := s.Field(key); ok {
		if f.Kind == List {
			return "", false
		}
		return f.ColumnName(), true
	}
	for _, f := range s.Fields {
		if f.Kind == Object && f.Key+"Id" == key {
			return f.ColumnName(), true
		}
	}
	return "", false
}

// Validate checks the schema for missing names and inconsistent relations.
func (s *Schema) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("schema name is required")
	}
	if s.Table == "" {
		return fmt.Errorf("schema %s: table is required", s.Name)
	}

	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if f.Key == "" {
			return fmt.Errorf("schema %s: field key is required", s.Name)
		}
		if seen[f.Key] {
			return fmt.Errorf("schema %s: duplicate field %s", s.Name, f.Key)
		}
		seen[f.Key] = true

		if f.Kind != Scalar && f.Ref == nil {
			return fmt.Errorf("schema %s: %s field %s has no target schema", s.Name, f.Kind, f.Key)
		}
		if f.Kind == Scalar && f.Ref != nil {
			return fmt.Errorf("schema %s: scalar field %s cannot reference %s", s.Name, f.Key, f.Ref.Name)
		}
	}

	if !seen[s.PrimaryKeyField()] {
		return fmt.Errorf("schema %s: primary key field %s is not declared", s.Name, s.PrimaryKeyField())
	}
	return nil
}
