package schema

// Catalog represents the tables found in a live database
type Catalog struct {
	Tables []Table
}

// Table represents a database table as reported by introspection
type Table struct {
	Name       string
	Columns    []Column
	Relations  []Relation
	PrimaryKey []string
}

// Column represents a table column
type Column struct {
	Name     string
	Type     string
	Nullable bool
}

// Relation represents a foreign key relationship
type Relation struct {
	TargetTable  string
	TargetColumn string
	SourceColumn string
}

// Table returns the table with the given name, or nil
func (c *Catalog) Table(name string) *Table {
	for i := range c.Tables {
		if c.Tables[i].Name == name {
			return &c.Tables[i]
		}
	}
	return nil
}

// HasColumn reports whether the table has a column with the given name
func (t *Table) HasColumn(name string) bool {
	for _, col := range t.Columns {
		if col.Name == name {
			return true
		}
	}
	return false
}
