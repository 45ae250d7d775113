package schema

import (
	"fmt"
	"slices"
	"strings"
)

// Severity grades an Issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one difference between a declared entity and its table.
type Issue struct {
	Entity   string   `json:"entity"`
	Table    string   `json:"table"`
	Column   string   `json:"column,omitempty"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	target := i.Table
	if i.Column != "" {
		target += "." + i.Column
	}
	return fmt.Sprintf("%s %s (%s): %s", i.Severity, i.Entity, target, i.Message)
}

// Compare reports where table deviates from the declaration s. table is nil
// when introspection did not find it. targetTable maps a relation target to
// the table name introspection reports for it.
func Compare(s *Schema, tableName string, table *Table, targetTable func(*Schema) string) []Issue {
	issue := func(sev Severity, column, format string, args ...any) Issue {
		return Issue{
			Entity:   s.Name,
			Table:    tableName,
			Column:   column,
			Severity: sev,
			Message:  fmt.Sprintf(format, args...),
		}
	}

	if table == nil {
		return []Issue{issue(SeverityError, "", "table not found")}
	}

	var issues []Issue
	for _, f := range s.Fields {
		if f.Kind == List {
			continue
		}
		col := f.ColumnName()
		if !table.HasColumn(col) {
			issues = append(issues, issue(SeverityError, col, "column for field %s not found", f.Key))
			continue
		}
		if f.Kind != Object {
			continue
		}

		target := targetTable(f.Ref)
		linked := slices.ContainsFunc(table.Relations, func(r Relation) bool {
			return r.SourceColumn == col && r.TargetTable == target
		})
		if !linked {
			issues = append(issues, issue(SeverityWarning, col, "no foreign key to %s", target))
		}
	}

	pk := s.PrimaryKeyColumn()
	switch {
	case len(table.PrimaryKey) == 0:
		issues = append(issues, issue(SeverityWarning, pk, "table has no primary key"))
	case !slices.Contains(table.PrimaryKey, pk):
		issues = append(issues, issue(SeverityWarning, pk, "primary key is (%s)", strings.Join(table.PrimaryKey, ", ")))
	}
	return issues
}
