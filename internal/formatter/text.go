package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/scaffold/internal/schema"
)

// TextFormatter formats entity declarations as compact text
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

// Format writes the entities in compact text format
func (f *TextFormatter) Format(schemas []*schema.Schema) error {
	for i, s := range schemas {
		if i > 0 {
			_, _ = fmt.Fprintln(f.writer) // Blank line between entities
		}
		f.formatEntity(s)
	}
	return nil
}

// FormatIssues writes one line per issue, or a single OK line
func (f *TextFormatter) FormatIssues(issues []schema.Issue) error {
	if len(issues) == 0 {
		_, err := fmt.Fprintln(f.writer, "OK: schema matches the database")
		return err
	}
	for _, issue := range issues {
		if _, err := fmt.Fprintln(f.writer, issue.String()); err != nil {
			return err
		}
	}
	return nil
}

func (f *TextFormatter) formatEntity(s *schema.Schema) {
	_, _ = fmt.Fprintf(f.writer, "ENTITY %s (table: %s, PK: %s)\n", s.Name, qualifiedTable(s), s.PrimaryKeyField())

	for _, field := range s.Fields {
		_, _ = fmt.Fprintf(f.writer, "  %s\n", f.formatField(field))
	}

	var rels []string
	for _, field := range s.Fields {
		if field.Kind != schema.Scalar {
			rels = append(rels, fmt.Sprintf("    %s → %s (%s)", field.Key, field.Ref.Name, joinColumn(s, field)))
		}
	}
	if len(rels) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  RELATIONS:")
		for _, rel := range rels {
			_, _ = fmt.Fprintln(f.writer, rel)
		}
	}
}

func (f *TextFormatter) formatField(field schema.Field) string {
	parts := []string{field.Key + ":"}

	switch field.Kind {
	case schema.Scalar:
		typ := field.Type
		if typ == "" {
			typ = "any"
		}
		parts = append(parts, typ)
		if field.ColumnName() != field.Key {
			parts = append(parts, "COLUMN "+field.ColumnName())
		}
	default:
		parts = append(parts, strings.ToUpper(field.Kind.String()), field.Ref.Name)
		if field.Kind == schema.Object {
			parts = append(parts, "COLUMN "+field.ColumnName())
		}
	}

	parts = append(parts, flags(field)...)
	return strings.Join(parts, " ")
}

// qualifiedTable shows the prefix the way it is configured, not how a
// particular dialect applies it
func qualifiedTable(s *schema.Schema) string {
	if s.Prefix == "" {
		return s.Table
	}
	return s.Prefix + ":" + s.Table
}

// joinColumn names the foreign key column that backs a relation field
func joinColumn(s *schema.Schema, field schema.Field) string {
	if field.Kind == schema.List {
		return field.Ref.Table + "." + s.ForeignKeyColumn()
	}
	return s.Table + "." + field.ColumnName()
}

func flags(field schema.Field) []string {
	var out []string
	if field.SortKey {
		out = append(out, "SORT KEY")
	}
	if field.Searchable {
		out = append(out, "SEARCHABLE")
	}
	return out
}
