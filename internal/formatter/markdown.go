package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/scaffold/internal/schema"
)

// MarkdownFormatter formats entity declarations as markdown
type MarkdownFormatter struct {
	writer io.Writer
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

// Format writes the entities in markdown format
func (f *MarkdownFormatter) Format(schemas []*schema.Schema) error {
	_, _ = fmt.Fprintln(f.writer, "# Entities")
	_, _ = fmt.Fprintln(f.writer)

	for _, s := range schemas {
		f.FormatEntity(s)
	}
	return nil
}

// FormatIssues writes the check report as a markdown table
func (f *MarkdownFormatter) FormatIssues(issues []schema.Issue) error {
	_, _ = fmt.Fprintln(f.writer, "# Schema Check")
	_, _ = fmt.Fprintln(f.writer)

	if len(issues) == 0 {
		_, err := fmt.Fprintln(f.writer, "No differences found.")
		return err
	}

	_, _ = fmt.Fprintln(f.writer, "| Severity | Entity | Table | Column | Message |")
	_, _ = fmt.Fprintln(f.writer, "|---|---|---|---|---|")
	for _, issue := range issues {
		if _, err := fmt.Fprintf(f.writer, "| %s | %s | %s | %s | %s |\n",
			issue.Severity, issue.Entity, issue.Table, issue.Column, issue.Message); err != nil {
			return err
		}
	}
	return nil
}

// FormatEntity formats a single entity (exported for use by multifile formatter)
func (f *MarkdownFormatter) FormatEntity(s *schema.Schema) {
	_, _ = fmt.Fprintf(f.writer, "## %s\n\n", s.Name)
	_, _ = fmt.Fprintf(f.writer, "Table `%s`\n\n", qualifiedTable(s))

	_, _ = fmt.Fprintln(f.writer, "### Fields")
	_, _ = fmt.Fprintln(f.writer)
	for _, field := range s.Scalars() {
		typ := field.Type
		if typ == "" {
			typ = "any"
		}
		attrs := f.formatAttributes(s, field)
		if attrs != "" {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s, %s\n", field.Key, typ, attrs)
		} else {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s\n", field.Key, typ)
		}
	}
	_, _ = fmt.Fprintln(f.writer)

	f.formatRelations(s)
}

func (f *MarkdownFormatter) formatRelations(s *schema.Schema) {
	var rels []schema.Field
	for _, field := range s.Fields {
		if field.Kind != schema.Scalar {
			rels = append(rels, field)
		}
	}
	if len(rels) == 0 {
		return
	}

	_, _ = fmt.Fprintln(f.writer, "### Relations")
	_, _ = fmt.Fprintln(f.writer)
	for _, field := range rels {
		_, _ = fmt.Fprintf(f.writer, "- %s → %s (%s, via %s)\n",
			field.Key,
			field.Ref.Name,
			field.Kind,
			joinColumn(s, field))
	}
	_, _ = fmt.Fprintln(f.writer)
}

func (f *MarkdownFormatter) formatAttributes(s *schema.Schema, field schema.Field) string {
	var attrs []string

	if field.Key == s.PrimaryKeyField() {
		attrs = append(attrs, "PK")
		if s.GenerateID {
			attrs = append(attrs, "UUID")
		}
	}
	if field.ColumnName() != field.Key {
		attrs = append(attrs, fmt.Sprintf("column `%s`", field.ColumnName()))
	}
	for _, flag := range flags(field) {
		attrs = append(attrs, strings.ToLower(flag))
	}

	return strings.Join(attrs, ", ")
}
