package formatter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/tordrt/scaffold/internal/schema"
)

const (
	FormatMarkdown = "markdown"
	FormatText     = "text"
)

// MultiFileFormatter writes one file per entity plus an overview
type MultiFileFormatter struct {
	OutputDir    string
	OutputFormat string // "text" or "markdown"
}

// NewMultiFileFormatter creates a new multi-file formatter
func NewMultiFileFormatter(outputDir, format string) *MultiFileFormatter {
	return &MultiFileFormatter{
		OutputDir:    outputDir,
		OutputFormat: format,
	}
}

// Format writes the entities to OutputDir
func (f *MultiFileFormatter) Format(schemas []*schema.Schema) error {
	if err := os.MkdirAll(f.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := f.writeFile("_overview", func(w io.Writer) { f.writeOverview(w, schemas) }); err != nil {
		return fmt.Errorf("failed to write overview: %w", err)
	}

	for _, s := range schemas {
		err := f.writeFile(strcase.ToKebab(s.Name), func(w io.Writer) { f.writeEntity(w, s, schemas) })
		if err != nil {
			return fmt.Errorf("failed to write entity file for %s: %w", s.Name, err)
		}
	}
	return nil
}

func (f *MultiFileFormatter) writeFile(name string, write func(io.Writer)) error {
	file, err := os.Create(filepath.Join(f.OutputDir, name+f.fileExtension()))
	if err != nil {
		return err
	}
	write(file)
	return file.Close()
}

func (f *MultiFileFormatter) writeOverview(w io.Writer, schemas []*schema.Schema) {
	sorted := slices.Clone(schemas)
	slices.SortFunc(sorted, func(a, b *schema.Schema) int { return strings.Compare(a.Name, b.Name) })

	if f.OutputFormat == FormatMarkdown {
		_, _ = fmt.Fprintf(w, "# Entity Overview\n\n")
		_, _ = fmt.Fprintf(w, "Each entity has a corresponding file: `<entity-name>%s`\n\n", f.fileExtension())
		_, _ = fmt.Fprintf(w, "## Entities\n\n")
	} else {
		_, _ = fmt.Fprintf(w, "ENTITY OVERVIEW\n")
		_, _ = fmt.Fprintf(w, "Each entity has a file: <entity-name>%s\n\n", f.fileExtension())
	}

	for _, s := range sorted {
		if f.OutputFormat == FormatMarkdown {
			_, _ = fmt.Fprintf(w, "- **%s** `%s`", s.Name, qualifiedTable(s))
		} else {
			_, _ = fmt.Fprintf(w, "%s %s", s.Name, qualifiedTable(s))
		}
		if targets := relationTargets(s); len(targets) > 0 {
			_, _ = fmt.Fprintf(w, " (references: %s)", strings.Join(targets, ", "))
		}
		_, _ = fmt.Fprintln(w)
	}
}

func (f *MultiFileFormatter) writeEntity(w io.Writer, s *schema.Schema, all []*schema.Schema) {
	incoming := findIncomingRelations(s, all)

	if f.OutputFormat != FormatMarkdown {
		NewTextFormatter(w).formatEntity(s)
		if len(incoming) > 0 {
			_, _ = fmt.Fprintln(w)
			_, _ = fmt.Fprintln(w, "  REFERENCED BY:")
			for _, rel := range incoming {
				_, _ = fmt.Fprintf(w, "    %s.%s (%s)\n", rel.Source, rel.Field, rel.Kind)
			}
		}
		return
	}

	NewMarkdownFormatter(w).FormatEntity(s)
	if len(incoming) > 0 {
		_, _ = fmt.Fprintf(w, "### Referenced by\n\n")
		for _, rel := range incoming {
			_, _ = fmt.Fprintf(w, "- %s.%s (%s)\n", rel.Source, rel.Field, rel.Kind)
		}
		_, _ = fmt.Fprintln(w)
	}
}

// IncomingRelation is a relation field of another entity that targets this one
type IncomingRelation struct {
	Source string
	Field  string
	Kind   schema.Kind
}

func findIncomingRelations(target *schema.Schema, all []*schema.Schema) []IncomingRelation {
	var incoming []IncomingRelation
	for _, s := range all {
		for _, field := range s.Fields {
			if field.Kind != schema.Scalar && field.Ref != nil && field.Ref.Name == target.Name {
				incoming = append(incoming, IncomingRelation{Source: s.Name, Field: field.Key, Kind: field.Kind})
			}
		}
	}
	return incoming
}

func relationTargets(s *schema.Schema) []string {
	var targets []string
	for _, field := range s.Fields {
		if field.Kind != schema.Scalar && !slices.Contains(targets, field.Ref.Name) {
			targets = append(targets, field.Ref.Name)
		}
	}
	return targets
}

func (f *MultiFileFormatter) fileExtension() string {
	if f.OutputFormat == FormatMarkdown {
		return ".md"
	}
	return ".txt"
}
