// Package generator writes the skeleton of a new feature module.
package generator

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"go/format"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/iancoleman/strcase"
)

// DefaultModulePath is the import path of this repository.
const DefaultModulePath = "github.com/tordrt/scaffold"

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

var validName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Options configures Generate.
type Options struct {
	// Name is the module name, e.g. "invoice". Lower case.
	Name string

	// Dir is the parent directory; files go to Dir/Name.
	Dir string

	// ModulePath is the Go module the generated code imports from.
	ModulePath string

	// Locale of the generated catalog. Defaults to en-US.
	Locale string
}

type data struct {
	Name       string
	Package    string
	Kebab      string
	Entity     string
	Table      string
	Title      string
	Locale     string
	ModulePath string
}

type file struct {
	template string
	path     string
	gofmt    bool
}

// Generate renders the module skeleton and returns the written paths. It
// fails without writing anything if any target file already exists.
func Generate(opts Options) ([]string, error) {
	if !validName.MatchString(opts.Name) {
		return nil, fmt.Errorf("invalid module name %q (use lower case letters, digits and underscores)", opts.Name)
	}
	if opts.ModulePath == "" {
		opts.ModulePath = DefaultModulePath
	}
	if opts.Locale == "" {
		opts.Locale = "en-US"
	}

	d := data{
		Name:       opts.Name,
		Package:    strings.ReplaceAll(opts.Name, "_", ""),
		Kebab:      strcase.ToKebab(opts.Name),
		Entity:     strcase.ToCamel(opts.Name),
		Table:      strcase.ToSnake(opts.Name) + "s",
		Title:      strings.ReplaceAll(strcase.ToDelimited(opts.Name, ' '), "_", " "),
		Locale:     opts.Locale,
		ModulePath: opts.ModulePath,
	}

	root := filepath.Join(opts.Dir, opts.Name)
	files := []file{
		{template: "module.go.tmpl", path: filepath.Join(root, "module.go"), gofmt: true},
		{template: "schema.go.tmpl", path: filepath.Join(root, "schema.go"), gofmt: true},
		{template: "locale.yaml.tmpl", path: filepath.Join(root, "locales", opts.Locale, opts.Name+".yaml")},
	}

	for _, f := range files {
		if _, err := os.Stat(f.path); err == nil {
			return nil, fmt.Errorf("refusing to overwrite %s", f.path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat %s: %w", f.path, err)
		}
	}

	rendered := make([][]byte, len(files))
	for i, f := range files {
		var buf bytes.Buffer
		if err := templates.ExecuteTemplate(&buf, f.template, d); err != nil {
			return nil, fmt.Errorf("failed to render %s: %w", f.template, err)
		}
		out := buf.Bytes()
		if f.gofmt {
			formatted, err := format.Source(out)
			if err != nil {
				return nil, fmt.Errorf("failed to format %s: %w", f.template, err)
			}
			out = formatted
		}
		rendered[i] = out
	}

	paths := make([]string, len(files))
	for i, f := range files {
		if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		if err := os.WriteFile(f.path, rendered[i], 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", f.path, err)
		}
		paths[i] = f.path
	}
	return paths, nil
}
