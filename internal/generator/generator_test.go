package generator

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestGenerate(t *testing.T) {
	dir := t.TempDir()

	paths, err := Generate(Options{Name: "sales_order", Dir: dir})
	require.NoError(t, err)

	root := filepath.Join(dir, "sales_order")
	assert.Equal(t, []string{
		filepath.Join(root, "module.go"),
		filepath.Join(root, "schema.go"),
		filepath.Join(root, "locales", "en-US", "sales_order.yaml"),
	}, paths)

	for _, p := range paths[:2] {
		f, err := parser.ParseFile(token.NewFileSet(), p, nil, parser.ImportsOnly)
		require.NoError(t, err, p)
		assert.Equal(t, "salesorder", f.Name.Name)
	}

	module, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Contains(t, string(module), `const Name = "sales_order"`)
	assert.Contains(t, string(module), `Path: "/sales-order"`)
	assert.Contains(t, string(module), `"github.com/tordrt/scaffold/internal/shell"`)

	schema, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Contains(t, string(schema), `var SalesOrder = &schema.Schema{`)
	assert.Contains(t, string(schema), `Table: "sales_orders"`)

	raw, err := os.ReadFile(paths[2])
	require.NoError(t, err)
	var catalog struct {
		Locale    string            `yaml:"locale"`
		Namespace string            `yaml:"namespace"`
		Messages  map[string]string `yaml:"messages"`
	}
	require.NoError(t, yaml.Unmarshal(raw, &catalog))
	assert.Equal(t, "en-US", catalog.Locale)
	assert.Equal(t, "sales_order", catalog.Namespace)
	assert.Equal(t, "sales order", catalog.Messages["title"])
}

func TestGenerateRefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "invoice", "schema.go")
	require.NoError(t, os.MkdirAll(filepath.Dir(existing), 0o755))
	require.NoError(t, os.WriteFile(existing, []byte("package invoice\n"), 0o644))

	_, err := Generate(Options{Name: "invoice", Dir: dir})
	assert.ErrorContains(t, err, "refusing to overwrite")

	// nothing else was written
	_, err = os.Stat(filepath.Join(dir, "invoice", "module.go"))
	assert.True(t, os.IsNotExist(err))
}

func TestGenerateRejectsBadNames(t *testing.T) {
	for _, name := range []string{"", "Invoice", "9lives", "sales-order", "../etc"} {
		_, err := Generate(Options{Name: name, Dir: t.TempDir()})
		assert.Error(t, err, name)
	}
}

func TestGenerateCustomModulePathAndLocale(t *testing.T) {
	paths, err := Generate(Options{
		Name:       "crm",
		Dir:        t.TempDir(),
		ModulePath: "example.com/app",
		Locale:     "de-DE",
	})
	require.NoError(t, err)

	module, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Contains(t, string(module), `"example.com/app/internal/schema"`)
	assert.Equal(t, "de-DE", filepath.Base(filepath.Dir(paths[2])))
}
