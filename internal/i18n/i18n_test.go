package i18n

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"locales/en-US/todo.yaml": {Data: []byte(`
locale: en-US
namespace: todo
messages:
  title: Todo lists
  empty: Nothing to do
`)},
		"locales/de-DE/todo.yaml": {Data: []byte(`
locale: de-DE
namespace: todo
messages:
  title: Aufgabenlisten
`)},
	}
}

func TestBundleMessages(t *testing.T) {
	b := NewBundle()
	require.NoError(t, b.AddFS(testFS()))

	assert.Equal(t, []string{"de-DE", "en-US"}, b.Locales())
	assert.Equal(t, map[string]map[string]string{
		"todo": {"title": "Aufgabenlisten", "empty": "Nothing to do"},
	}, b.Messages("de-DE"))
	assert.Equal(t, "Todo lists", b.Messages("fr-FR")["todo"]["title"])
}

func TestBundleMatch(t *testing.T) {
	b := NewBundle()
	require.NoError(t, b.AddFS(testFS()))

	tests := []struct {
		prefs []string
		want  string
	}{
		{prefs: []string{"de-DE"}, want: "de-DE"},
		{prefs: []string{"de"}, want: "de-DE"},
		{prefs: []string{"fr-CH, fr;q=0.9, de;q=0.8"}, want: "de-DE"},
		{prefs: []string{"ja"}, want: "en-US"},
		{prefs: nil, want: "en-US"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, b.Match(tt.prefs...), "prefs %v", tt.prefs)
	}
}

func TestBundlePrinter(t *testing.T) {
	b := NewBundle()
	require.NoError(t, b.AddFS(testFS()))

	assert.Equal(t, "Aufgabenlisten", b.Printer("de-DE").Sprintf("todo.title"))
	assert.Equal(t, "Todo lists", b.Printer("en-US").Sprintf("todo.title"))
}

func TestBundleRejectsBadCatalogs(t *testing.T) {
	tests := map[string]fstest.MapFS{
		"locale mismatch": {"locales/en-US/todo.yaml": {Data: []byte("locale: de-DE\nnamespace: todo\nmessages:\n  a: b\n")}},
		"namespace mismatch": {"locales/en-US/todo.yaml": {Data: []byte("locale: en-US\nnamespace: shop\nmessages:\n  a: b\n")}},
		"no messages": {"locales/en-US/todo.yaml": {Data: []byte("locale: en-US\nnamespace: todo\n")}},
		"bad yaml": {"locales/en-US/todo.yaml": {Data: []byte("locale: [")}},
	}
	for name, fsys := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, NewBundle().AddFS(fsys))
		})
	}

	b := NewBundle()
	require.NoError(t, b.AddFS(testFS()))
	assert.Error(t, b.AddFS(testFS()), "duplicate namespace")
}
