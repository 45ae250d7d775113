// Package i18n merges the YAML message catalogs shipped by feature modules
// and serves them per locale.
//
// Catalog files live at locales/<locale>/<namespace>.yaml inside a module's
// file system:
//
//	locale: en-US
//	namespace: todo
//	messages:
//	  title: Todo lists
//
// Messages are addressed as "<namespace>.<key>".
package i18n

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the fallback for missing locales and messages.
const BaseLocale = "en-US"

type catalogFile struct {
	Locale    string            `yaml:"locale"`
	Namespace string            `yaml:"namespace"`
	Messages  map[string]string `yaml:"messages"`
}

// Bundle holds the messages of every loaded locale, grouped by namespace.
// It is filled at startup and read-only afterwards.
type Bundle struct {
	locales map[string]map[string]map[string]string
	catalog *catalog.Builder
	tags    []language.Tag
	names   []string
	matcher language.Matcher
}

// NewBundle creates an empty bundle.
func NewBundle() *Bundle {
	b := &Bundle{
		locales: make(map[string]map[string]map[string]string),
		catalog: catalog.NewBuilder(catalog.Fallback(language.MustParse(BaseLocale))),
	}
	b.rebuildMatcher()
	return b
}

// AddFS loads every catalog under locales/ in fsys.
func (b *Bundle) AddFS(fsys fs.FS) error {
	paths, err := fs.Glob(fsys, "locales/*/*.yaml")
	if err != nil {
		return fmt.Errorf("failed to glob locale catalogs: %w", err)
	}
	sort.Strings(paths)

	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("failed to read catalog %s: %w", p, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return fmt.Errorf("failed to parse catalog %s: %w", p, err)
		}
		if err := b.add(p, file); err != nil {
			return err
		}
	}

	b.rebuildMatcher()
	return nil
}

func (b *Bundle) add(p string, file catalogFile) error {
	localeFromPath := path.Base(path.Dir(p))
	namespaceFromPath := strings.TrimSuffix(path.Base(p), path.Ext(p))

	locale := strings.TrimSpace(file.Locale)
	if locale != localeFromPath {
		return fmt.Errorf("catalog %s: locale %q must match path locale %q", p, locale, localeFromPath)
	}
	namespace := strings.TrimSpace(file.Namespace)
	if namespace != namespaceFromPath {
		return fmt.Errorf("catalog %s: namespace %q must match filename namespace %q", p, namespace, namespaceFromPath)
	}
	if len(file.Messages) == 0 {
		return fmt.Errorf("catalog %s: messages are required", p)
	}

	tag, err := language.Parse(locale)
	if err != nil {
		return fmt.Errorf("catalog %s: invalid locale: %w", p, err)
	}

	namespaces, ok := b.locales[locale]
	if !ok {
		namespaces = make(map[string]map[string]string)
		b.locales[locale] = namespaces
	}
	if _, exists := namespaces[namespace]; exists {
		return fmt.Errorf("catalog %s: namespace %q already defined for locale %q", p, namespace, locale)
	}

	messages := make(map[string]string, len(file.Messages))
	for key, value := range file.Messages {
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("catalog %s: message key cannot be blank", p)
		}
		messages[key] = value
		if err := b.catalog.SetString(tag, namespace+"."+key, value); err != nil {
			return fmt.Errorf("catalog %s: %w", p, err)
		}
	}
	namespaces[namespace] = messages
	return nil
}

// rebuildMatcher orders the supported tags with the base locale first so it
// wins when nothing matches.
func (b *Bundle) rebuildMatcher() {
	names := []string{BaseLocale}
	for _, l := range b.Locales() {
		if l != BaseLocale {
			names = append(names, l)
		}
	}

	tags := make([]language.Tag, len(names))
	for i, n := range names {
		tags[i] = language.Make(n)
	}
	b.names = names
	b.tags = tags
	b.matcher = language.NewMatcher(tags)
}

// Locales returns the loaded locales, sorted.
func (b *Bundle) Locales() []string {
	out := make([]string, 0, len(b.locales))
	for l := range b.locales {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Match picks the best loaded locale for the given preferences. Each
// preference may be a tag ("de") or an Accept-Language header value.
func (b *Bundle) Match(prefs ...string) string {
	var tags []language.Tag
	for _, p := range prefs {
		parsed, _, err := language.ParseAcceptLanguage(p)
		if err != nil {
			continue
		}
		tags = append(tags, parsed...)
	}
	if len(tags) == 0 {
		return BaseLocale
	}

	_, idx, conf := b.matcher.Match(tags...)
	if conf == language.No {
		return BaseLocale
	}
	return b.names[idx]
}

// Messages returns the catalog of locale grouped by namespace. Namespaces
// missing from the locale fall back to the base locale.
func (b *Bundle) Messages(locale string) map[string]map[string]string {
	out := make(map[string]map[string]string)
	for ns, msgs := range b.locales[BaseLocale] {
		out[ns] = copyMap(msgs)
	}
	if locale != BaseLocale {
		for ns, msgs := range b.locales[locale] {
			merged := out[ns]
			if merged == nil {
				merged = make(map[string]string, len(msgs))
				out[ns] = merged
			}
			for k, v := range msgs {
				merged[k] = v
			}
		}
	}
	return out
}

// Printer returns a message printer for locale. Keys are "<namespace>.<key>".
func (b *Bundle) Printer(locale string) *message.Printer {
	return message.NewPrinter(language.Make(locale), message.Catalog(b.catalog))
}

func copyMap(source map[string]string) map[string]string {
	out := make(map[string]string, len(source))
	for k, v := range source {
		out[k] = v
	}
	return out
}
