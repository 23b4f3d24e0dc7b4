package metadata

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Translator looks up localized labels.
type Translator interface {
	// Match negotiates a requested locale against the supported ones and
	// returns the supported locale to use.
	Match(locale string) string
	Translate(locale, key string) (string, bool)
}

// Catalog is a Translator backed by flattened message maps, one per
// locale. The first locale is the fallback.
type Catalog struct {
	locales  []string
	messages map[string]map[string]string
	matcher  language.Matcher
}

// NewCatalog builds a catalog from nested message trees keyed by locale.
// defaultLocale must be one of the keys.
func NewCatalog(defaultLocale string, trees map[string]map[string]any) (*Catalog, error) {
	if _, ok := trees[defaultLocale]; !ok {
		return nil, fmt.Errorf("default locale %q has no messages", defaultLocale)
	}

	locales := []string{defaultLocale}
	others := make([]string, 0, len(trees))
	for loc := range trees {
		if loc != defaultLocale {
			others = append(others, loc)
		}
	}
	sort.Strings(others)
	locales = append(locales, others...)

	c := &Catalog{
		locales:  locales,
		messages: make(map[string]map[string]string, len(trees)),
	}
	tags := make([]language.Tag, 0, len(locales))
	for _, loc := range locales {
		tag, err := language.Parse(loc)
		if err != nil {
			return nil, fmt.Errorf("locale %q: %w", loc, err)
		}
		tags = append(tags, tag)

		flat := make(map[string]string)
		flatten("", trees[loc], flat)
		c.messages[loc] = flat
	}
	c.matcher = language.NewMatcher(tags)
	return c, nil
}

// LoadCatalog reads <locale>.yml / <locale>.yaml files from dir.
func LoadCatalog(dir, defaultLocale string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read locales dir: %w", err)
	}

	trees := make(map[string]map[string]any)
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yml" && ext != ".yaml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		var tree map[string]any
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("parse %s: %w", e.Name(), err)
		}
		trees[strings.TrimSuffix(e.Name(), ext)] = tree
	}
	if len(trees) == 0 {
		trees[defaultLocale] = map[string]any{}
	}
	return NewCatalog(defaultLocale, trees)
}

func flatten(prefix string, tree map[string]any, out map[string]string) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case string:
			out[key] = val
		case nil:
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

// Match returns the best supported locale for a BCP 47 tag. Unparseable or
// unsupported tags yield the default locale.
func (c *Catalog) Match(locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		return c.locales[0]
	}
	_, idx, conf := c.matcher.Match(tag)
	if conf == language.No {
		return c.locales[0]
	}
	return c.locales[idx]
}

// MatchAcceptLanguage negotiates an Accept-Language header value.
func (c *Catalog) MatchAcceptLanguage(header string) string {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return c.locales[0]
	}
	_, idx, conf := c.matcher.Match(tags...)
	if conf == language.No {
		return c.locales[0]
	}
	return c.locales[idx]
}

func (c *Catalog) Translate(locale, key string) (string, bool) {
	msgs, ok := c.messages[locale]
	if !ok {
		return "", false
	}
	s, ok := msgs[key]
	return s, ok
}

// Locales returns the supported locales, default first.
func (c *Catalog) Locales() []string {
	out := make([]string, len(c.locales))
	copy(out, c.locales)
	return out
}
