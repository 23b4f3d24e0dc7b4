package metadata

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaces  = regexp.MustCompile(`\s+`)
	slugDashes  = regexp.MustCompile(`-+`)
)

// Slugify lowercases input, strips diacritics and reduces it to
// [a-z0-9-], e.g. "Unidades de Negócio" -> "unidades-de-negocio".
func Slugify(input string) string {
	if input == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(t, strings.ToLower(input))
	if err != nil {
		s = strings.ToLower(input)
	}
	s = slugInvalid.ReplaceAllString(s, "")
	s = slugSpaces.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Ordered longest first so the longest matching suffix is replaced.
var singularEndings = []struct{ plural, singular string }{
	{"ves", "fe"},
	{"ies", "y"},
	{"zes", "ze"},
	{"ses", "s"},
	{"es", "e"},
	{"i", "us"},
	{"s", ""},
}

// Singularize strips a plural English ending: "locations" -> "location",
// "categories" -> "category".
func Singularize(word string) string {
	for _, e := range singularEndings {
		if strings.HasSuffix(word, e.plural) {
			return strings.TrimSuffix(word, e.plural) + e.singular
		}
	}
	return word
}

// KebabCase turns a camelCase name into kebab-case: "businessUnit" ->
// "business-unit".
func KebabCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Pluralize appends an English plural ending: "location" -> "locations",
// "category" -> "categories".
func Pluralize(word string) string {
	switch {
	case word == "":
		return ""
	case strings.HasSuffix(word, "y") && len(word) > 1 && !strings.ContainsRune("aeiou", rune(word[len(word)-2])):
		return strings.TrimSuffix(word, "y") + "ies"
	case strings.HasSuffix(word, "s"), strings.HasSuffix(word, "x"), strings.HasSuffix(word, "z"),
		strings.HasSuffix(word, "ch"), strings.HasSuffix(word, "sh"):
		return word + "es"
	default:
		return word + "s"
	}
}
