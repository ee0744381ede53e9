package validation

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify строит slug из заголовка: убирает диакритику и заменяет прочие символы дефисами.
func Slugify(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(t, strings.ToLower(strings.TrimSpace(title)))
	if err != nil {
		s = strings.ToLower(strings.TrimSpace(title))
	}
	return strings.Trim(nonSlugChars.ReplaceAllString(s, "-"), "-")
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// IsValidSlug проверяет, что строка является корректным slug.
func IsValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}
