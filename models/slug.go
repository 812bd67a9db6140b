package models

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	nonWord    = regexp.MustCompile(`[^\w-]+`)
	hyphens    = regexp.MustCompile(`-{2,}`)
)

// Slugify lowercases name, turns whitespace into hyphens and strips every
// remaining non-word character. Accents are folded first so "Chêne" gives
// "chene" rather than "chne".
func Slugify(name string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, name)
	if err != nil {
		folded = name
	}
	slug := strings.ToLower(strings.TrimSpace(folded))
	slug = whitespace.ReplaceAllString(slug, "-")
	slug = nonWord.ReplaceAllString(slug, "")
	slug = hyphens.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
