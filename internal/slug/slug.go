// Package slug derives URL-safe identifiers from post titles.
package slug

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fallback is used when a title has no characters that survive slugging
const Fallback = "post"

// maxAttempts bounds the counter suffix search before giving up
const maxAttempts = 100

var (
	separatorRegex  = regexp.MustCompile(`[^a-z0-9]+`)
	multipleHyphens = regexp.MustCompile(`-{2,}`)
)

// Slugify converts a title to a lowercase slug containing only [a-z0-9-]
// with no leading, trailing or repeated hyphens.
func Slugify(s string) string {
	// Decompose accents so "é" becomes "e"
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)

	result = strings.ToLower(result)
	result = separatorRegex.ReplaceAllString(result, "-")
	result = multipleHyphens.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")

	if result == "" {
		return Fallback
	}
	return result
}

// IsValid reports whether s is in canonical slug form
func IsValid(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-') {
			return false
		}
	}
	if s[0] == '-' || s[len(s)-1] == '-' {
		return false
	}
	return !strings.Contains(s, "--")
}

// ExistsFunc reports whether a slug is already taken by another record
type ExistsFunc func(ctx context.Context, slug string) (bool, error)

// Unique returns the slug of title, suffixed with -2, -3, ... when the bare
// form is already taken according to exists.
func Unique(ctx context.Context, title string, exists ExistsFunc) (string, error) {
	base := Slugify(title)
	candidate := base
	for n := 2; n <= maxAttempts+1; n++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
	return "", fmt.Errorf("no free slug for %q after %d attempts", base, maxAttempts)
}
