package slug

import (
	"regexp"
	"strings"
)

var reSlug = regexp.MustCompile(`^[a-z0-9-]{2,40}$`)

// IsSlug returns true if s matches ^[a-z0-9-]{2,40}$ (e.g. "credit-card").
func IsSlug(s string) bool {
	return reSlug.MatchString(s)
}

// Slugify lowercases s and replaces every run of characters outside [a-z0-9]
// with a single hyphen, trimming to 40 characters.
func Slugify(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	hyphen := false
	for _, r := range strings.ToLower(s) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			hyphen = false
		default:
			if !hyphen && b.Len() > 0 {
				b.WriteByte('-')
				hyphen = true
			}
		}
		if b.Len() >= 40 {
			break
		}
	}
	return strings.Trim(b.String(), "-")
}
