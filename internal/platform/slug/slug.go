package slug

import (
	"strconv"
	"strings"
	"unicode"
)

// Make lowercases the name and collapses every run of non-alphanumeric
// characters into a single hyphen: "Poker Night" -> "poker-night".
func Make(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	pendingHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if (unicode.IsLetter(r) || unicode.IsDigit(r)) && r < 128 {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// WithSuffix disambiguates colliding slugs: n <= 1 returns the base
// unchanged, otherwise "base-n".
func WithSuffix(base string, n int) string {
	if n <= 1 {
		return base
	}
	return base + "-" + strconv.Itoa(n)
}
