package food

import (
	"regexp"
	"strings"
)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// Normalize trims, lowercases, and collapses internal whitespace.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return whitespaceRegex.ReplaceAllString(s, " ")
}

// NormalizeUnit lowercases and trims a unit, defaulting to "g" when empty.
func NormalizeUnit(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	if u == "" {
		return UnitGram
	}
	return u
}

// cookingWords are preparation adjectives that narrow a search too much.
var cookingWords = map[string]bool{
	"grilled":  true,
	"baked":    true,
	"roasted":  true,
	"boneless": true,
	"skinless": true,
	"cooked":   true,
	"raw":      true,
	"chopped":  true,
}

// SimplifyQuery drops common cooking adjectives from a free-text query.
// "Grilled boneless chicken breast" becomes "chicken breast". The result is
// whitespace-joined and may equal the input when nothing was removed.
func SimplifyQuery(query string) string {
	words := strings.Fields(query)
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if cookingWords[strings.ToLower(w)] {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}
