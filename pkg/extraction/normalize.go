package extraction

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// normalizeText composes accents, trims and collapses whitespace.
// Case is preserved for the patterns that rely on capitalized names.
func normalizeText(text string) string {
	normalized := norm.NFC.String(strings.TrimSpace(text))
	return strings.Join(strings.Fields(normalized), " ")
}

// lowerText lower-cases normalized text using French casing rules.
func lowerText(text string) string {
	return cases.Lower(language.French).String(text)
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

// lemma is the token normalization used when no recognizer provides lemmas:
// lower case and plural "s" stripped from words longer than three letters.
func lemma(word string) string {
	w := lowerText(word)
	if len([]rune(w)) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") {
		return strings.TrimSuffix(w, "s")
	}
	return w
}
