package sparql

import (
	"regexp"
	"strings"
)

var stringEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	`'`, `\'`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
	"\b", `\b`,
	"\f", `\f`,
)

// EscapeString escapes s for use inside a quoted SPARQL string literal.
func EscapeString(s string) string {
	return stringEscaper.Replace(s)
}

// EscapeRegex escapes regex metacharacters so s matches itself literally.
func EscapeRegex(s string) string {
	return regexp.QuoteMeta(s)
}
