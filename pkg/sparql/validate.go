package sparql

import (
	"fmt"
	"strings"
	"unicode"
)

// scan walks a query outside string literals, IRI references, comments and
// variable or prefixed names, reporting brace and parenthesis depth errors and
// collecting bare keywords in upper case.
func scan(query string) ([]string, error) {
	runes := []rune(query)
	var (
		keywords []string
		braces   int
		parens   int
	)
	isName := func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '.'
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"' || r == '\'':
			j := i + 1
			for ; j < len(runes); j++ {
				if runes[j] == '\\' {
					j++
					continue
				}
				if runes[j] == r {
					break
				}
			}
			if j >= len(runes) {
				return nil, fmt.Errorf("unterminated string literal at offset %d", i)
			}
			i = j
		case r == '<' && i+1 < len(runes) && runes[i+1] > ' ' && runes[i+1] != '=':
			j := i + 1
			for ; j < len(runes) && runes[j] != '>' && runes[j] > ' '; j++ {
			}
			if j < len(runes) && runes[j] == '>' {
				i = j
			}
		case r == '#':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
		case r == '?' || r == '$':
			for i+1 < len(runes) && isName(runes[i+1]) {
				i++
			}
		case r == '{':
			braces++
		case r == '}':
			braces--
			if braces < 0 {
				return nil, fmt.Errorf("unbalanced '}' at offset %d", i)
			}
		case r == '(':
			parens++
		case r == ')':
			parens--
			if parens < 0 {
				return nil, fmt.Errorf("unbalanced ')' at offset %d", i)
			}
		case unicode.IsLetter(r):
			j := i
			for j < len(runes) && isName(runes[j]) {
				j++
			}
			word := string(runes[i:j])
			prefixed := j < len(runes) && runes[j] == ':'
			local := i > 0 && runes[i-1] == ':'
			if !prefixed && !local {
				keywords = append(keywords, strings.ToUpper(word))
			}
			if prefixed {
				// skip the local part of the prefixed name
				j++
				for j < len(runes) && isName(runes[j]) {
					j++
				}
			}
			i = j - 1
		}
	}

	if braces != 0 {
		return nil, fmt.Errorf("unbalanced braces: %d unclosed", braces)
	}
	if parens != 0 {
		return nil, fmt.Errorf("unbalanced parentheses: %d unclosed", parens)
	}
	return keywords, nil
}

// ValidateSelect checks that query is a single SELECT with one WHERE block
// and balanced delimiters.
func ValidateSelect(query string) error {
	keywords, err := scan(query)
	if err != nil {
		return err
	}
	counts := make(map[string]int)
	for _, k := range keywords {
		counts[k]++
	}
	if counts["SELECT"] != 1 {
		return fmt.Errorf("expected exactly one SELECT, found %d", counts["SELECT"])
	}
	if counts["WHERE"] != 1 {
		return fmt.Errorf("expected exactly one WHERE, found %d", counts["WHERE"])
	}
	return nil
}

var updateKeywords = map[string]bool{
	"INSERT": true, "DELETE": true, "DROP": true, "CLEAR": true, "LOAD": true,
	"CREATE": true, "ADD": true, "MOVE": true, "COPY": true, "WITH": true,
}

// ValidateReadOnly rejects requests containing update operations.
func ValidateReadOnly(query string) error {
	keywords, err := scan(query)
	if err != nil {
		return err
	}
	readForm := false
	for _, k := range keywords {
		if updateKeywords[k] {
			return fmt.Errorf("query contains forbidden operation: %s", k)
		}
		switch k {
		case "SELECT", "ASK", "CONSTRUCT", "DESCRIBE":
			readForm = true
		}
	}
	if !readForm {
		return fmt.Errorf("query must be a read-only query (SELECT, CONSTRUCT, ASK, or DESCRIBE)")
	}
	return nil
}
