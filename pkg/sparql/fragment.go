package sparql

import "strings"

// Expr is a FILTER expression.
type Expr string

var comparators = map[string]bool{"=": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true}

// Cmp compares two operands. An unknown operator degrades to equality.
func Cmp(left Term, op string, right Term) Expr {
	if !comparators[op] {
		op = "="
	}
	return Expr(string(left) + " " + op + " " + string(right))
}

// And joins expressions with &&. Empty expressions are skipped.
func And(exprs ...Expr) Expr {
	parts := make([]string, 0, len(exprs))
	for _, e := range exprs {
		if e != "" {
			parts = append(parts, string(e))
		}
	}
	return Expr(strings.Join(parts, " && "))
}

// Regex matches target against the literal text s.
// s is escaped for both the regex engine and the string literal.
func Regex(target Term, s string, caseInsensitive bool) Expr {
	expr := "regex(" + string(target) + ", " + string(String(EscapeRegex(s)))
	if caseInsensitive {
		expr += `, "i"`
	}
	return Expr(expr + ")")
}

type fragmentKind int

const (
	kindTriple fragmentKind = iota
	kindOptional
	kindFilter
)

// Fragment is one element of a WHERE block: a triple pattern, an OPTIONAL group or a FILTER.
type Fragment struct {
	kind     fragmentKind
	text     string
	children []Fragment
}

// Triple returns the pattern "s p o .".
func Triple(s, p, o Term) Fragment {
	return Fragment{kind: kindTriple, text: string(s) + " " + string(p) + " " + string(o) + " ."}
}

// Optional wraps patterns in OPTIONAL { }.
func Optional(children ...Fragment) Fragment {
	return Fragment{kind: kindOptional, children: children}
}

// Filter returns FILTER (expr). An empty expression yields FILTER (true).
func Filter(expr Expr) Fragment {
	if expr == "" {
		expr = "true"
	}
	return Fragment{kind: kindFilter, text: "FILTER (" + string(expr) + ")"}
}

// Bind returns BIND (expr AS ?v).
func Bind(expr Term, v Term) Fragment {
	return Fragment{kind: kindTriple, text: "BIND (" + string(expr) + " AS " + string(v) + ")"}
}

// IsFilter reports whether the fragment is a FILTER.
func (f Fragment) IsFilter() bool {
	return f.kind == kindFilter
}

// String renders the fragment on a single line.
func (f Fragment) String() string {
	var b strings.Builder
	f.write(&b, "")
	return strings.TrimSuffix(b.String(), "\n")
}

func (f Fragment) write(b *strings.Builder, indent string) {
	switch f.kind {
	case kindOptional:
		b.WriteString(indent)
		b.WriteString("OPTIONAL { ")
		for i, c := range f.children {
			if i > 0 {
				b.WriteString(" ")
			}
			b.WriteString(c.String())
		}
		b.WriteString(" }\n")
	default:
		b.WriteString(indent)
		b.WriteString(f.text)
		b.WriteString("\n")
	}
}

func writeGroup(b *strings.Builder, fragments []Fragment, indent string) {
	for _, f := range fragments {
		f.write(b, indent)
	}
}
