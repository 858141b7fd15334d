// Package sparql builds SPARQL 1.1 queries and updates from typed fragments.
// Every helper either escapes or validates its input, so any query assembled
// from this package is syntactically well formed.
package sparql

import (
	"fmt"
	"strconv"
	"strings"
)

// Term is a rendered RDF term or expression operand.
type Term string

// Var returns the variable ?name. Characters not allowed in variable names are dropped.
func Var(name string) Term {
	var b strings.Builder
	for _, r := range name {
		if r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= 0xC0 && r != 0xD7 && r != 0xF7 {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		b.WriteString("v")
	}
	return Term("?" + b.String())
}

// IRI returns <iri>. Characters forbidden in IRI references are percent-encoded.
func IRI(iri string) Term {
	if ValidIRI(iri) {
		return Term("<" + iri + ">")
	}
	var b strings.Builder
	for _, r := range iri {
		if forbiddenIRIRune(r) {
			for _, c := range []byte(string(r)) {
				fmt.Fprintf(&b, "%%%02X", c)
			}
			continue
		}
		b.WriteRune(r)
	}
	return Term("<" + b.String() + ">")
}

// QName returns a prefixed name such as ns:aPrix. The caller owns the prefix declaration.
func QName(prefix, local string) Term {
	return Term(prefix + ":" + local)
}

// A is the rdf:type shorthand.
const A Term = "a"

// String returns a plain string literal.
func String(s string) Term {
	return Term(`"` + EscapeString(s) + `"`)
}

// Typed returns a typed literal "lexical"^^datatype, datatype given as a prefixed name.
func Typed(lexical string, datatype Term) Term {
	return Term(`"` + EscapeString(lexical) + `"^^` + string(datatype))
}

// Integer returns a bare integer literal.
func Integer(n int) Term {
	return Term(strconv.Itoa(n))
}

// Number returns a bare numeric literal without exponent notation.
func Number(f float64) Term {
	return Term(strconv.FormatFloat(f, 'f', -1, 64))
}

// Decimal returns an xsd:decimal literal rounded to cents.
func Decimal(f float64) Term {
	return Term(`"` + strconv.FormatFloat(f, 'f', 2, 64) + `"^^xsd:decimal`)
}

// Str wraps a term in str().
func Str(t Term) Term {
	return Term("str(" + string(t) + ")")
}

// Datatype wraps a term in datatype().
func Datatype(t Term) Term {
	return Term("datatype(" + string(t) + ")")
}

// Mul multiplies two operands.
func Mul(a, b Term) Term {
	return Term(string(a) + " * " + string(b))
}

// Add adds two operands.
func Add(a, b Term) Term {
	return Term(string(a) + " + " + string(b))
}

// Coalesce returns the first operand that evaluates without error.
func Coalesce(terms ...Term) Term {
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = string(t)
	}
	return Term("COALESCE(" + strings.Join(parts, ", ") + ")")
}

var aggregates = map[string]bool{"SUM": true, "COUNT": true, "SAMPLE": true, "MIN": true, "MAX": true, "AVG": true}

// Aggregate returns a projection (FN(arg) AS ?alias). Unknown functions fall back to SAMPLE.
func Aggregate(fn string, arg Term, alias string) Term {
	fn = strings.ToUpper(fn)
	if !aggregates[fn] {
		fn = "SAMPLE"
	}
	return Term("(" + fn + "(" + string(arg) + ") AS " + string(Var(alias)) + ")")
}

// ValidIRI reports whether iri can be written between angle brackets unchanged.
func ValidIRI(iri string) bool {
	if iri == "" {
		return false
	}
	for _, r := range iri {
		if forbiddenIRIRune(r) {
			return false
		}
	}
	return true
}

func forbiddenIRIRune(r rune) bool {
	if r <= 0x20 {
		return true
	}
	switch r {
	case '<', '>', '"', '{', '}', '|', '^', '`', '\\':
		return true
	}
	return false
}
