package ontology

import (
	"fmt"
	"strings"
)

// Turtle renders the lexicon's category and brand individuals so a fresh
// dataset can be seeded with the IRIs the query builders resolve to.
func (l *Lexicon) Turtle() string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("@prefix ns: <%s> .\n", Namespace))
	builder.WriteString(fmt.Sprintf("@prefix rdf: <%s> .\n", RDFNamespace))
	builder.WriteString(fmt.Sprintf("@prefix rdfs: <%s> .\n", RDFSNamespace))
	builder.WriteString("@prefix owl: <http://www.w3.org/2002/07/owl#> .\n\n")

	builder.WriteString(fmt.Sprintf("<%s> a owl:Class ;\n    rdfs:label \"%s\" .\n\n", IRI(ClassSubCategory), turtleString(ClassSubCategory)))
	builder.WriteString(fmt.Sprintf("<%s> a owl:Class ;\n    rdfs:label \"%s\" .\n\n", IRI(ClassBrand), turtleString(ClassBrand)))

	builder.WriteString("# Sub-categories\n")
	writeIndividuals(&builder, l.Categories, ClassSubCategory)

	builder.WriteString("# Brands\n")
	writeIndividuals(&builder, l.Brands, ClassBrand)

	return builder.String()
}

func writeIndividuals(builder *strings.Builder, table Table, class string) {
	for _, e := range table.entries {
		if e.IRI == "" {
			continue
		}
		builder.WriteString(fmt.Sprintf("<%s> a <%s> ;\n", e.IRI, IRI(class)))
		builder.WriteString(fmt.Sprintf("    rdfs:label \"%s\" .\n\n", turtleString(e.DisplayName())))
	}
}

var turtleEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`)

func turtleString(s string) string {
	return turtleEscaper.Replace(s)
}
