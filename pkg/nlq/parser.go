package nlq

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/smartcom/smartcom-go/pkg/ontology"
	"github.com/smartcom/smartcom-go/pkg/querybuilder"
	"github.com/smartcom/smartcom-go/pkg/sparql"
)

const nameClass = `([a-zA-Z0-9\-\x{00C0}-\x{024F}]+)`

var (
	categoryPattern = regexp.MustCompile(`(par categorie|par catégorie|by category)\s+` + nameClass)
	brandPattern    = regexp.MustCompile(`(par marque|by brand)\s+` + nameClass)
	pricePattern    = regexp.MustCompile(`(avec prix inférieur à|with price less than)\s+(\d+\.?\d*)`)
)

var listingWords = []string{"liste", "produit", "products"}

// Parser is the deterministic fallback translator. It understands product
// questions of the form "par catégorie X", "par marque Y" and
// "avec prix inférieur à N", in French or English.
type Parser struct {
	lexicon *ontology.Lexicon
}

// NewParser creates a parser resolving names against lexicon.
func NewParser(lexicon *ontology.Lexicon) *Parser {
	if lexicon == nil {
		lexicon = ontology.Default()
	}
	return &Parser{lexicon: lexicon}
}

// Parse returns the query for question. ok is false when nothing in the
// question was understood.
func (p *Parser) Parse(question string) (query string, ok bool) {
	q := strings.TrimSpace(lowerFrench.String(question))
	var patterns []sparql.Fragment

	if m := categoryPattern.FindStringSubmatch(q); m != nil {
		category := sparql.Var("categorie")
		patterns = append(patterns, sparql.Triple(sparql.Var("produit"), sparql.QName("ns", ontology.PredSubCategory), category))
		patterns = append(patterns, nameFilter(category, m[2], p.lexicon.Categories))
	}
	if m := brandPattern.FindStringSubmatch(q); m != nil {
		brand := sparql.Var("marqueUri")
		patterns = append(patterns, sparql.Triple(sparql.Var("produit"), sparql.QName("ns", ontology.PredBrand), brand))
		patterns = append(patterns, nameFilter(brand, m[2], p.lexicon.Brands))
	}
	if m := pricePattern.FindStringSubmatch(q); m != nil {
		if limit, err := strconv.ParseFloat(m[2], 64); err == nil {
			price := sparql.Var("prix")
			patterns = append(patterns,
				sparql.Triple(sparql.Var("produit"), sparql.QName("ns", ontology.PredPrice), price),
				sparql.Filter(sparql.And(
					sparql.Cmp(price, "<", sparql.Number(limit)),
					sparql.Cmp(sparql.Datatype(price), "=", sparql.QName("xsd", "decimal")),
				)),
			)
		}
	}

	if len(patterns) == 0 {
		if containsAny(q, listingWords) {
			return querybuilder.ProductListing().String(), true
		}
		return "", false
	}
	return querybuilder.FilteredListing(patterns...).String(), true
}

// nameFilter pins v to the IRI of a known name, or matches it by regex.
func nameFilter(v sparql.Term, name string, table ontology.Table) sparql.Fragment {
	if entry, ok := table.Lookup(name); ok && entry.IRI != "" {
		return sparql.Filter(sparql.Cmp(v, "=", sparql.IRI(entry.IRI)))
	}
	return sparql.Filter(sparql.Regex(sparql.Str(v), name, true))
}
