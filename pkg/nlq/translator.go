package nlq

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/smartcom/smartcom-go/pkg/extraction"
	"github.com/smartcom/smartcom-go/pkg/ontology"
	"github.com/smartcom/smartcom-go/pkg/sparql"
)

var lowerFrench = cases.Lower(language.French)

var (
	productKeywords  = []string{"liste des produits", "produits", "liste des articles"}
	categoryKeywords = []string{"catégories", "types de produits", "sous-catégories"}
	brandKeywords    = []string{"marques", "brands"}
)

// relations maps a token lemma to the predicate it asks about.
var relations = map[string]string{
	"auteur":      ontology.PredAuthor,
	"prix":        ontology.PredPrice,
	"marque":      ontology.PredBrand,
	"description": ontology.PredDescription,
	"catégorie":   ontology.PredSubCategory,
}

// AITranslator is the entity and relation translator. It asks the recognizer
// for the entities and lemmas of a question and answers with a single query.
type AITranslator struct {
	recognizer extraction.Recognizer
}

// NewAITranslator creates a translator over recognizer, which may be nil.
func NewAITranslator(recognizer extraction.Recognizer) *AITranslator {
	return &AITranslator{recognizer: recognizer}
}

// Translate returns the query for question, or ErrTranslationUnavailable
// when the recognizer is missing or fails.
func (t *AITranslator) Translate(ctx context.Context, question string) (string, error) {
	if t == nil || t.recognizer == nil {
		return "", ErrTranslationUnavailable
	}
	analysis, err := extraction.Analyze(ctx, t.recognizer, question)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranslationUnavailable, err)
	}

	lower := lowerFrench.String(question)
	switch {
	case containsAny(lower, productKeywords):
		return namedListing().String(), nil
	case containsAny(lower, categoryKeywords):
		return categoryListing().String(), nil
	case containsAny(lower, brandKeywords):
		return brandListing().String(), nil
	}

	var entity string
	if len(analysis.Entities) > 0 {
		entity = strings.TrimSpace(analysis.Entities[0].Text)
	}
	predicate := ""
	for _, tok := range analysis.Tokens {
		lemma := tok.Lemma
		if lemma == "" {
			lemma = tok.Text
		}
		if p, ok := relations[lowerFrench.String(lemma)]; ok {
			predicate = p
			break
		}
	}

	if entity != "" && predicate != "" {
		return relationQuery(predicate, entity).String(), nil
	}
	return namedListing().String(), nil
}

// namedListing lists products with their display name, price and brand.
func namedListing() *sparql.Select {
	product := sparql.Var("produit")
	q := &sparql.Select{
		Prefixes: ontology.Prefix,
		Vars:     []sparql.Term{product, sparql.Var("nom"), sparql.Var("prix"), sparql.Var("marque")},
	}
	q.Add(
		sparql.Triple(product, sparql.A, sparql.QName("ns", ontology.ClassProduct)),
		sparql.Optional(sparql.Triple(product, sparql.QName("ns", ontology.PredName), sparql.Var("nom"))),
		sparql.Optional(sparql.Triple(product, sparql.QName("ns", ontology.PredPrice), sparql.Var("prix"))),
		sparql.Optional(sparql.Triple(product, sparql.QName("ns", ontology.PredBrand), sparql.Var("marque"))),
	)
	return q
}

func categoryListing() *sparql.Select {
	category := sparql.Var("categorie")
	q := &sparql.Select{Prefixes: ontology.Prefix, Vars: []sparql.Term{category}}
	q.Add(sparql.Triple(category, sparql.A, sparql.QName("ns", ontology.ClassSubCategory)))
	return q
}

func brandListing() *sparql.Select {
	brand := sparql.Var("marque")
	q := &sparql.Select{Prefixes: ontology.Prefix, Distinct: true, Vars: []sparql.Term{brand}}
	q.Add(sparql.Triple(sparql.Var("p"), sparql.QName("ns", ontology.PredBrand), brand))
	return q
}

// relationQuery asks for the value of predicate on subjects whose IRI
// mentions entity.
func relationQuery(predicate, entity string) *sparql.Select {
	subject, result := sparql.Var("x"), sparql.Var("result")
	q := &sparql.Select{Prefixes: ontology.Prefix, Vars: []sparql.Term{result}}
	q.Add(
		sparql.Triple(subject, sparql.QName("ns", predicate), result),
		sparql.Filter(sparql.Regex(sparql.Str(subject), entity, true)),
	)
	return q
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
