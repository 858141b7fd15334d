// Package extraction turns natural-language questions into entity records.
package extraction

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/smartcom/smartcom-go/pkg/models"
	"github.com/smartcom/smartcom-go/pkg/ontology"
)

var (
	listTriggers   = []string{"tous", "liste", "affiche", "montre-moi tous", "list", "show all"}
	filterTriggers = []string{"filtre", "avec", "ayant", "with"}
	alertTriggers  = []string{"alerte", "rupture", "stock faible", "stock-faible", "alert", "out of stock", "low stock"}

	outOfStockTriggers = []string{"rupture", "en rupture", "en-rupture", "épuisé", "épuisée", "out of stock"}
	lowStockTriggers   = []string{"stock faible", "stock-faible", "faible", "critique", "bas", "basse", "low stock"}
	inStockTriggers    = []string{"disponible", "en stock", "en-stock", "disponibles", "in stock", "available"}
)

// City names are read from the original-case question: a capitalized word
// after a locative preposition.
var (
	clientCityPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:à|de|en)\s+([A-Z][a-zéèêàâôù]+(?:\s+[A-Z][a-zéèêàâôù]+)?)`),
		regexp.MustCompile(`ville\s+de\s+([A-Z][a-zéèêàâôù]+)`),
		regexp.MustCompile(`client\s+de\s+([A-Z][a-zéèêàâôù]+)`),
	}
	supplierCityPatterns = clientCityPatterns[:2]
)

// Extractor maps questions to entity records using the lexicon and, for
// person and organization names, an optional Recognizer.
type Extractor struct {
	lexicon    *ontology.Lexicon
	recognizer Recognizer
	logger     *slog.Logger
}

// NewExtractor creates a new extractor. recognizer may be nil.
func NewExtractor(lexicon *ontology.Lexicon, recognizer Recognizer, logger *slog.Logger) *Extractor {
	if lexicon == nil {
		lexicon = ontology.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{lexicon: lexicon, recognizer: recognizer, logger: logger}
}

// Lexicon returns the tables the extractor matches against.
func (e *Extractor) Lexicon() *ontology.Lexicon {
	return e.lexicon
}

// Extract builds the entity record of question for domain. The record is
// always complete; a non-nil error only signals that the recognizer was
// needed and could not run (ErrRecognizerUnavailable).
func (e *Extractor) Extract(ctx context.Context, domain models.Domain, question string) (*models.EntityRecord, error) {
	original := normalizeText(question)
	lower := lowerText(original)

	switch domain {
	case models.DomainStock:
		return e.extractStock(lower), nil
	case models.DomainClients:
		return e.extractClient(ctx, original, lower)
	case models.DomainSuppliers:
		return e.extractSupplier(ctx, original, lower)
	default:
		return e.extractProduct(lower), nil
	}
}

func (e *Extractor) extractProduct(lower string) *models.EntityRecord {
	record := &models.EntityRecord{Domain: models.DomainProducts, Intent: models.IntentSearch}

	switch {
	case containsAny(lower, listTriggers):
		record.Intent = models.IntentList
	case containsAny(lower, filterTriggers):
		record.Intent = models.IntentFilter
	}

	record.Category = matchNamed(e.lexicon.Categories, lower)
	record.Brand = matchNamed(e.lexicon.Brands, lower)
	record.PriceMin, record.PriceMax = priceRules.extract(lower)
	return record
}

func (e *Extractor) extractStock(lower string) *models.EntityRecord {
	record := &models.EntityRecord{Domain: models.DomainStock, Intent: models.IntentSearch}

	switch {
	case containsAny(lower, listTriggers):
		record.Intent = models.IntentList
	case containsAny(lower, alertTriggers):
		record.Intent = models.IntentAlert
	}

	switch {
	case containsAny(lower, outOfStockTriggers):
		record.StockStatus = models.StockOut
	case containsAny(lower, lowStockTriggers):
		record.StockStatus = models.StockLow
	case containsAny(lower, inStockTriggers):
		record.StockStatus = models.StockInStock
	}

	record.Category = matchNamed(e.lexicon.Categories, lower)
	record.Brand = matchNamed(e.lexicon.Brands, lower)
	record.StockMin, record.StockMax = stockRules.extract(lower)
	return record
}

func (e *Extractor) extractClient(ctx context.Context, original, lower string) (*models.EntityRecord, error) {
	record := &models.EntityRecord{Domain: models.DomainClients, Intent: models.IntentSearch}
	if containsAny(lower, listTriggers) {
		record.Intent = models.IntentList
	}

	record.Country = matchNamed(e.lexicon.Countries, lower)
	record.City = e.matchCity(clientCityPatterns, original, record.Country)

	var degraded error
	if original != "" {
		analysis, err := Analyze(ctx, e.recognizer, original)
		if err != nil {
			e.logger.Debug("recognizer unavailable, continuing with lexicon only", "domain", record.Domain, "error", err)
			degraded = err
		} else if person, ok := analysis.First(LabelPerson); ok {
			record.Person = lowerText(person.Text)
		}
	}
	return record, degraded
}

func (e *Extractor) extractSupplier(ctx context.Context, original, lower string) (*models.EntityRecord, error) {
	record := &models.EntityRecord{Domain: models.DomainSuppliers, Intent: models.IntentSearch}
	if containsAny(lower, listTriggers) {
		record.Intent = models.IntentList
	}

	record.Country = matchNamed(e.lexicon.Countries, lower)

	var degraded error
	if supplier, ok := e.lexicon.Suppliers.Match(lower); ok {
		record.Supplier = supplier.Key
	} else if original != "" {
		analysis, err := Analyze(ctx, e.recognizer, original)
		if err != nil {
			e.logger.Debug("recognizer unavailable, continuing with lexicon only", "domain", record.Domain, "error", err)
			degraded = err
		} else if org, ok := analysis.First(LabelOrganization); ok {
			record.Supplier = lowerText(org.Text)
		}
	}

	record.City = e.matchCity(supplierCityPatterns, original, record.Country)
	return record, degraded
}

// matchCity returns the first capitalized place name in original. A name equal
// to the detected country is dropped; the country filter already covers it.
func (e *Extractor) matchCity(patterns []*regexp.Regexp, original string, country *models.NamedEntity) string {
	for _, re := range patterns {
		m := re.FindStringSubmatch(original)
		if m == nil {
			continue
		}
		city := lowerText(m[1])
		if country != nil && city == country.Name {
			return ""
		}
		return city
	}
	return ""
}

func matchNamed(table ontology.Table, lower string) *models.NamedEntity {
	entry, ok := table.Match(lower)
	if !ok {
		return nil
	}
	return &models.NamedEntity{Name: entry.Key, IRI: entry.IRI}
}
