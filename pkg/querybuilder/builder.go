// Package querybuilder turns entity records into SPARQL SELECT queries over
// the SmartCom ontology. Build is total: every record, including an empty
// one, yields a runnable query.
package querybuilder

import (
	"github.com/smartcom/smartcom-go/pkg/models"
	"github.com/smartcom/smartcom-go/pkg/ontology"
	"github.com/smartcom/smartcom-go/pkg/sparql"
)

// lowStockThreshold separates low stock from normal stock
const lowStockThreshold = 10

var (
	vProduct     = sparql.Var("produit")
	vDescription = sparql.Var("description")
	vPrice       = sparql.Var("prix")
	vCategory    = sparql.Var("categorie")
	vBrand       = sparql.Var("marque")
	vImage       = sparql.Var("image")
	vStock       = sparql.Var("stock")
	vClient      = sparql.Var("client")
	vSupplier    = sparql.Var("fournisseur")
	vAddress     = sparql.Var("adresse")
	vPhone       = sparql.Var("telephone")
	vEmail       = sparql.Var("email")
	vCountry     = sparql.Var("pays")
)

func ns(local string) sparql.Term {
	return sparql.QName("ns", local)
}

// Build returns the query for record. A nil record yields the product listing.
func Build(record *models.EntityRecord) string {
	return Query(record).String()
}

// Query returns the query for record as a structured value.
func Query(record *models.EntityRecord) *sparql.Select {
	if record == nil {
		return ProductListing()
	}
	switch record.Domain {
	case models.DomainStock:
		return stockQuery(record)
	case models.DomainClients:
		return partyQuery(vClient, ontology.ClassClient, record.Country, record.Person, record.City)
	case models.DomainSuppliers:
		return partyQuery(vSupplier, ontology.ClassSupplier, record.Country, record.Supplier, record.City)
	default:
		return productQuery(record)
	}
}

// ProductListing is the unfiltered product query.
func ProductListing() *sparql.Select {
	return productQuery(&models.EntityRecord{Domain: models.DomainProducts, Intent: models.IntentList})
}

// FilteredListing is the product listing restricted by extra patterns, which
// are placed right after the type pattern.
func FilteredListing(patterns ...sparql.Fragment) *sparql.Select {
	q := &sparql.Select{
		Prefixes: ontology.Prefix,
		Vars:     []sparql.Term{vProduct, vDescription, vPrice, vCategory, vBrand, vImage},
	}
	q.Add(sparql.Triple(vProduct, sparql.A, ns(ontology.ClassProduct)))
	q.Add(patterns...)
	addProductOptionals(q)
	return q
}

func productQuery(record *models.EntityRecord) *sparql.Select {
	q := &sparql.Select{
		Prefixes: ontology.Prefix,
		Vars:     []sparql.Term{vProduct, vDescription, vPrice, vCategory, vBrand, vImage},
	}
	q.Add(sparql.Triple(vProduct, sparql.A, ns(ontology.ClassProduct)))
	addCatalogPatterns(q, record)
	addProductOptionals(q)
	addCatalogFilters(q, record)
	if f, ok := priceFilter(record.PriceMin, record.PriceMax); ok {
		q.Add(f)
	}
	return q
}

func stockQuery(record *models.EntityRecord) *sparql.Select {
	q := &sparql.Select{
		Prefixes: ontology.Prefix,
		Vars:     []sparql.Term{vProduct, vDescription, vPrice, vCategory, vBrand, vImage, vStock},
	}
	q.Add(sparql.Triple(vProduct, sparql.A, ns(ontology.ClassProduct)))
	addCatalogPatterns(q, record)
	addProductOptionals(q)
	q.Add(sparql.Optional(sparql.Triple(vProduct, ns(ontology.PredStock), vStock)))
	addCatalogFilters(q, record)

	switch record.StockStatus {
	case models.StockOut:
		q.Add(sparql.Filter(sparql.Cmp(vStock, "=", sparql.Integer(0))))
	case models.StockLow:
		q.Add(sparql.Filter(sparql.And(
			sparql.Cmp(vStock, "<", sparql.Integer(lowStockThreshold)),
			sparql.Cmp(vStock, ">", sparql.Integer(0)),
		)))
	case models.StockInStock:
		q.Add(sparql.Filter(sparql.Cmp(vStock, ">", sparql.Integer(0))))
	}

	if expr := boundExpr(vStock, record.StockMin, record.StockMax); expr != "" {
		q.Add(sparql.Filter(expr))
	}
	return q
}

// addCatalogPatterns pins resolved category and brand IRIs as triple patterns.
func addCatalogPatterns(q *sparql.Select, record *models.EntityRecord) {
	if record.Category != nil && record.Category.IRI != "" {
		q.Add(sparql.Triple(vProduct, ns(ontology.PredSubCategory), sparql.IRI(record.Category.IRI)))
	}
	if record.Brand != nil && record.Brand.IRI != "" {
		q.Add(sparql.Triple(vProduct, ns(ontology.PredBrand), sparql.IRI(record.Brand.IRI)))
	}
}

// addCatalogFilters matches unresolved category and brand names by regex.
func addCatalogFilters(q *sparql.Select, record *models.EntityRecord) {
	if record.Category != nil && record.Category.IRI == "" && record.Category.Name != "" {
		q.Add(sparql.Filter(sparql.Regex(sparql.Str(vCategory), record.Category.Name, true)))
	}
	if record.Brand != nil && record.Brand.IRI == "" && record.Brand.Name != "" {
		q.Add(sparql.Filter(sparql.Regex(sparql.Str(vBrand), record.Brand.Name, true)))
	}
}

func addProductOptionals(q *sparql.Select) {
	q.Add(
		sparql.Optional(sparql.Triple(vProduct, ns(ontology.PredDescription), vDescription)),
		sparql.Optional(sparql.Triple(vProduct, ns(ontology.PredPrice), vPrice)),
		sparql.Optional(sparql.Triple(vProduct, ns(ontology.PredSubCategory), vCategory)),
		sparql.Optional(sparql.Triple(vProduct, ns(ontology.PredBrand), vBrand)),
		sparql.Optional(sparql.Triple(vProduct, ns(ontology.PredImage), vImage)),
	)
}

// priceFilter combines price bounds and pins prices to xsd:decimal.
func priceFilter(lower, upper *models.Bound) (sparql.Fragment, bool) {
	expr := boundExpr(vPrice, lower, upper)
	if expr == "" {
		return sparql.Fragment{}, false
	}
	return sparql.Filter(sparql.And(expr, sparql.Cmp(sparql.Datatype(vPrice), "=", sparql.QName("xsd", "decimal")))), true
}

func boundExpr(v sparql.Term, lower, upper *models.Bound) sparql.Expr {
	var exprs []sparql.Expr
	if lower != nil {
		op := ">"
		if lower.Inclusive {
			op = ">="
		}
		exprs = append(exprs, sparql.Cmp(v, op, sparql.Number(lower.Value)))
	}
	if upper != nil {
		op := "<"
		if upper.Inclusive {
			op = "<="
		}
		exprs = append(exprs, sparql.Cmp(v, op, sparql.Number(upper.Value)))
	}
	return sparql.And(exprs...)
}

// partyQuery builds the client and supplier searches, which share a shape.
func partyQuery(subject sparql.Term, class string, country *models.NamedEntity, name, city string) *sparql.Select {
	q := &sparql.Select{
		Prefixes: ontology.Prefix,
		Vars:     []sparql.Term{subject, vAddress, vPhone, vEmail, vCountry},
	}
	q.Add(sparql.Triple(subject, sparql.A, ns(class)))
	if country != nil && country.IRI != "" {
		q.Add(sparql.Triple(subject, ns(ontology.PredCountry), sparql.IRI(country.IRI)))
	}
	q.Add(
		sparql.Optional(sparql.Triple(subject, ns(ontology.PredAddress), vAddress)),
		sparql.Optional(sparql.Triple(subject, ns(ontology.PredPhone), vPhone)),
		sparql.Optional(sparql.Triple(subject, ns(ontology.PredEmail), vEmail)),
		sparql.Optional(sparql.Triple(subject, ns(ontology.PredCountry), vCountry)),
	)
	if country != nil && country.IRI == "" && country.Name != "" {
		q.Add(sparql.Filter(sparql.Regex(vCountry, country.Name, true)))
	}
	if name != "" {
		q.Add(sparql.Filter(sparql.Regex(sparql.Str(subject), name, true)))
	}
	if city != "" {
		q.Add(sparql.Filter(sparql.Regex(vAddress, city, true)))
	}
	return q
}
