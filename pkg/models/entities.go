package models

// Domain identifies which extractor and query template handle a question
type Domain string

const (
	DomainProducts  Domain = "products"
	DomainStock     Domain = "stock"
	DomainClients   Domain = "clients"
	DomainSuppliers Domain = "suppliers"
)

// ParseDomain maps a route segment to a Domain.
func ParseDomain(s string) (Domain, bool) {
	switch Domain(s) {
	case DomainProducts, DomainStock, DomainClients, DomainSuppliers:
		return Domain(s), true
	}
	return "", false
}

// Intent is the coarse purpose detected in a question
type Intent string

const (
	IntentList   Intent = "list"
	IntentSearch Intent = "search"
	IntentFilter Intent = "filter"
	IntentAlert  Intent = "alert"
)

// StockStatus is the stock level requested in a question
type StockStatus string

const (
	StockOut     StockStatus = "rupture"
	StockLow     StockStatus = "low"
	StockInStock StockStatus = "in-stock"
)

// NamedEntity is a recognized name with its ontology IRI, if one is known.
// An empty IRI means the name is matched by regex instead of by triple pattern.
type NamedEntity struct {
	Name string `json:"name"`
	IRI  string `json:"iri,omitempty"`
}

// Bound is a numeric threshold taken from a question
type Bound struct {
	Value     float64 `json:"value"`
	Inclusive bool    `json:"inclusive"`
}

// EntityRecord is the structured form of a question. Only the fields of the
// record's domain are ever populated; absent entities are nil.
type EntityRecord struct {
	Domain Domain `json:"domain"`
	Intent Intent `json:"intent"`

	// products, stock
	Category *NamedEntity `json:"category,omitempty"`
	Brand    *NamedEntity `json:"brand,omitempty"`
	PriceMin *Bound       `json:"price_min,omitempty"`
	PriceMax *Bound       `json:"price_max,omitempty"`

	// stock
	StockStatus StockStatus `json:"stock_status,omitempty"`
	StockMin    *Bound      `json:"stock_min,omitempty"`
	StockMax    *Bound      `json:"stock_max,omitempty"`

	// clients, suppliers
	Country  *NamedEntity `json:"country,omitempty"`
	Person   string       `json:"person,omitempty"`
	Supplier string       `json:"supplier,omitempty"`
	City     string       `json:"city,omitempty"`
}
