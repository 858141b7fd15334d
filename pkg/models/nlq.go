package models

// Strategy names the translator that produced a query
type Strategy string

const (
	StrategyAI       Strategy = "ai"
	StrategyParser   Strategy = "parser"
	StrategyFallback Strategy = "default"
	StrategyDomain   Strategy = "domain"
)

// NLQueryRequest is the body of the natural-language endpoints
type NLQueryRequest struct {
	Question string `json:"question"`
}

// Translation is a question together with the query chosen for it
type Translation struct {
	Question string   `json:"question"`
	Query    string   `json:"sparql_query"`
	Strategy Strategy `json:"strategy"`
	Degraded bool     `json:"degraded,omitempty"`
}

// NLQueryResponse is a translation together with its result rows
type NLQueryResponse struct {
	Translation
	Entities *EntityRecord       `json:"entities,omitempty"`
	Results  []map[string]string `json:"results"`
	Count    int                 `json:"count"`
}
