package triplestore

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	// ErrUnavailable reports that the triplestore could not be reached or
	// answered with a server-side failure.
	ErrUnavailable = errors.New("triplestore unavailable")
	// ErrMalformedQuery reports that the triplestore rejected the request text.
	ErrMalformedQuery = errors.New("malformed query")
)

// QueryError is a failed triplestore request. It keeps the request text so
// callers can report what was sent.
type QueryError struct {
	Operation string
	Query     string
	Status    int
	Body      string
	Err       error
}

func (e *QueryError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s failed with status %d: %v", e.Operation, e.Status, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Operation, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// QueryResult is a SELECT or ASK result in SPARQL JSON results form.
type QueryResult struct {
	Variables []string      `json:"variables"`
	Bindings  []BindingRow  `json:"bindings"`
	Boolean   *bool         `json:"boolean,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// BindingRow represents a single row of variable bindings
type BindingRow map[string]BindingValue

// BindingValue represents a bound value in a SPARQL result
type BindingValue struct {
	Type     string `json:"type"` // uri, literal, bnode
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"lang,omitempty"`
}

// String returns the lexical value of name, or "" when unbound.
func (r BindingRow) String(name string) string {
	return r[name].Value
}

// Int parses the value of name as an integer. Decimal lexical forms such as
// "3.0" are truncated. Unbound or unparsable values yield 0.
func (r BindingRow) Int(name string) int {
	v, ok := r[name]
	if !ok {
		return 0
	}
	if n, err := strconv.Atoi(v.Value); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(v.Value, 64)
	if err != nil {
		return 0
	}
	return int(f)
}

// Float parses the value of name as a float. ok is false when the variable is
// unbound or not numeric.
func (r BindingRow) Float(name string) (float64, bool) {
	v, bound := r[name]
	if !bound {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.Value, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Rows flattens the bindings to variable/value maps, the shape returned to
// API clients.
func (q *QueryResult) Rows() []map[string]string {
	rows := make([]map[string]string, 0, len(q.Bindings))
	for _, b := range q.Bindings {
		row := make(map[string]string, len(b))
		for name, v := range b {
			row[name] = v.Value
		}
		rows = append(rows, row)
	}
	return rows
}
