package sparql

import (
	"strconv"
	"strings"
)

// OrderKey is one ORDER BY key.
type OrderKey struct {
	Term Term
	Desc bool
}

// Select is a SELECT query.
type Select struct {
	Prefixes string
	Distinct bool
	Vars     []Term
	Where    []Fragment
	GroupBy  []Term
	OrderBy  []OrderKey
	Limit    int
}

// Add appends fragments to the WHERE block and returns the query for chaining.
func (q *Select) Add(fragments ...Fragment) *Select {
	q.Where = append(q.Where, fragments...)
	return q
}

// Filters returns the FILTER fragments in declaration order.
func (q *Select) Filters() []Fragment {
	var out []Fragment
	for _, f := range q.Where {
		if f.IsFilter() {
			out = append(out, f)
		}
	}
	return out
}

// String renders the query.
func (q *Select) String() string {
	var b strings.Builder
	b.WriteString(q.Prefixes)
	b.WriteString("SELECT ")
	if q.Distinct {
		b.WriteString("DISTINCT ")
	}
	if len(q.Vars) == 0 {
		b.WriteString("*")
	} else {
		for i, v := range q.Vars {
			if i > 0 {
				b.WriteString(" ")
			}
			b.WriteString(string(v))
		}
	}
	b.WriteString("\nWHERE {\n")
	writeGroup(&b, q.Where, "  ")
	b.WriteString("}")
	if len(q.GroupBy) > 0 {
		b.WriteString("\nGROUP BY")
		for _, g := range q.GroupBy {
			b.WriteString(" ")
			b.WriteString(string(g))
		}
	}
	if len(q.OrderBy) > 0 {
		b.WriteString("\nORDER BY")
		for _, k := range q.OrderBy {
			if k.Desc {
				b.WriteString(" DESC(" + string(k.Term) + ")")
			} else {
				b.WriteString(" " + string(k.Term))
			}
		}
	}
	if q.Limit > 0 {
		b.WriteString("\nLIMIT " + strconv.Itoa(q.Limit))
	}
	b.WriteString("\n")
	return b.String()
}

// Ask is an ASK query.
type Ask struct {
	Prefixes string
	Where    []Fragment
}

// String renders the query.
func (q *Ask) String() string {
	var b strings.Builder
	b.WriteString(q.Prefixes)
	b.WriteString("ASK {\n")
	writeGroup(&b, q.Where, "  ")
	b.WriteString("}\n")
	return b.String()
}

// Operation is one operation of an update request.
type Operation interface {
	writeOp(b *strings.Builder)
}

// InsertData inserts ground triples.
type InsertData struct {
	Triples []Fragment
}

func (op InsertData) writeOp(b *strings.Builder) {
	b.WriteString("INSERT DATA {\n")
	writeGroup(b, op.Triples, "  ")
	b.WriteString("}")
}

// Modify is DELETE { } INSERT { } WHERE { }. Either template may be empty.
type Modify struct {
	Delete []Fragment
	Insert []Fragment
	Where  []Fragment
}

func (op Modify) writeOp(b *strings.Builder) {
	if len(op.Delete) > 0 {
		b.WriteString("DELETE {\n")
		writeGroup(b, op.Delete, "  ")
		b.WriteString("}\n")
	}
	if len(op.Insert) > 0 {
		b.WriteString("INSERT {\n")
		writeGroup(b, op.Insert, "  ")
		b.WriteString("}\n")
	}
	b.WriteString("WHERE {\n")
	writeGroup(b, op.Where, "  ")
	b.WriteString("}")
}

// DeleteWhere deletes every match of a pattern.
type DeleteWhere struct {
	Where []Fragment
}

func (op DeleteWhere) writeOp(b *strings.Builder) {
	b.WriteString("DELETE WHERE {\n")
	writeGroup(b, op.Where, "  ")
	b.WriteString("}")
}

// Update renders an update request. Multiple operations are separated by ";"
// and are applied by the store as one request.
func Update(prefixes string, ops ...Operation) string {
	var b strings.Builder
	b.WriteString(prefixes)
	for i, op := range ops {
		if i > 0 {
			b.WriteString(" ;\n")
		}
		op.writeOp(&b)
	}
	b.WriteString("\n")
	return b.String()
}
