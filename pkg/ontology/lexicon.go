package ontology

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/smartcom/smartcom-go/pkg/sparql"
)

//go:embed lexicon.yaml
var defaultLexicon []byte

// Entry maps one canonical key to its surface variants and, optionally, an ontology IRI.
type Entry struct {
	Key      string   `yaml:"key" json:"key"`
	Label    string   `yaml:"label,omitempty" json:"label,omitempty"`
	Local    string   `yaml:"local,omitempty" json:"-"`
	IRI      string   `yaml:"iri,omitempty" json:"iri,omitempty"`
	Variants []string `yaml:"variants" json:"variants"`
}

// DisplayName returns the label, or the key when no label is configured.
func (e Entry) DisplayName() string {
	if e.Label != "" {
		return e.Label
	}
	return e.Key
}

// Table is an ordered, read-only lexicon. Declaration order is the tie-break
// when variants of several entries occur in the same text.
type Table struct {
	entries []Entry
	byKey   map[string]int
}

func newTable(name string, entries []Entry) (Table, error) {
	t := Table{entries: make([]Entry, 0, len(entries)), byKey: make(map[string]int, len(entries))}
	for i, e := range entries {
		e.Key = strings.ToLower(strings.TrimSpace(e.Key))
		if e.Key == "" {
			return Table{}, fmt.Errorf("%s entry %d: key is required", name, i)
		}
		if _, dup := t.byKey[e.Key]; dup {
			return Table{}, fmt.Errorf("%s entry %q: duplicate key", name, e.Key)
		}
		if e.IRI == "" && e.Local != "" {
			e.IRI = IRI(e.Local)
		}
		if e.IRI != "" && !sparql.ValidIRI(e.IRI) {
			return Table{}, fmt.Errorf("%s entry %q: invalid IRI %q", name, e.Key, e.IRI)
		}
		variants := make([]string, 0, len(e.Variants)+1)
		for _, v := range e.Variants {
			v = strings.ToLower(strings.TrimSpace(v))
			if v != "" {
				variants = append(variants, v)
			}
		}
		if len(variants) == 0 {
			variants = append(variants, e.Key)
		}
		e.Variants = variants
		t.byKey[e.Key] = len(t.entries)
		t.entries = append(t.entries, e)
	}
	return t, nil
}

// Match returns the first entry having a variant that is a substring of text.
// text is expected to be lower-cased already.
func (t Table) Match(text string) (Entry, bool) {
	for _, e := range t.entries {
		for _, v := range e.Variants {
			if strings.Contains(text, v) {
				return e.clone(), true
			}
		}
	}
	return Entry{}, false
}

// Lookup finds an entry by canonical key or by exact variant.
func (t Table) Lookup(name string) (Entry, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if i, ok := t.byKey[name]; ok {
		return t.entries[i].clone(), true
	}
	for _, e := range t.entries {
		for _, v := range e.Variants {
			if v == name {
				return e.clone(), true
			}
		}
	}
	return Entry{}, false
}

// Entries returns a copy of the table in declaration order.
func (t Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.clone()
	}
	return out
}

// Len returns the number of entries.
func (t Table) Len() int {
	return len(t.entries)
}

func (e Entry) clone() Entry {
	e.Variants = append([]string(nil), e.Variants...)
	return e
}

// Lexicon groups the vocabulary tables the extractors match questions against.
// A Lexicon is immutable once loaded and safe for concurrent use.
type Lexicon struct {
	Categories Table
	Brands     Table
	Countries  Table
	Suppliers  Table
}

type lexiconFile struct {
	Categories []Entry `yaml:"categories"`
	Brands     []Entry `yaml:"brands"`
	Countries  []Entry `yaml:"countries"`
	Suppliers  []Entry `yaml:"suppliers"`
}

// Load parses a YAML lexicon.
func Load(r io.Reader) (*Lexicon, error) {
	var raw lexiconFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode lexicon: %w", err)
	}

	var (
		lex Lexicon
		err error
	)
	if lex.Categories, err = newTable("categories", raw.Categories); err != nil {
		return nil, err
	}
	if lex.Brands, err = newTable("brands", raw.Brands); err != nil {
		return nil, err
	}
	if lex.Countries, err = newTable("countries", raw.Countries); err != nil {
		return nil, err
	}
	if lex.Suppliers, err = newTable("suppliers", raw.Suppliers); err != nil {
		return nil, err
	}
	return &lex, nil
}

// LoadFile parses a YAML lexicon from disk.
func LoadFile(path string) (*Lexicon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open lexicon file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

var (
	defaultOnce sync.Once
	defaultLex  *Lexicon
)

// Default returns the built-in lexicon.
func Default() *Lexicon {
	defaultOnce.Do(func() {
		lex, err := Load(bytes.NewReader(defaultLexicon))
		if err != nil {
			panic(fmt.Sprintf("embedded lexicon is invalid: %v", err))
		}
		defaultLex = lex
	})
	return defaultLex
}
