package ontology

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLexicon(t *testing.T) {
	lex := Default()

	assert.Equal(t, 7, lex.Categories.Len())
	assert.Equal(t, 5, lex.Brands.Len())
	assert.Equal(t, 14, lex.Countries.Len())
	assert.Equal(t, 10, lex.Suppliers.Len())

	samsung, ok := lex.Brands.Lookup("samsung")
	require.True(t, ok)
	assert.Equal(t, Namespace+"Samsung", samsung.IRI)

	fridge, ok := lex.Categories.Lookup("réfrigérateurs")
	require.True(t, ok)
	assert.Equal(t, Namespace+"Réfrigérateurs", fridge.IRI)
}

func TestTableMatch(t *testing.T) {
	lex := Default()

	tests := []struct {
		name  string
		table Table
		text  string
		want  string
		found bool
	}{
		{"variant with space", lex.Categories, "un lave linge pas cher", "lave-linge", true},
		{"colloquial variant", lex.Categories, "je cherche un frigo", "réfrigérateurs", true},
		{"declaration order wins", lex.Categories, "lave-vaisselle ou lave-linge", "lave-vaisselle", true},
		{"country by city", lex.Countries, "clients à paris", "france", true},
		{"country by adjective", lex.Countries, "fournisseurs allemands", "allemagne", true},
		{"supplier long form", lex.Suppliers, "samsung electronics", "samsung", true},
		{"no match", lex.Brands, "produits sony", "", false},
		{"empty text", lex.Brands, "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, ok := tt.table.Match(tt.text)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, entry.Key)
		})
	}
}

func TestTableIsReadOnly(t *testing.T) {
	lex := Default()

	entry, ok := lex.Brands.Match("bosch")
	require.True(t, ok)
	entry.Variants[0] = "mutated"

	entries := lex.Brands.Entries()
	entries[0].Key = "mutated"

	again, ok := lex.Brands.Match("bosch")
	require.True(t, ok)
	assert.Equal(t, "bosch", again.Variants[0])
	assert.Equal(t, "samsung", lex.Brands.Entries()[0].Key)
}

func TestLoadRejectsInvalidLexicons(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing key", "brands:\n  - label: X\n"},
		{"duplicate key", "brands:\n  - key: a\n  - key: a\n"},
		{"unsafe iri", "brands:\n  - key: a\n    iri: \"http://x/a b\"\n"},
		{"unknown field", "colors:\n  - key: red\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadDefaultsVariantsToKey(t *testing.T) {
	lex, err := Load(strings.NewReader("brands:\n  - key: Sony\n    local: Sony\n"))
	require.NoError(t, err)

	entry, ok := lex.Brands.Match("une télé sony")
	require.True(t, ok)
	assert.Equal(t, "sony", entry.Key)
	assert.Equal(t, Namespace+"Sony", entry.IRI)
}

func TestTurtle(t *testing.T) {
	ttl := Default().Turtle()

	assert.Contains(t, ttl, "@prefix ns: <"+Namespace+">")
	assert.Contains(t, ttl, "<"+Namespace+"Lave-linge> a <"+Namespace+"SousCatégorie>")
	assert.Contains(t, ttl, "<"+Namespace+"Whirlpool> a <"+Namespace+"Marque>")
	assert.NotContains(t, ttl, "Tunisie")
}

func TestResourceIRIs(t *testing.T) {
	assert.Equal(t, Namespace+"Panier_Client7", CartIRI(7))
	assert.Equal(t, Namespace+"Client7", ClientIRI(7))
	assert.Equal(t, Namespace+"Commande_ab12cd34", OrderIRI("ab12cd34"))
	assert.Equal(t, "Commande_ab12cd34", LocalName(OrderIRI("ab12cd34")))
	assert.Equal(t, "ns:aPrix", QName(PredPrice))
}
