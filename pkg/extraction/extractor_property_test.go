package extraction

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/smartcom/smartcom-go/pkg/models"
)

// TestExtractIsTotal checks that every question yields a record of the requested domain.
func TestExtractIsTotal(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	extractor := NewExtractor(nil, &stubRecognizer{analysis: &Analysis{}}, nil)
	vocabulary := []string{"moins de", "plus de", "entre", "et", "euros", "max", "lave-linge", "samsung"}
	domains := []models.Domain{models.DomainProducts, models.DomainStock, models.DomainClients, models.DomainSuppliers}

	properties.Property("extract never fails and keeps the domain", prop.ForAll(
		func(question string, pick int) bool {
			domain := domains[pick]
			record, err := extractor.Extract(context.Background(), domain, question)
			return err == nil && record != nil && record.Domain == domain && record.Intent != ""
		},
		gen.AnyString(),
		gen.IntRange(0, len(domains)-1),
	))

	properties.Property("bounds are set only with a number in the question", prop.ForAll(
		func(picks []int) bool {
			question := ""
			for _, i := range picks {
				question += vocabulary[i] + " "
			}
			record, _ := extractor.Extract(context.Background(), models.DomainProducts, question)
			return record.PriceMin == nil && record.PriceMax == nil
		},
		gen.SliceOf(gen.IntRange(0, len(vocabulary)-1)),
	))

	properties.TestingRun(t)
}
