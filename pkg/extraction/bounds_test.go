package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/smartcom/smartcom-go/pkg/models"
)

func TestPriceRules(t *testing.T) {
	tests := []struct {
		text  string
		lower *models.Bound
		upper *models.Bound
	}{
		{"prix < 300", nil, &models.Bound{Value: 300}},
		{"prix <= 300", nil, &models.Bound{Value: 300, Inclusive: true}},
		{"prix >= 300", &models.Bound{Value: 300, Inclusive: true}, nil},
		{"supérieure à 99,90", &models.Bound{Value: 99.9}, nil},
		{"de 100 à 200", &models.Bound{Value: 100, Inclusive: true}, &models.Bound{Value: 200, Inclusive: true}},
		{"between 10 and 20", &models.Bound{Value: 10, Inclusive: true}, &models.Bound{Value: 20, Inclusive: true}},
		{"at least 50", &models.Bound{Value: 50, Inclusive: true}, nil},
		{"entre 100 et 500 euros maximum", nil, &models.Bound{Value: 100, Inclusive: true}},
		{"au moins 100 euros", &models.Bound{Value: 100, Inclusive: true}, nil},
		{"au plus 500 euros", nil, &models.Bound{Value: 500, Inclusive: true}},
		{"à partir de 200 euros", &models.Bound{Value: 200, Inclusive: true}, nil},
		{"jusqu'à 300 euros", nil, &models.Bound{Value: 300, Inclusive: true}},
		{"at most 80", nil, &models.Bound{Value: 80, Inclusive: true}},
		{"up to 120", nil, &models.Bound{Value: 120, Inclusive: true}},
		{"moins de 400 euros", nil, &models.Bound{Value: 400}},
		{"plus de 800 euros", &models.Bound{Value: 800}, nil},
		{"aucun chiffre", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			lower, upper := priceRules.extract(tt.text)
			assert.Equal(t, tt.lower, lower)
			assert.Equal(t, tt.upper, upper)
		})
	}
}

func TestStockRules(t *testing.T) {
	tests := []struct {
		text  string
		lower *models.Bound
		upper *models.Bound
	}{
		{"au maximum 15", nil, &models.Bound{Value: 15, Inclusive: true}},
		{"au minimum 3", &models.Bound{Value: 3, Inclusive: true}, nil},
		{"12 unités", nil, &models.Bound{Value: 12, Inclusive: true}},
		{"stock > 4", &models.Bound{Value: 4}, nil},
		{"au moins 5 unités", &models.Bound{Value: 5, Inclusive: true}, nil},
		{"au plus 5 unités", nil, &models.Bound{Value: 5, Inclusive: true}},
		{"à partir de 20 unités", &models.Bound{Value: 20, Inclusive: true}, nil},
		{"jusqu'à 8 unités", nil, &models.Bound{Value: 8, Inclusive: true}},
		{"at least 4 units", &models.Bound{Value: 4, Inclusive: true}, nil},
		{"moins de 10 unités", nil, &models.Bound{Value: 10}},
		{"plus de 50 unités", &models.Bound{Value: 50}, nil},
		{"rien", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			lower, upper := stockRules.extract(tt.text)
			assert.Equal(t, tt.lower, lower)
			assert.Equal(t, tt.upper, upper)
		})
	}
}
