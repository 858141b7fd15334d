package extraction

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/smartcom/smartcom-go/pkg/models"
)

type boundPattern struct {
	re      *regexp.Regexp
	isRange bool
}

// boundRules describes how numeric thresholds are read from a question.
// Patterns are tried in order and the first match wins. The trigger lists are
// checked against the whole question to decide which bound the number sets.
// Inclusive phrases are checked before the bare triggers, since "au moins"
// contains "moins" and "au plus" contains "plus".
type boundRules struct {
	patterns       []boundPattern
	upper          []string
	lower          []string
	inclusiveUpper []string
	inclusiveLower []string
}

const number = `(\d+(?:[.,]\d+)?)`

var priceRules = boundRules{
	patterns: []boundPattern{
		{re: regexp.MustCompile(`(?:au plus|jusqu'à|moins de|inférieure? à|max(?:imum)?|<=?|less than|under|below|at most|up to)\s*` + number)},
		{re: regexp.MustCompile(`(?:au moins|à partir de|plus de|supérieure? à|>=?|more than|over|above|at least)\s*` + number)},
		{re: regexp.MustCompile(`(?:entre|de|between|from)\s*` + number + `\s*(?:et|à|and|to)\s*` + number), isRange: true},
		{re: regexp.MustCompile(number + `\s*(?:euros?|€)`)},
	},
	upper:          []string{"moins", "inférieur", "<", "max", "less", "under", "below", "at most"},
	lower:          []string{"plus", "supérieur", ">", "more", "over", "above", "at least", "à partir de"},
	inclusiveUpper: []string{"max", "au plus", "at most", "<=", "jusqu'à", "up to"},
	inclusiveLower: []string{"au moins", "at least", ">=", "à partir de"},
}

var stockRules = boundRules{
	patterns: []boundPattern{
		{re: regexp.MustCompile(`(?:au plus|jusqu'à|moins de|inférieure? à|au maximum|maximum|<=?|stock inférieur à|less than|under|at most|up to)\s*(\d+)`)},
		{re: regexp.MustCompile(`(?:au moins|à partir de|plus de|supérieure? à|au minimum|minimum|>=?|stock supérieur à|more than|over|at least)\s*(\d+)`)},
		{re: regexp.MustCompile(`(?:entre|de|between)\s*(\d+)\s*(?:et|à|and)\s*(\d+)\s*(?:unités?)?`), isRange: true},
		{re: regexp.MustCompile(`(\d+)\s*(?:unités?|units?|pièces?)`)},
	},
	upper:          []string{"moins", "inférieur", "<", "max", "less", "under", "at most"},
	lower:          []string{"plus", "supérieur", ">", "min", "more", "over", "at least", "à partir de"},
	inclusiveUpper: []string{"max", "au plus", "at most", "<=", "jusqu'à", "up to"},
	inclusiveLower: []string{"min", "au moins", "at least", ">=", "à partir de"},
}

// extract returns the lower and upper bounds found in text, either of which may be nil.
func (r boundRules) extract(text string) (lower, upper *models.Bound) {
	for _, p := range r.patterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		first, ok := parseNumber(m[1])
		if !ok {
			return nil, nil
		}

		switch {
		case containsAny(text, r.inclusiveLower):
			lower = &models.Bound{Value: first, Inclusive: true}
		case containsAny(text, r.inclusiveUpper):
			upper = &models.Bound{Value: first, Inclusive: true}
		case containsAny(text, r.upper):
			upper = &models.Bound{Value: first}
		case containsAny(text, r.lower):
			lower = &models.Bound{Value: first}
		case p.isRange:
			second, ok := parseNumber(m[2])
			if !ok {
				return nil, nil
			}
			lower = &models.Bound{Value: first, Inclusive: true}
			upper = &models.Bound{Value: second, Inclusive: true}
		default:
			upper = &models.Bound{Value: first, Inclusive: true}
		}
		return lower, upper
	}
	return nil, nil
}

func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
