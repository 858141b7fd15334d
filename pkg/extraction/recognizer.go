package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrRecognizerUnavailable reports that named-entity recognition could not run.
// Extraction still completes from the lexicon tables when it is returned.
var ErrRecognizerUnavailable = errors.New("entity recognizer unavailable")

// Entity labels
const (
	LabelPerson       = "PERSON"
	LabelOrganization = "ORGANIZATION"
	LabelLocation     = "LOCATION"
	LabelOther        = "MISC"
)

// Entity is a labelled span of the analyzed text
type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Token is a word with its lemma
type Token struct {
	Text  string `json:"text"`
	Lemma string `json:"lemma"`
}

// Analysis is the output of a Recognizer
type Analysis struct {
	Entities []Entity `json:"entities"`
	Tokens   []Token  `json:"tokens"`
}

// First returns the first entity carrying label.
func (a *Analysis) First(label string) (Entity, bool) {
	if a == nil {
		return Entity{}, false
	}
	for _, e := range a.Entities {
		if e.Label == label {
			return e, true
		}
	}
	return Entity{}, false
}

// Recognizer finds named entities and lemmas in text
type Recognizer interface {
	Analyze(ctx context.Context, text string) (*Analysis, error)
}

// Analyze runs r on its own goroutine so a slow model never outlives ctx.
// A nil recognizer or any recognizer failure yields ErrRecognizerUnavailable.
func Analyze(ctx context.Context, r Recognizer, text string) (*Analysis, error) {
	if r == nil {
		return nil, ErrRecognizerUnavailable
	}

	type result struct {
		analysis *Analysis
		err      error
	}
	done := make(chan result, 1)
	go func() {
		a, err := r.Analyze(ctx, text)
		done <- result{analysis: a, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrRecognizerUnavailable, ctx.Err())
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRecognizerUnavailable, res.err)
		}
		if res.analysis == nil {
			return &Analysis{}, nil
		}
		return res.analysis, nil
	}
}

// normalizeLabel maps backend-specific labels (spaCy, prose) to ours.
func normalizeLabel(label string) string {
	switch strings.ToUpper(label) {
	case "PER", "PERSON":
		return LabelPerson
	case "ORG", "ORGANIZATION", "ORGANISATION":
		return LabelOrganization
	case "LOC", "GPE", "LOCATION":
		return LabelLocation
	default:
		return LabelOther
	}
}
