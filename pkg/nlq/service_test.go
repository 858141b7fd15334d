package nlq

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcom/smartcom-go/pkg/metrics"
	"github.com/smartcom/smartcom-go/pkg/models"
	"github.com/smartcom/smartcom-go/pkg/ontology"
	"github.com/smartcom/smartcom-go/pkg/querybuilder"
	"github.com/smartcom/smartcom-go/pkg/triplestore"
)

type stubExecutor struct {
	mu      sync.Mutex
	queries []string
	result  *triplestore.QueryResult
	err     error
}

func (s *stubExecutor) Select(ctx context.Context, query string) (*triplestore.QueryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)
	if s.err != nil {
		return nil, s.err
	}
	if s.result == nil {
		return &triplestore.QueryResult{}, nil
	}
	return s.result, nil
}

type stubTranslator struct {
	query string
	err   error
	calls int
}

func (s *stubTranslator) Translate(ctx context.Context, question string) (string, error) {
	s.calls++
	return s.query, s.err
}

type countingLimiter struct {
	calls int
	allow bool
	err   error
}

func (c *countingLimiter) Allow(ctx context.Context) (bool, error) {
	c.calls++
	return c.allow, c.err
}

const aiQuery = "PREFIX ns: <urn:x#>\nSELECT ?result\nWHERE {\n  ?x ns:aPrix ?result .\n}\n"

func TestTranslateEmptyQuestion(t *testing.T) {
	limiter := &countingLimiter{allow: true}
	translator := &stubTranslator{query: aiQuery}
	service := NewService(&stubExecutor{}, Options{Translator: translator, Limiter: limiter})

	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := service.Translate(context.Background(), q)
		assert.ErrorIs(t, err, ErrEmptyQuestion)
	}
	assert.Zero(t, limiter.calls)
	assert.Zero(t, translator.calls)
}

func TestTranslateFallbackChain(t *testing.T) {
	tests := []struct {
		name         string
		translator   Translator
		question     string
		wantStrategy models.Strategy
		wantDegraded bool
		wantQuery    string
	}{
		{
			name:         "ai translation wins",
			translator:   &stubTranslator{query: aiQuery},
			question:     "prix du Galaxy",
			wantStrategy: models.StrategyAI,
			wantQuery:    aiQuery,
		},
		{
			name:         "unavailable ai falls to parser",
			translator:   &stubTranslator{err: ErrTranslationUnavailable},
			question:     "produits par marque LG",
			wantStrategy: models.StrategyParser,
			wantDegraded: true,
			wantQuery:    "FILTER (?marqueUri = <" + ontology.Namespace + "LG>)",
		},
		{
			name:         "failing ai falls to parser",
			translator:   &stubTranslator{err: errors.New("panic in model")},
			question:     "liste",
			wantStrategy: models.StrategyParser,
			wantDegraded: true,
			wantQuery:    querybuilder.ProductListing().String(),
		},
		{
			name:         "write query from ai is rejected",
			translator:   &stubTranslator{query: "DELETE WHERE { ?s ?p ?o }"},
			question:     "bonjour",
			wantStrategy: models.StrategyFallback,
			wantDegraded: true,
			wantQuery:    querybuilder.ProductListing().String(),
		},
		{
			name:         "no translator and nothing parsed",
			question:     "bonjour",
			wantStrategy: models.StrategyFallback,
			wantDegraded: true,
			wantQuery:    querybuilder.ProductListing().String(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewService(&stubExecutor{}, Options{Translator: tt.translator})

			translation, err := service.Translate(context.Background(), tt.question)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStrategy, translation.Strategy)
			assert.Equal(t, tt.wantDegraded, translation.Degraded)
			assert.Contains(t, translation.Query, tt.wantQuery)
			assert.Equal(t, tt.question, translation.Question)
		})
	}
}

func TestTranslateRateLimit(t *testing.T) {
	m := metrics.New()
	translator := &stubTranslator{query: aiQuery}
	service := NewService(&stubExecutor{}, Options{
		Translator: translator,
		Limiter:    NewWindowLimiter(2, time.Minute),
		Metrics:    m,
	})
	ctx := context.Background()

	_, err := service.Translate(ctx, "one")
	require.NoError(t, err)
	_, err = service.Translate(ctx, "two")
	require.NoError(t, err)

	_, err = service.Translate(ctx, "three")
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 2, translator.calls, "rejected question must not reach the translator")
}

func TestTranslateLimiterFailureAdmits(t *testing.T) {
	limiter := &countingLimiter{err: errors.New("connection refused")}
	service := NewService(&stubExecutor{}, Options{Translator: &stubTranslator{query: aiQuery}, Limiter: limiter})

	translation, err := service.Translate(context.Background(), "prix")
	require.NoError(t, err)
	assert.Equal(t, models.StrategyAI, translation.Strategy)
	assert.Equal(t, 1, limiter.calls)
}

func TestAskExecutesExactlyOnce(t *testing.T) {
	store := &stubExecutor{result: &triplestore.QueryResult{
		Variables: []string{"result"},
		Bindings: []triplestore.BindingRow{
			{"result": {Type: "literal", Value: "499.99"}},
		},
	}}
	service := NewService(store, Options{Translator: &stubTranslator{query: aiQuery}})

	resp, err := service.Ask(context.Background(), "prix du Galaxy")
	require.NoError(t, err)

	assert.Equal(t, []string{aiQuery}, store.queries)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "499.99", resp.Results[0]["result"])
	assert.Equal(t, models.StrategyAI, resp.Strategy)
}

func TestAskExecutionError(t *testing.T) {
	storeErr := &triplestore.QueryError{Operation: triplestore.OpSelect, Status: 400, Err: triplestore.ErrMalformedQuery}
	store := &stubExecutor{err: storeErr}
	service := NewService(store, Options{})

	_, err := service.Ask(context.Background(), "liste des produits")
	require.Error(t, err)

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, querybuilder.ProductListing().String(), execErr.Query)
	assert.ErrorIs(t, err, triplestore.ErrMalformedQuery)
	assert.NotErrorIs(t, err, ErrTranslationUnavailable)
}

func TestSearch(t *testing.T) {
	store := &stubExecutor{}
	limiter := &countingLimiter{allow: false}
	service := NewService(store, Options{Limiter: limiter})

	resp, err := service.Search(context.Background(), models.DomainProducts, "produits par marque Samsung avec prix inférieur à 500")
	require.NoError(t, err)

	assert.Equal(t, models.StrategyDomain, resp.Strategy)
	require.NotNil(t, resp.Entities)
	require.NotNil(t, resp.Entities.Brand)
	assert.Equal(t, ontology.IRI("Samsung"), resp.Entities.Brand.IRI)
	assert.Contains(t, resp.Query, "FILTER (?prix < 500")
	require.Len(t, store.queries, 1)
	assert.Zero(t, limiter.calls, "domain search is not rate limited")

	_, err = service.Search(context.Background(), models.DomainStock, "  ")
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestSearchDegradedRecognizer(t *testing.T) {
	store := &stubExecutor{}
	service := NewService(store, Options{})

	resp, err := service.Search(context.Background(), models.DomainClients, "clients en Tunisie")
	require.NoError(t, err)

	assert.True(t, resp.Degraded)
	assert.True(t, strings.Contains(resp.Query, "?client a ns:Client ."))
}
