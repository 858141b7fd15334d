// Package nlq answers natural-language questions with SPARQL. Translation runs
// a fallback chain: the AI translator, then the deterministic parser, then
// the unfiltered product listing.
package nlq

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/smartcom/smartcom-go/pkg/extraction"
	"github.com/smartcom/smartcom-go/pkg/metrics"
	"github.com/smartcom/smartcom-go/pkg/models"
	"github.com/smartcom/smartcom-go/pkg/querybuilder"
	"github.com/smartcom/smartcom-go/pkg/sparql"
	"github.com/smartcom/smartcom-go/pkg/triplestore"
)

const tracerName = "github.com/smartcom/smartcom-go/pkg/nlq"

// Executor runs SELECT queries.
type Executor interface {
	Select(ctx context.Context, query string) (*triplestore.QueryResult, error)
}

// Translator is the first strategy of the chain.
type Translator interface {
	Translate(ctx context.Context, question string) (string, error)
}

// Options configures a Service. Every field is optional.
type Options struct {
	Translator Translator // nil disables the AI strategy
	Parser     *Parser
	Extractor  *extraction.Extractor
	Limiter    Limiter // nil disables rate limiting
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// Service translates and executes natural-language questions.
type Service struct {
	store      Executor
	translator Translator
	parser     *Parser
	extractor  *extraction.Extractor
	limiter    Limiter
	metrics    *metrics.Metrics
	logger     *slog.Logger
	tracer     trace.Tracer
}

// NewService creates a new NL query service executing against store.
func NewService(store Executor, opts Options) *Service {
	s := &Service{
		store:      store,
		translator: opts.Translator,
		parser:     opts.Parser,
		extractor:  opts.Extractor,
		limiter:    opts.Limiter,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		tracer:     otel.Tracer(tracerName),
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.extractor == nil {
		s.extractor = extraction.NewExtractor(nil, nil, s.logger)
	}
	if s.parser == nil {
		s.parser = NewParser(s.extractor.Lexicon())
	}
	return s
}

// Translate picks the query for question without executing it. It fails
// only for an empty question or an exhausted rate limit.
func (s *Service) Translate(ctx context.Context, question string) (*models.Translation, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	ctx, span := s.tracer.Start(ctx, "nlq.translate")
	defer span.End()

	if err := s.admit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	t := s.chain(ctx, question)
	span.SetAttributes(
		attribute.String("nlq.strategy", string(t.Strategy)),
		attribute.Bool("nlq.degraded", t.Degraded),
	)
	s.metrics.CountTranslation(string(t.Strategy))
	return t, nil
}

// Ask translates question and runs the chosen query.
func (s *Service) Ask(ctx context.Context, question string) (*models.NLQueryResponse, error) {
	t, err := s.Translate(ctx, question)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, *t, nil)
}

// Search answers a question against one domain with the entity extractor and
// the query builder. The AI chain and the rate limit are not involved.
func (s *Service) Search(ctx context.Context, domain models.Domain, question string) (*models.NLQueryResponse, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	ctx, span := s.tracer.Start(ctx, "nlq.search", trace.WithAttributes(attribute.String("nlq.domain", string(domain))))
	defer span.End()

	record, err := s.extractor.Extract(ctx, domain, question)
	degraded := false
	if err != nil {
		degraded = true
		s.logger.Warn("Entity extraction degraded", "domain", domain, "error", err)
	}

	t := models.Translation{
		Question: question,
		Query:    querybuilder.Build(record),
		Strategy: models.StrategyDomain,
		Degraded: degraded,
	}
	s.metrics.CountTranslation(string(t.Strategy))
	return s.execute(ctx, t, record)
}

func (s *Service) admit(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	ok, err := s.limiter.Allow(ctx)
	if err != nil {
		s.logger.Warn("Rate limiter unavailable, admitting question", "error", err)
		return nil
	}
	if !ok {
		s.metrics.CountRateLimited()
		s.logger.Info("Question rejected by rate limit")
		return ErrRateLimited
	}
	return nil
}

// chain runs the strategies in order. It always returns a query.
func (s *Service) chain(ctx context.Context, question string) *models.Translation {
	t := &models.Translation{Question: question}

	if s.translator != nil {
		query, err := s.translator.Translate(ctx, question)
		if err == nil {
			err = sparql.ValidateReadOnly(query)
		}
		if err == nil {
			t.Query, t.Strategy = query, models.StrategyAI
			return t
		}
		t.Degraded = true
		if errors.Is(err, ErrTranslationUnavailable) {
			s.logger.Warn("AI translation unavailable, falling back to parser", "error", err)
		} else {
			s.logger.Error("AI translation failed, falling back to parser", "error", err)
		}
	} else {
		t.Degraded = true
	}

	if query, ok := s.parser.Parse(question); ok {
		t.Query, t.Strategy = query, models.StrategyParser
		return t
	}

	s.logger.Info("No query could be derived, using product listing", "question", question)
	t.Query, t.Strategy = querybuilder.ProductListing().String(), models.StrategyFallback
	return t
}

func (s *Service) execute(ctx context.Context, t models.Translation, record *models.EntityRecord) (*models.NLQueryResponse, error) {
	result, err := s.store.Select(ctx, t.Query)
	if err != nil {
		s.logger.Error("SPARQL execution failed", "strategy", t.Strategy, "error", err)
		return nil, &ExecutionError{Query: t.Query, Err: err}
	}
	rows := result.Rows()
	return &models.NLQueryResponse{
		Translation: t,
		Entities:    record,
		Results:     rows,
		Count:       len(rows),
	}, nil
}
