// Package triplestore is the gateway to a SPARQL 1.1 triplestore (Apache Jena
// Fuseki) exposing separate query, update and graph store endpoints.
package triplestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/smartcom/smartcom-go/pkg/metrics"
)

const tracerName = "github.com/smartcom/smartcom-go/pkg/triplestore"

// Operation names used for metrics and spans.
const (
	OpSelect = "select"
	OpAsk    = "ask"
	OpUpdate = "update"
	OpLoad   = "load"
)

// maxErrorBody caps how much of a failed response body is kept.
const maxErrorBody = 4096

// Config configures a Client.
type Config struct {
	BaseURL       string
	Dataset       string
	Timeout       time.Duration
	MaxConcurrent int     // requests in flight; <= 0 means unbounded
	MaxQPS        float64 // outbound request rate; <= 0 means unlimited
	HTTPClient    *http.Client
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
}

// Client manages communication with a Fuseki dataset. It is safe for
// concurrent use.
type Client struct {
	queryURL   string
	updateURL  string
	dataURL    string
	pingURL    string
	httpClient *http.Client
	pool       *semaphore.Weighted
	limiter    *rate.Limiter
	tracer     trace.Tracer
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewClient creates a client for cfg.Dataset on the server at cfg.BaseURL.
func NewClient(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	dataset := url.PathEscape(strings.Trim(cfg.Dataset, "/"))

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		queryURL:   fmt.Sprintf("%s/%s/query", base, dataset),
		updateURL:  fmt.Sprintf("%s/%s/update", base, dataset),
		dataURL:    fmt.Sprintf("%s/%s/data", base, dataset),
		pingURL:    base + "/$/ping",
		httpClient: httpClient,
		tracer:     otel.Tracer(tracerName),
		metrics:    cfg.Metrics,
		logger:     logger,
	}
	if cfg.MaxConcurrent > 0 {
		c.pool = semaphore.NewWeighted(int64(cfg.MaxConcurrent))
	}
	if cfg.MaxQPS > 0 {
		burst := int(cfg.MaxQPS)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.MaxQPS), burst)
	}
	return c
}

// Health checks if Fuseki is accessible
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pingURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fuseki health check failed: %v: %w", err, ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fuseki health check returned status %d: %w", resp.StatusCode, ErrUnavailable)
	}
	return nil
}

// Select executes a SELECT query.
func (c *Client) Select(ctx context.Context, query string) (*QueryResult, error) {
	var result *QueryResult
	err := c.do(ctx, OpSelect, query, func(ctx context.Context) error {
		var err error
		result, err = c.query(ctx, OpSelect, query)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Ask executes an ASK query.
func (c *Client) Ask(ctx context.Context, query string) (bool, error) {
	var answer bool
	err := c.do(ctx, OpAsk, query, func(ctx context.Context) error {
		result, err := c.query(ctx, OpAsk, query)
		if err != nil {
			return err
		}
		if result.Boolean == nil {
			return &QueryError{Operation: OpAsk, Query: query, Err: errors.New("response carries no boolean")}
		}
		answer = *result.Boolean
		return nil
	})
	return answer, err
}

// Update executes a SPARQL UPDATE request. A request holding several
// operations separated by ";" is applied by Fuseki in one transaction.
func (c *Client) Update(ctx context.Context, update string) error {
	return c.do(ctx, OpUpdate, update, func(ctx context.Context) error {
		form := url.Values{}
		form.Set("update", update)

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.updateURL, strings.NewReader(form.Encode()))
		if err != nil {
			return fmt.Errorf("failed to create update request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return c.transportError(ctx, OpUpdate, update, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
			return statusError(OpUpdate, update, resp)
		}
		return nil
	})
}

// LoadTurtle posts Turtle data to the graph store endpoint. An empty graph
// loads into the default graph.
func (c *Client) LoadTurtle(ctx context.Context, graph, data string) error {
	return c.do(ctx, OpLoad, data, func(ctx context.Context) error {
		endpoint := c.dataURL
		if graph == "" {
			endpoint += "?default"
		} else {
			endpoint += "?graph=" + url.QueryEscape(graph)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader([]byte(data)))
		if err != nil {
			return fmt.Errorf("failed to create load request: %w", err)
		}
		req.Header.Set("Content-Type", "text/turtle; charset=utf-8")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return c.transportError(ctx, OpLoad, data, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
			return statusError(OpLoad, data, resp)
		}
		return nil
	})
}

// Close closes the HTTP client (no-op for http.Client)
func (c *Client) Close() error {
	return nil
}

// do runs fn inside the worker pool and the outbound rate limit, with a span
// and request metrics around it.
func (c *Client) do(ctx context.Context, operation, text string, fn func(context.Context) error) error {
	ctx, span := c.tracer.Start(ctx, "triplestore."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "fuseki"),
			attribute.String("db.operation", operation),
		),
	)
	defer span.End()

	start := time.Now()
	err := c.acquire(ctx, operation, text)
	if err == nil {
		err = fn(ctx)
		c.release()
	}
	elapsed := time.Since(start)
	c.metrics.ObserveStoreRequest(operation, err, elapsed)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn("Triplestore request failed", "operation", operation, "duration", elapsed, "error", err)
		c.logger.Debug("Failed triplestore request text", "operation", operation, "text", text)
		return err
	}
	return nil
}

func (c *Client) acquire(ctx context.Context, operation, text string) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &QueryError{Operation: operation, Query: text, Err: err}
		}
	}
	if c.pool != nil {
		if err := c.pool.Acquire(ctx, 1); err != nil {
			return &QueryError{Operation: operation, Query: text, Err: err}
		}
	}
	return nil
}

func (c *Client) release() {
	if c.pool != nil {
		c.pool.Release(1)
	}
}

func (c *Client) query(ctx context.Context, operation, query string) (*QueryResult, error) {
	form := url.Values{}
	form.Set("query", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.queryURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/sparql-results+json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, operation, query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(operation, query, resp)
	}

	// SPARQL 1.1 Query Results JSON Format
	var sparqlResult struct {
		Head struct {
			Vars []string `json:"vars"`
		} `json:"head"`
		Results struct {
			Bindings []map[string]struct {
				Type     string `json:"type"`
				Value    string `json:"value"`
				Datatype string `json:"datatype,omitempty"`
				Lang     string `json:"xml:lang,omitempty"`
			} `json:"bindings"`
		} `json:"results"`
		Boolean *bool `json:"boolean,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&sparqlResult); err != nil {
		return nil, &QueryError{Operation: operation, Query: query, Status: resp.StatusCode, Err: fmt.Errorf("failed to parse query results: %w", err)}
	}

	result := &QueryResult{
		Variables: sparqlResult.Head.Vars,
		Bindings:  make([]BindingRow, 0, len(sparqlResult.Results.Bindings)),
		Boolean:   sparqlResult.Boolean,
		Duration:  time.Since(start),
	}
	for _, binding := range sparqlResult.Results.Bindings {
		row := make(BindingRow, len(binding))
		for name, value := range binding {
			row[name] = BindingValue{
				Type:     value.Type,
				Value:    value.Value,
				Datatype: value.Datatype,
				Lang:     value.Lang,
			}
		}
		result.Bindings = append(result.Bindings, row)
	}
	return result, nil
}

// transportError classifies a failed round trip. Cancellation by the caller
// is reported as such, anything else means the store is unreachable.
func (c *Client) transportError(ctx context.Context, operation, text string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &QueryError{Operation: operation, Query: text, Err: ctxErr}
	}
	return &QueryError{Operation: operation, Query: text, Err: fmt.Errorf("%v: %w", err, ErrUnavailable)}
}

func statusError(operation, text string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	qe := &QueryError{Operation: operation, Query: text, Status: resp.StatusCode, Body: string(body)}
	switch {
	case resp.StatusCode == http.StatusBadRequest:
		qe.Err = ErrMalformedQuery
	case resp.StatusCode >= http.StatusInternalServerError:
		qe.Err = ErrUnavailable
	default:
		qe.Err = fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(body)))
	}
	return qe
}
