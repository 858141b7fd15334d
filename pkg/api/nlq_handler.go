package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/smartcom/smartcom-go/pkg/models"
	"github.com/smartcom/smartcom-go/pkg/nlq"
)

// NLQService answers natural-language questions
type NLQService interface {
	Ask(ctx context.Context, question string) (*models.NLQueryResponse, error)
	Translate(ctx context.Context, question string) (*models.Translation, error)
	Search(ctx context.Context, domain models.Domain, question string) (*models.NLQueryResponse, error)
}

// NLQHandler handles natural-language query requests
type NLQHandler struct {
	service NLQService
}

// NewNLQHandler creates a new NL query handler
func NewNLQHandler(service NLQService) *NLQHandler {
	return &NLQHandler{service: service}
}

// HandleAsk handles POST /api/nlq
func (h *NLQHandler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	question, ok := readQuestion(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Ask(r.Context(), question)
	if err != nil {
		writeNLQError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

// HandleNLQ handles the routes below /api/nlq/
// POST /api/nlq/translate - Translate without executing
// POST /api/nlq/{products,stock,clients,suppliers} - Domain search
func (h *NLQHandler) HandleNLQ(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	segment := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/nlq/"), "/")

	if segment == "translate" {
		question, ok := readQuestion(w, r)
		if !ok {
			return
		}
		t, err := h.service.Translate(r.Context(), question)
		if err != nil {
			writeNLQError(w, err)
			return
		}
		writeJSONResponse(w, http.StatusOK, t)
		return
	}

	domain, ok := models.ParseDomain(segment)
	if !ok {
		writeErrorResponse(w, http.StatusNotFound, "Unknown search domain: "+segment)
		return
	}
	question, ok := readQuestion(w, r)
	if !ok {
		return
	}
	resp, err := h.service.Search(r.Context(), domain, question)
	if err != nil {
		writeNLQError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

func readQuestion(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req models.NLQueryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequestResponse(w, err.Error())
		return "", false
	}
	return req.Question, true
}

func writeNLQError(w http.ResponseWriter, err error) {
	var execErr *nlq.ExecutionError
	switch {
	case errors.Is(err, nlq.ErrEmptyQuestion):
		writeBadRequestResponse(w, "Question is required")
	case errors.Is(err, nlq.ErrRateLimited):
		w.Header().Set("Retry-After", "60")
		writeErrorResponse(w, http.StatusTooManyRequests, "Too many requests, try again in a minute")
	case errors.As(err, &execErr):
		writeJSONResponse(w, http.StatusBadGateway, map[string]any{
			"error":        execErr.Error(),
			"status":       "error",
			"sparql_query": execErr.Query,
		})
	default:
		writeErrorResponse(w, http.StatusInternalServerError, err.Error())
	}
}
