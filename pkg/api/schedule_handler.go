package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/smartcom/smartcom-go/pkg/models"
	"github.com/smartcom/smartcom-go/pkg/scheduler"
)

// JobRunner reports on and triggers the checkout reconciliation job
type JobRunner interface {
	Status() models.ScheduledJob
	RunNow(ctx context.Context) (int, error)
}

// ScheduleHandler handles scheduled job HTTP requests
type ScheduleHandler struct {
	runner JobRunner
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(runner JobRunner) *ScheduleHandler {
	return &ScheduleHandler{runner: runner}
}

// HandleJob handles reconciliation job operations
// GET /api/jobs/reconciliation - Job status and next run
// POST /api/jobs/reconciliation/run - Run the job now
func (h *ScheduleHandler) HandleJob(w http.ResponseWriter, r *http.Request) {
	segments := pathSegments(r.URL.Path, "/api/jobs/")
	switch {
	case len(segments) == 1 && segments[0] == "reconciliation":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSONResponse(w, http.StatusOK, h.runner.Status())
	case len(segments) == 2 && segments[0] == "reconciliation" && segments[1] == "run":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.handleRun(w, r)
	default:
		http.NotFound(w, r)
	}
}

// handleRun handles POST /api/jobs/reconciliation/run
func (h *ScheduleHandler) handleRun(w http.ResponseWriter, r *http.Request) {
	settled, err := h.runner.RunNow(r.Context())
	if errors.Is(err, scheduler.ErrAlreadyRunning) {
		writeErrorResponse(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeStoreErrorResponse(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"job":     h.runner.Status(),
		"settled": settled,
	})
}
