package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/smartcom/smartcom-go/pkg/models"
)

// JobName is the name of the checkout reconciliation job.
const JobName = "checkout-reconciliation"

// ErrAlreadyRunning is returned by RunNow while a run is in progress.
var ErrAlreadyRunning = errors.New("job is already running")

// Reconciler settles checkouts left pending longer than olderThan.
type Reconciler interface {
	Reconcile(ctx context.Context, olderThan time.Duration) (int, error)
}

// Service runs checkout reconciliation on a cron schedule
type Service struct {
	reconciler Reconciler
	olderThan  time.Duration
	timeout    time.Duration
	schedule   cron.Schedule
	cron       *cron.Cron
	logger     *slog.Logger

	mu    sync.Mutex
	job   models.ScheduledJob
	entry cron.EntryID
}

// NewService creates a new scheduler service. spec is a standard five field
// cron expression or a descriptor such as "@every 5m".
func NewService(reconciler Reconciler, spec string, olderThan time.Duration, logger *slog.Logger) (*Service, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		reconciler: reconciler,
		olderThan:  olderThan,
		timeout:    time.Minute,
		schedule:   schedule,
		cron:       cron.New(),
		logger:     logger,
		job:        models.ScheduledJob{Name: JobName, Schedule: spec},
	}, nil
}

// Start schedules the job and starts the cron runner
func (s *Service) Start() {
	s.mu.Lock()
	s.entry = s.cron.Schedule(s.schedule, cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		_, _ = s.RunNow(ctx)
	}))
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("Job scheduler started", "job", JobName, "schedule", s.job.Schedule, "older_than", s.olderThan)
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Job scheduler stopped")
}

// RunNow runs the reconciliation once, outside the schedule.
func (s *Service) RunNow(ctx context.Context) (int, error) {
	s.mu.Lock()
	if s.job.Running {
		s.mu.Unlock()
		return 0, fmt.Errorf("job %s: %w", JobName, ErrAlreadyRunning)
	}
	s.job.Running = true
	s.mu.Unlock()

	started := time.Now()
	n, err := s.reconciler.Reconcile(ctx, s.olderThan)

	s.mu.Lock()
	s.job.Running = false
	s.job.Runs++
	s.job.LastRun = &started
	s.job.LastCount = n
	s.job.LastError = ""
	if err != nil {
		s.job.LastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Scheduled job failed", "job", JobName, "error", err)
		return n, err
	}
	s.logger.Debug("Scheduled job completed", "job", JobName, "reconciled", n, "duration", time.Since(started))
	return n, nil
}

// Status reports the job state
func (s *Service) Status() models.ScheduledJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	job := s.job
	if s.entry != 0 {
		if next := s.cron.Entry(s.entry).Next; !next.IsZero() {
			job.NextRun = &next
		}
	}
	return job
}
