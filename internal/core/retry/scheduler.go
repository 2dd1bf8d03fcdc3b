package retry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/joseph-ayodele/lantern/constants"
	"github.com/joseph-ayodele/lantern/internal/core/async"
	"github.com/joseph-ayodele/lantern/internal/repository"
)

// ReasonRetry tags jobs re-dispatched by the scheduler.
const ReasonRetry = "retry"

// Enqueuer accepts job ids for background processing.
type Enqueuer interface {
	Enqueue(ctx context.Context, job async.Job) error
}

// Scheduler periodically re-dispatches queued jobs that nobody picked up,
// typically those parked while OCR was unavailable.
type Scheduler struct {
	jobs     repository.JobRepository
	queue    Enqueuer
	logger   *slog.Logger
	schedule string
	minAge   time.Duration
	now      func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

type Option func(*Scheduler)

// WithSchedule sets a cron spec such as "@every 5m" or "*/10 * * * *".
func WithSchedule(spec string) Option {
	return func(s *Scheduler) { s.schedule = spec }
}

// WithMinAge skips queued jobs updated more recently than d.
func WithMinAge(d time.Duration) Option {
	return func(s *Scheduler) {
		if d >= 0 {
			s.minAge = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

func NewScheduler(jobs repository.JobRepository, queue Enqueuer, logger *slog.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		jobs:     jobs,
		queue:    queue,
		logger:   logger,
		schedule: "@every 5m",
		minAge:   time.Minute,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start registers the sweep on the cron schedule. An empty schedule disables it.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.schedule == "" {
		s.logger.Info("retry scheduler disabled")
		return nil
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(s.schedule, func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Error("retry sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid retry schedule %q: %w", s.schedule, err)
	}

	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()
	c.Start()
	s.logger.Info("retry scheduler started", "schedule", s.schedule, "min_age", s.minAge)
	return nil
}

// Stop halts the schedule and waits for a running sweep or ctx, whichever is first.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
		s.logger.Info("retry scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn("timeout waiting for retry sweep to finish")
	}
}

// Sweep enqueues every queued job older than the minimum age and returns how
// many were handed to the queue.
func (s *Scheduler) Sweep(ctx context.Context) (int, error) {
	queued, err := s.jobs.ListByStatus(ctx, constants.JobStatusQueued)
	if err != nil {
		return 0, err
	}
	cutoff := s.now().UTC().Add(-s.minAge)

	n := 0
	for _, job := range queued {
		if job.UpdatedAt.After(cutoff) {
			continue
		}
		err := s.queue.Enqueue(ctx, async.Job{
			JobID:       job.ID,
			Reason:      ReasonRetry,
			SubmittedAt: s.now(),
		})
		if err != nil {
			s.logger.Warn("retry enqueue failed", "job_id", job.ID, "error", err)
			if ctx.Err() != nil {
				return n, ctx.Err()
			}
			continue
		}
		n++
	}
	if n > 0 {
		s.logger.Info("re-dispatched queued jobs", "count", n, "queued", len(queued))
	} else {
		s.logger.Debug("no queued jobs due for retry", "queued", len(queued))
	}
	return n, nil
}
