package async

import (
	"context"
	"errors"
	"sync"
	"time"

	"log/slog"
)

// ErrQueueClosed is returned by Enqueue after Shutdown has begun.
var ErrQueueClosed = errors.New("queue is shutting down")

var _ Queue = (*ProcessorQueue)(nil)

// ProcessorQueue fans job ids out to a fixed pool of workers. A job id that
// is already waiting or running is not enqueued twice.
type ProcessorQueue struct {
	handler Handler
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu       sync.Mutex
	closed   bool
	inflight map[string]struct{}
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewProcessorQueue(handler Handler, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		handler:  handler,
		logger:   logger,
		workers:  4,
		timeout:  3 * time.Minute,
		ch:       make(chan Job, 256),
		inflight: make(map[string]struct{}),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("worker started", "worker_id", workerID)

				for job := range q.ch {
					q.run(workerID, job)
				}

				q.logger.Debug("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) run(workerID int, job Job) {
	defer q.release(job.JobID)
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	start := time.Now()
	err := q.handler.Handle(ctx, job.JobID)
	if err != nil {
		q.logger.Error("processing failed", "worker_id", workerID, "job_id", job.JobID, "reason", job.Reason, "error", err)
		return
	}
	q.logger.Info("processed job", "worker_id", workerID, "job_id", job.JobID, "reason", job.Reason,
		"duration_ms", time.Since(start).Milliseconds())
}

func (q *ProcessorQueue) release(jobID string) {
	q.mu.Lock()
	delete(q.inflight, jobID)
	q.mu.Unlock()
}

// Enqueue hands job to a worker, blocking while the buffer is full.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Warn("cannot enqueue: queue is shutting down", "job_id", job.JobID)
		return ErrQueueClosed
	}
	if _, dup := q.inflight[job.JobID]; dup {
		q.mu.Unlock()
		q.logger.Debug("job already queued or running", "job_id", job.JobID)
		return nil
	}
	q.inflight[job.JobID] = struct{}{}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}

	select {
	case q.ch <- job:
		q.mu.Unlock()
		q.logger.Debug("queued job for processing", "job_id", job.JobID, "reason", job.Reason)
		return nil
	default:
	}
	// Release the lock while applying backpressure so workers can drain.
	q.mu.Unlock()
	q.logger.Warn("queue full, applying backpressure", "job_id", job.JobID)
	return q.send(ctx, job)
}

func (q *ProcessorQueue) send(ctx context.Context, job Job) (err error) {
	defer func() {
		if recover() != nil {
			q.release(job.JobID)
			err = ErrQueueClosed
		}
	}()
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		q.release(job.JobID)
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for workers to drain or ctx to end.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
