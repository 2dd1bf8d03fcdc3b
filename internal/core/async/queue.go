package async

import (
	"context"
	"time"
)

// Job is one request to run the pipeline for a stored job record.
type Job struct {
	JobID       string
	Reason      string // upload | email | folder | retry | cli
	SubmittedAt time.Time
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// Handler runs one job to completion.
type Handler interface {
	Handle(ctx context.Context, jobID string) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, jobID string) error

func (f HandlerFunc) Handle(ctx context.Context, jobID string) error { return f(ctx, jobID) }
