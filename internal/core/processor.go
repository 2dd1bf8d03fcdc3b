package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/lantern/constants"
	"github.com/joseph-ayodele/lantern/internal/common"
	"github.com/joseph-ayodele/lantern/internal/core/extract"
	"github.com/joseph-ayodele/lantern/internal/core/gps"
	"github.com/joseph-ayodele/lantern/internal/core/ocr"
	"github.com/joseph-ayodele/lantern/internal/entity"
	"github.com/joseph-ayodele/lantern/internal/repository"
)

// OCREngine turns a route-sheet image into text plus embedded metadata.
type OCREngine interface {
	CheckAvailable(ctx context.Context) error
	Recognize(ctx context.Context, path string) (ocr.Recognition, error)
}

// CapabilityCheck returns a non-nil error describing what is missing when OCR cannot run.
type CapabilityCheck func(ctx context.Context) error

// RequeuePolicy decides what a return to queued writes besides the status.
type RequeuePolicy string

const (
	// RequeueRecord stores the unavailability diagnostic as error and extraction.
	RequeueRecord RequeuePolicy = "record"
	// RequeuePreserve changes only the status, keeping earlier error and extraction.
	RequeuePreserve RequeuePolicy = "preserve"
)

// Processor drives one extraction attempt for a job and owns its status transitions.
type Processor struct {
	logger        *slog.Logger
	jobs          repository.JobRepository
	engine        OCREngine
	check         CapabilityCheck
	minConfidence float32
	policy        RequeuePolicy
}

type Option func(*Processor)

// WithCapabilityCheck overrides the engine's own availability probe.
func WithCapabilityCheck(fn CapabilityCheck) Option {
	return func(p *Processor) {
		if fn != nil {
			p.check = fn
		}
	}
}

// WithMinConfidence sets the OCR confidence below which a done result is tagged low_confidence.
func WithMinConfidence(c float32) Option {
	return func(p *Processor) {
		if c >= 0 {
			p.minConfidence = c
		}
	}
}

func WithRequeuePolicy(policy RequeuePolicy) Option {
	return func(p *Processor) {
		if policy == RequeueRecord || policy == RequeuePreserve {
			p.policy = policy
		}
	}
}

func NewProcessor(jobs repository.JobRepository, engine OCREngine, logger *slog.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		logger:        logger,
		jobs:          jobs,
		engine:        engine,
		minConfidence: 0.45,
		policy:        RequeueRecord,
	}
	if engine != nil {
		p.check = engine.CheckAvailable
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Process runs one attempt for jobID: queued/failed -> processing -> done,
// failed, or back to queued when OCR is unavailable. Every transition is
// persisted before Process returns. An unknown id yields repository.ErrJobNotFound.
func (p *Processor) Process(ctx context.Context, jobID string) (entity.ExtractionResult, error) {
	ctx = common.WithJobID(ctx, jobID)
	job, err := p.jobs.Get(ctx, jobID)
	if err != nil {
		return entity.ExtractionResult{}, err
	}
	log := p.logger.With("job_id", job.ID)

	if err := p.jobs.Update(ctx, job.ID, constants.JobStatusProcessing); err != nil {
		return entity.ExtractionResult{}, fmt.Errorf("mark processing: %w", err)
	}
	log.Debug("job processing", "source", job.Source, "image_path", job.ImagePath)

	if job.ImagePath == "" {
		return p.fail(ctx, log, job.ID, constants.ErrMsgMissingImagePath)
	}

	if err := p.available(ctx); err != nil {
		return p.requeue(ctx, log, job.ID, common.Message(err))
	}

	rec, err := p.engine.Recognize(ctx, job.ImagePath)
	if err != nil {
		if ocr.IsUnavailable(err) {
			return p.requeue(ctx, log, job.ID, common.Message(err))
		}
		return p.fail(ctx, log, job.ID, err.Error())
	}

	fields := extract.Fields(rec.Text)
	fields.GPSLatitude, fields.GPSLongitude = gps.Decode(rec.Metadata)

	text := rec.RawText
	res := entity.ExtractionResult{
		Status:  constants.JobStatusDone,
		JobID:   job.ID,
		Fields:  fields,
		RawText: &text,
	}
	if rec.Confidence < p.minConfidence {
		res.OCRStatus = constants.OCRStatusLowConfidence
	}
	if err := p.jobs.Update(ctx, job.ID, constants.JobStatusDone, repository.WithExtraction(res)); err != nil {
		return res, fmt.Errorf("mark done: %w", err)
	}
	log.Info("job extracted",
		"method", rec.Method,
		"language", rec.Language,
		"warnings", rec.Warnings,
		"confidence", rec.Confidence,
		"ocr_status", ocrStatusOrOK(res.OCRStatus),
		"has_gps", fields.GPSLatitude != nil,
		"duration_ms", rec.Duration.Milliseconds(),
	)
	return res, nil
}

func (p *Processor) available(ctx context.Context) error {
	if p.check == nil {
		return common.NewAppError("OCR_UNAVAILABLE", "OCR unavailable; no engine configured", common.ErrUnavailable)
	}
	return p.check(ctx)
}

func (p *Processor) fail(ctx context.Context, log *slog.Logger, jobID, msg string) (entity.ExtractionResult, error) {
	res := entity.ExtractionResult{
		Status:    constants.JobStatusFailed,
		JobID:     jobID,
		Error:     msg,
		OCRStatus: constants.OCRStatusError,
	}
	if err := p.jobs.Update(ctx, jobID, constants.JobStatusFailed,
		repository.WithError(msg), repository.WithExtraction(res)); err != nil {
		return res, fmt.Errorf("mark failed: %w", err)
	}
	log.Warn("job failed", "error", msg)
	return res, nil
}

func (p *Processor) requeue(ctx context.Context, log *slog.Logger, jobID, msg string) (entity.ExtractionResult, error) {
	res := entity.ExtractionResult{
		Status:    constants.JobStatusQueued,
		JobID:     jobID,
		OCRStatus: constants.OCRStatusUnavailable,
		Message:   msg,
	}
	var opts []repository.UpdateOption
	if p.policy == RequeueRecord {
		opts = append(opts, repository.WithError(msg), repository.WithExtraction(res))
	}
	if err := p.jobs.Update(ctx, jobID, constants.JobStatusQueued, opts...); err != nil {
		return res, fmt.Errorf("mark queued: %w", err)
	}
	log.Warn("ocr unavailable; job requeued", "reason", msg, "policy", p.policy)
	return res, nil
}

func ocrStatusOrOK(s constants.OCRStatus) constants.OCRStatus {
	if s == "" {
		return constants.OCRStatusOK
	}
	return s
}
