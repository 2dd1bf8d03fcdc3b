package pipeline

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/lantern/constants"
	"github.com/joseph-ayodele/lantern/internal/common"
	"github.com/joseph-ayodele/lantern/internal/core/async"
	"github.com/joseph-ayodele/lantern/internal/entity"
	"github.com/joseph-ayodele/lantern/internal/repository"
)

// Extractor runs one extraction attempt for a stored job.
type Extractor interface {
	Process(ctx context.Context, jobID string) (entity.ExtractionResult, error)
}

// Deliverer hands a finished extraction to the downstream inbox.
type Deliverer interface {
	Deliver(ctx context.Context, res entity.ExtractionResult) entity.DeliveryOutcome
}

// Outcome is everything a transport reports back after a run.
type Outcome struct {
	Job        *entity.JobRecord       `json:"job"`
	Extraction entity.ExtractionResult `json:"extraction"`
	Delivery   entity.DeliveryOutcome  `json:"delivery"`
}

// Pipeline coordinates extraction then delivery for a job id.
type Pipeline struct {
	logger    *slog.Logger
	jobs      repository.JobRepository
	extractor Extractor
	deliverer Deliverer
}

var _ async.Handler = (*Pipeline)(nil)

// New builds a pipeline. A nil deliverer reports every done result as not_configured.
func New(jobs repository.JobRepository, extractor Extractor, deliverer Deliverer, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{logger: logger, jobs: jobs, extractor: extractor, deliverer: deliverer}
}

// Run extracts jobID, delivers the result when it is done, and returns the
// job as stored after the attempt.
func (p *Pipeline) Run(ctx context.Context, jobID string) (Outcome, error) {
	var out Outcome
	log := p.logger.With("job_id", jobID)
	if rid := common.RequestIDFromContext(ctx); rid != "" {
		log = log.With("request_id", rid)
	}

	res, err := p.extractor.Process(ctx, jobID)
	if err != nil {
		log.Error("pipeline extract stage failed", "error", err)
		return out, err
	}
	out.Extraction = res
	log.Debug("pipeline extract stage finished", "status", res.Status, "ocr_status", res.OCRStatus)

	out.Delivery = p.deliver(ctx, res)

	job, err := p.jobs.Get(ctx, jobID)
	if err != nil {
		log.Error("pipeline reload failed", "error", err)
		return out, err
	}
	out.Job = job
	return out, nil
}

// Handle satisfies async.Handler so queued work runs the full pipeline.
func (p *Pipeline) Handle(ctx context.Context, jobID string) error {
	_, err := p.Run(ctx, jobID)
	return err
}

func (p *Pipeline) deliver(ctx context.Context, res entity.ExtractionResult) entity.DeliveryOutcome {
	if res.Status != constants.JobStatusDone {
		return entity.DeliveryOutcome{Status: constants.DeliverySkipped}
	}
	if p.deliverer == nil {
		return entity.DeliveryOutcome{Status: constants.DeliveryNotConfigured}
	}
	outcome := p.deliverer.Deliver(ctx, res)
	p.logger.Debug("pipeline delivery stage finished", "job_id", res.JobID, "delivery_status", outcome.Status)
	return outcome
}
