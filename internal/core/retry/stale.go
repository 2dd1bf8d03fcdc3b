package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/lantern/constants"
	"github.com/joseph-ayodele/lantern/internal/repository"
)

// RecoverStale moves jobs stuck in processing since before now-staleAfter back
// to queued, recording why. It returns the ids it recovered.
func RecoverStale(
	ctx context.Context,
	jobs repository.JobRepository,
	staleAfter time.Duration,
	now time.Time,
	logger *slog.Logger,
) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	processing, err := jobs.ListByStatus(ctx, constants.JobStatusProcessing)
	if err != nil {
		return nil, err
	}
	cutoff := now.UTC().Add(-staleAfter)

	var recovered []string
	for _, job := range processing {
		if job.UpdatedAt.After(cutoff) {
			continue
		}
		if err := jobs.Update(ctx, job.ID, constants.JobStatusQueued,
			repository.WithError(constants.ErrMsgStaleProcessing)); err != nil {
			return recovered, err
		}
		logger.Warn("recovered stale processing job", "job_id", job.ID, "updated_at", job.UpdatedAt)
		recovered = append(recovered, job.ID)
	}
	return recovered, nil
}
