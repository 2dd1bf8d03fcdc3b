package server

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/lantern/internal/common"
	"github.com/joseph-ayodele/lantern/internal/repository"
)

// ConnectStore opens the configured job store, migrating SQL backends first.
func ConnectStore(ctx context.Context, cfg *common.Config, logger *slog.Logger) (repository.JobRepository, error) {
	logger.Info("connecting to job store", "backend", cfg.Store.Backend)
	jobs, err := repository.OpenJobRepository(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to connect to job store", "backend", cfg.Store.Backend, "error", err)
		return nil, err
	}
	logger.Info("successfully connected to job store", "backend", cfg.Store.Backend)
	return jobs, nil
}

// CloseStore closes the job store gracefully.
func CloseStore(jobs repository.JobRepository, logger *slog.Logger) {
	if jobs == nil {
		return
	}
	logger.Info("closing job store")
	if err := jobs.Close(); err != nil {
		logger.Error("failed to close job store", "error", err)
		return
	}
	logger.Info("job store closed")
}
