package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/joseph-ayodele/lantern/internal/common"
	"github.com/joseph-ayodele/lantern/internal/core"
	"github.com/joseph-ayodele/lantern/internal/core/async"
	"github.com/joseph-ayodele/lantern/internal/core/ocr"
	"github.com/joseph-ayodele/lantern/internal/core/pipeline"
	"github.com/joseph-ayodele/lantern/internal/core/retry"
	"github.com/joseph-ayodele/lantern/internal/delivery"
	"github.com/joseph-ayodele/lantern/internal/entity"
	"github.com/joseph-ayodele/lantern/internal/export"
	"github.com/joseph-ayodele/lantern/internal/ingest"
	"github.com/joseph-ayodele/lantern/internal/repository"
	"github.com/joseph-ayodele/lantern/internal/server"
)

// App is the wired set of components shared by the daemon and the CLI.
type App struct {
	Config    *common.Config
	Logger    *slog.Logger
	Jobs      repository.JobRepository
	OCR       *ocr.Extractor
	Processor *core.Processor
	Sink      *delivery.Sink
	Pipeline  *pipeline.Pipeline
	Ingest    *ingest.Service
	Export    *export.Service
}

// New opens the store and builds every component from cfg.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	jobs, err := server.ConnectStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	extractor := ocr.NewExtractor(ocr.Config{
		Tesseract:           cfg.OCR.Tesseract,
		TesseractLang:       cfg.OCR.Lang,
		TessdataDir:         cfg.OCR.TessdataDir,
		PSM:                 cfg.OCR.PSM,
		HeicConverter:       cfg.OCR.HeicConverter,
		EnableTSVConfidence: cfg.OCR.EnableTSVConfidence,
		ArtifactCacheDir:    cfg.OCR.ArtifactCacheDir,
	}, logger)

	processor := core.NewProcessor(jobs, extractor, logger,
		core.WithMinConfidence(cfg.OCR.MinConfidence),
		core.WithRequeuePolicy(core.RequeuePolicy(cfg.Retry.RequeuePolicy)),
	)
	sink := delivery.NewSink(delivery.Config{
		InboxURL:    cfg.Delivery.InboxURL,
		Timeout:     cfg.Delivery.Timeout,
		MaxAttempts: cfg.Delivery.MaxAttempts,
		AckPath:     cfg.Delivery.AckPath,
	}, logger)

	ing, err := ingest.NewService(jobs, cfg.DataDir, logger)
	if err != nil {
		server.CloseStore(jobs, logger)
		return nil, err
	}

	return &App{
		Config:    cfg,
		Logger:    logger,
		Jobs:      jobs,
		OCR:       extractor,
		Processor: processor,
		Sink:      sink,
		Pipeline:  pipeline.New(jobs, processor, sink, logger),
		Ingest:    ing,
		Export:    export.NewService(jobs, logger),
	}, nil
}

func (a *App) Close() {
	server.CloseStore(a.Jobs, a.Logger)
}

// RecoverStale requeues jobs left in processing by a crashed run.
func (a *App) RecoverStale(ctx context.Context) ([]string, error) {
	return retry.RecoverStale(ctx, a.Jobs, a.Config.Retry.StaleAfter, time.Now(), a.Logger)
}

// Serve runs the HTTP and gRPC listeners, the worker queue, the retry
// scheduler and the optional drop folder until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	cfg := a.Config
	logger := a.Logger
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	if ids, err := a.RecoverStale(ctx); err != nil {
		logger.Error("stale job recovery failed", "error", err)
	} else if len(ids) > 0 {
		logger.Info("recovered stale jobs", "count", len(ids))
	}

	queue := async.NewProcessorQueue(a.Pipeline, logger,
		async.WithWorkers(cfg.Worker.Workers),
		async.WithQueueSize(cfg.Worker.QueueSize),
		async.WithProcessTimeout(cfg.Worker.ProcessTimeout),
	)
	scheduler := retry.NewScheduler(a.Jobs, queue, logger,
		retry.WithSchedule(cfg.Retry.Schedule),
		retry.WithMinAge(cfg.Retry.MinAge),
	)
	if err := scheduler.Start(ctx); err != nil {
		queue.Shutdown(context.Background())
		return err
	}

	errCh := make(chan error, 3)

	httpServer := &http.Server{
		Addr: cfg.Server.HTTPAddr,
		Handler: server.NewRouter(server.Dependencies{
			Jobs:     a.Jobs,
			Ingestor: a.Ingest,
			Runner:   a.Pipeline,
			Exporter: a.Export,
			OCRCheck: a.OCR.CheckAvailable,
			Logger:   logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("lantern http listening", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
	}()

	var stopGRPC func()
	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
			errCh <- err
		} else {
			grpcServer, hs := server.NewGRPCServer(server.NewJobsService(a.Jobs, a.Pipeline, logger), logger)
			go server.WatchOCRHealth(ctx, hs, a.OCR.CheckAvailable, time.Minute, logger)
			go func() {
				logger.Info("lantern grpc listening", "addr", cfg.Server.GRPCAddr)
				if err := grpcServer.Serve(lis); err != nil {
					errCh <- fmt.Errorf("grpc serve: %w", err)
				}
			}()
			stopGRPC = grpcServer.GracefulStop
		}
	}

	if cfg.WatchDir != "" {
		go func() {
			err := a.Ingest.WatchDropFolder(ctx, cfg.WatchDir, func(rec *entity.JobRecord) {
				if err := queue.Enqueue(ctx, async.Job{JobID: rec.ID, Reason: string(rec.Source)}); err != nil {
					logger.Warn("drop folder enqueue failed", "job_id", rec.ID, "error", err)
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("drop folder: %w", err)
			}
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		logger.Error("listener failed, shutting down", "error", serveErr)
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	if stopGRPC != nil {
		stopGRPC()
	}
	scheduler.Stop(shutdownCtx)
	queue.Shutdown(shutdownCtx)
	logger.Info("lantern stopped")
	return serveErr
}
