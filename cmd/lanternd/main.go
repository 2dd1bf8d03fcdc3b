package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joseph-ayodele/lantern/internal/app"
	"github.com/joseph-ayodele/lantern/internal/common"
)

func main() {
	cfg := common.LoadConfig()
	logger := cfg.Log.NewLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start lantern", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := a.OCR.CheckAvailable(ctx); err != nil {
		logger.Warn("ocr unavailable at startup; jobs will stay queued", "error", err)
	}

	if err := a.Serve(ctx); err != nil {
		logger.Error("lantern exited with error", "error", err)
		a.Close()
		os.Exit(1)
	}
}
