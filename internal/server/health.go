package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/lantern/internal/repository"
)

// OCRHealthService is the gRPC health service name tracking OCR availability.
const OCRHealthService = "lantern.ocr"

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	if h.deps.OCRCheck != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := h.deps.OCRCheck(ctx); err != nil {
			body["ocr"] = "unavailable"
			body["ocr_error"] = err.Error()
		} else {
			body["ocr"] = "available"
		}
	}
	if p, ok := h.deps.Jobs.(repository.Pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			h.logger.Warn("store ping failed", "error", err)
			body["status"] = "degraded"
			body["store"] = "unavailable"
		} else {
			body["store"] = "ok"
		}
	}
	writeJSON(w, http.StatusOK, body)
}

// UpdateOCRHealth sets the lantern.ocr status from one availability probe.
func UpdateOCRHealth(ctx context.Context, hs *health.Server, check func(context.Context) error, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	status := healthpb.HealthCheckResponse_SERVING
	if check == nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	} else if err := check(ctx); err != nil {
		logger.Debug("ocr health probe failed", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	hs.SetServingStatus(OCRHealthService, status)
}

// WatchOCRHealth re-probes OCR every interval until ctx is done.
func WatchOCRHealth(ctx context.Context, hs *health.Server, check func(context.Context) error, interval time.Duration, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	UpdateOCRHealth(ctx, hs, check, logger)
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			UpdateOCRHealth(ctx, hs, check, logger)
		}
	}
}
