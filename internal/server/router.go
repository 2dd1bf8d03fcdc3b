package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/joseph-ayodele/lantern/internal/core/pipeline"
	"github.com/joseph-ayodele/lantern/internal/ingest"
	"github.com/joseph-ayodele/lantern/internal/repository"
)

// Runner executes the extraction pipeline for one job synchronously.
type Runner interface {
	Run(ctx context.Context, jobID string) (pipeline.Outcome, error)
}

// Exporter renders finished jobs as a spreadsheet.
type Exporter interface {
	ExportJobsXLSX(ctx context.Context, from, to *time.Time) ([]byte, error)
}

// Dependencies holds everything the HTTP handlers need.
type Dependencies struct {
	Jobs     repository.JobRepository
	Ingestor ingest.Ingestor
	Runner   Runner
	Exporter Exporter
	// OCRCheck reports a non-nil error while OCR cannot run.
	OCRCheck func(ctx context.Context) error
	// MaxUploadBytes caps request bodies on ingest routes. Zero means 25 MiB.
	MaxUploadBytes int64
	Logger         *slog.Logger
}

// NewRouter builds the chi router with middleware and all routes.
func NewRouter(deps Dependencies) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = 25 << 20
	}
	h := &handlers{deps: deps, logger: deps.Logger}

	r := chi.NewRouter()
	r.Use(requestLogger(deps.Logger))
	r.Use(recovery(deps.Logger))

	r.Get("/", h.uploadForm)
	r.Get("/health", h.health)

	r.Post("/ingest/image", h.ingestImage)
	r.Post("/ingest/email", h.ingestEmail)

	r.Get("/jobs/{jobID}", h.getJob)
	r.Post("/jobs/{jobID}/extract", h.extractJob)

	r.Get("/export.xlsx", h.exportXLSX)

	return r
}

type handlers struct {
	deps   Dependencies
	logger *slog.Logger
}

const uploadFormHTML = `<html>
  <head><title>Lantern Upload</title></head>
  <body>
    <h1>Lantern Ingest</h1>
    <form action="/ingest/image" method="post" enctype="multipart/form-data">
      <label for="file">Route sheet image:</label>
      <input type="file" id="file" name="file" accept="image/*" required />
      <button type="submit">Upload</button>
    </form>
  </body>
</html>
`

func (h *handlers) uploadForm(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(uploadFormHTML))
}
