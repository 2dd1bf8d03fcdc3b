package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/joseph-ayodele/lantern/constants"
	"github.com/joseph-ayodele/lantern/internal/core/pipeline"
	"github.com/joseph-ayodele/lantern/internal/entity"
	"github.com/joseph-ayodele/lantern/internal/ingest"
)

// IngestResponse is returned by both ingest routes and by re-extraction.
type IngestResponse struct {
	Status     string                  `json:"status"`
	Job        *entity.JobRecord       `json:"job"`
	Extraction entity.ExtractionResult `json:"extraction"`
	Delivery   entity.DeliveryOutcome  `json:"delivery"`
}

type emailIngestRequest struct {
	ImageBase64 string         `json:"image_base64"`
	Filename    string         `json:"filename"`
	Metadata    map[string]any `json:"metadata"`
}

func (h *handlers) ingestImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.deps.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "TOO_LARGE", "upload exceeds size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "MISSING_FILE", "multipart field \"file\" is required")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "READ_ERROR", "failed to read upload")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "EMPTY_UPLOAD", "Empty upload")
		return
	}

	filename := header.Filename
	if strings.TrimSpace(filename) == "" {
		filename = constants.DefaultImageFilename
	}
	h.ingestAndRun(w, r, data, filename, nil, constants.SourceUpload)
}

func (h *handlers) ingestEmail(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.deps.MaxUploadBytes)
	var req emailIngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "request body must be a JSON object")
		return
	}
	if req.ImageBase64 == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "image_base64 is required")
		return
	}
	if req.Filename == "" {
		req.Filename = constants.DefaultImageFilename
	}

	data, err := ingest.DecodeImagePayload(req.ImageBase64)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	h.ingestAndRun(w, r, data, req.Filename, req.Metadata, constants.SourceEmail)
}

func (h *handlers) ingestAndRun(
	w http.ResponseWriter,
	r *http.Request,
	data []byte,
	filename string,
	metadata map[string]any,
	source constants.Source,
) {
	rec, err := h.deps.Ingestor.SaveImage(r.Context(), data, filename, metadata, source)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	out, err := h.deps.Runner.Run(r.Context(), rec.ID)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newIngestResponse(out))
}

func newIngestResponse(out pipeline.Outcome) IngestResponse {
	return IngestResponse{
		Status:     "ok",
		Job:        out.Job,
		Extraction: out.Extraction,
		Delivery:   out.Delivery,
	}
}
