package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/lantern/internal/common"
	"github.com/joseph-ayodele/lantern/internal/repository"
)

func (h *handlers) getJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")
	job, err := h.deps.Jobs.Get(r.Context(), id)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *handlers) extractJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")
	out, err := h.deps.Runner.Run(common.WithJobID(r.Context(), id), id)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newIngestResponse(out))
}

// JobsService implements the lantern.v1.Jobs gRPC service.
type JobsService struct {
	jobs   repository.JobRepository
	runner Runner
	logger *slog.Logger
}

var _ JobsServer = (*JobsService)(nil)

func NewJobsService(jobs repository.JobRepository, runner Runner, logger *slog.Logger) *JobsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobsService{jobs: jobs, runner: runner, logger: logger}
}

func (s *JobsService) GetJob(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	id := strings.TrimSpace(req.GetValue())
	if err := validateJobID(id); err != nil {
		return nil, err
	}
	job, err := s.jobs.Get(ctx, id)
	if err != nil {
		return nil, common.ToGRPCError(err)
	}
	return toStruct(job)
}

func (s *JobsService) ProcessJob(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	id := strings.TrimSpace(req.GetValue())
	if err := validateJobID(id); err != nil {
		return nil, err
	}
	s.logger.Info("process job requested", "job_id", id)
	out, err := s.runner.Run(common.WithJobID(ctx, id), id)
	if err != nil {
		s.logger.Warn("process job failed", "job_id", id, "error", err)
		return nil, common.ToGRPCError(err)
	}
	return toStruct(out.Extraction)
}

func validateJobID(id string) error {
	return common.ValidateAndReturnError(common.NewValidator().
		Field("id", id, common.Required, common.Matches(repository.JobIDPattern, "is not a valid job id")))
}

// toStruct converts a JSON-tagged value into a protobuf Struct.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, common.InternalErrorf("encode response: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, common.InternalErrorf("encode response: %v", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, common.InternalErrorf("encode response: %v", err)
	}
	return out, nil
}
