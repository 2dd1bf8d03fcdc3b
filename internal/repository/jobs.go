package repository

import (
	"context"
	"fmt"
	"maps"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/lantern/constants"
	"github.com/joseph-ayodele/lantern/internal/common"
	"github.com/joseph-ayodele/lantern/internal/entity"
)

// ErrJobNotFound is returned by Get for an unknown id.
var ErrJobNotFound = fmt.Errorf("job: %w", common.ErrNotFound)

// ErrJobExists is returned by Create when the requested id is taken.
var ErrJobExists = fmt.Errorf("job: %w", common.ErrConflict)

// JobRepository persists one JobRecord per id. A returned write is visible
// to every later Get on the same store.
type JobRepository interface {
	Create(ctx context.Context, in NewJob) (*entity.JobRecord, error)
	Get(ctx context.Context, id string) (*entity.JobRecord, error)
	// Update sets status and any given optional fields. Unknown ids are a no-op.
	Update(ctx context.Context, id string, status constants.JobStatus, opts ...UpdateOption) error
	// ListByStatus returns matching jobs ordered by received_at.
	ListByStatus(ctx context.Context, status constants.JobStatus) ([]*entity.JobRecord, error)
	Close() error
}

// Pinger is implemented by stores backed by a remote or database connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewJob is the immutable part of a job supplied at creation.
type NewJob struct {
	ID        string // optional; a UUID is assigned when empty
	Source    constants.Source
	Metadata  map[string]any
	ImagePath string
}

type jobUpdate struct {
	errMsg     *string
	extraction *entity.ExtractionResult
}

// UpdateOption sets an optional field on Update. Omitted fields keep their value.
type UpdateOption func(*jobUpdate)

func WithError(msg string) UpdateOption {
	return func(u *jobUpdate) { u.errMsg = &msg }
}

func WithExtraction(res entity.ExtractionResult) UpdateOption {
	return func(u *jobUpdate) { u.extraction = &res }
}

func newRecord(in NewJob, now time.Time) *entity.JobRecord {
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	src := in.Source
	if src == "" {
		src = constants.SourceUpload
	}
	md := map[string]any{}
	maps.Copy(md, in.Metadata)
	now = now.UTC()
	return &entity.JobRecord{
		ID:         id,
		ReceivedAt: now,
		Source:     src,
		Metadata:   md,
		ImagePath:  in.ImagePath,
		Status:     constants.JobStatusQueued,
		UpdatedAt:  now,
	}
}

func applyUpdate(rec *entity.JobRecord, status constants.JobStatus, now time.Time, opts []UpdateOption) {
	var u jobUpdate
	for _, o := range opts {
		o(&u)
	}
	rec.Status = status
	if u.errMsg != nil {
		rec.Error = u.errMsg
	}
	if u.extraction != nil {
		rec.Extraction = u.extraction
	}
	rec.UpdatedAt = now.UTC()
}

// JobIDPattern is the accepted shape of a job id; ids double as file and key names.
var JobIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,127}$`)

func validateNew(in NewJob) error {
	v := common.NewValidator()
	if in.ID != "" {
		v.Field("id", in.ID, common.Matches(JobIDPattern, "must be letters, digits, '.', '_' or '-'"))
	}
	if in.Source != "" {
		v.Field("source", string(in.Source), common.OneOf(
			string(constants.SourceUpload),
			string(constants.SourceEmail),
			string(constants.SourceFolder),
			string(constants.SourceCLI),
		))
	}
	return v.AsAppError()
}

func validateStatus(status constants.JobStatus) error {
	if !status.Valid() {
		return common.NewAppError("VALIDATION_ERROR", fmt.Sprintf("unknown job status %q", status), common.ErrInvalidInput)
	}
	return nil
}
