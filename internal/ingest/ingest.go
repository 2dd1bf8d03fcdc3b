package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/lantern/constants"
	"github.com/joseph-ayodele/lantern/internal/common"
	"github.com/joseph-ayodele/lantern/internal/entity"
	"github.com/joseph-ayodele/lantern/internal/repository"
)

// RawDirName is the folder under the data dir that keeps original uploads.
const RawDirName = "inbox_raw"

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath string
	JobID      string
	ImagePath  string
	HashHex    string
	FileExt    string
	ReceivedAt time.Time
	Err        string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned   uint32
	Matched   uint32
	Succeeded uint32
	Failed    uint32
}

// Ingestor is the behavior the transports depend on.
type Ingestor interface {
	// SaveImage stores image bytes and creates a queued job for them.
	SaveImage(ctx context.Context, data []byte, filename string, metadata map[string]any, source constants.Source) (*entity.JobRecord, error)
	// IngestPath ingests a single file from disk.
	IngestPath(ctx context.Context, path string, source constants.Source) (IngestionResult, error)
	// IngestDirectory ingests all matching files under root.
	IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error)
}

// Service writes raw images below <dataDir>/inbox_raw and records jobs.
type Service struct {
	jobs   repository.JobRepository
	rawDir string
	logger *slog.Logger
	now    func() time.Time
}

var _ Ingestor = (*Service)(nil)

func NewService(jobs repository.JobRepository, dataDir string, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rawDir := filepath.Join(dataDir, RawDirName)
	if err := os.MkdirAll(rawDir, 0o755); err != nil {
		return nil, common.WrapError(err, "failed to create raw inbox directory")
	}
	return &Service{
		jobs:   jobs,
		rawDir: rawDir,
		logger: logger,
		now:    time.Now,
	}, nil
}

// RawDir returns the directory holding stored uploads.

func (s *Service) SaveImage(
	ctx context.Context,
	data []byte,
	filename string,
	metadata map[string]any,
	source constants.Source,
) (*entity.JobRecord, error) {
	if len(data) == 0 {
		return nil, common.NewAppError("EMPTY_UPLOAD", "Empty upload", common.ErrInvalidInput)
	}
	name := SanitizeFilename(filename)
	ext := constants.NormalizeExt(filepath.Ext(name))
	if !AllowedExt(ext) {
		return nil, common.NewAppError("UNSUPPORTED_TYPE",
			fmt.Sprintf("unsupported or missing extension: %q", ext), common.ErrInvalidInput)
	}

	id := uuid.NewString()
	imagePath := filepath.Join(s.rawDir, id+"_"+name)
	if err := writeFileAtomic(imagePath, data); err != nil {
		s.logger.Error("failed to store raw image", "path", imagePath, "error", err)
		return nil, common.WrapError(err, "failed to store image")
	}

	rec, err := s.jobs.Create(ctx, repository.NewJob{
		ID:        id,
		Source:    source,
		Metadata:  metadata,
		ImagePath: imagePath,
	})
	if err != nil {
		if rmErr := os.Remove(imagePath); rmErr != nil {
			s.logger.Warn("failed to remove orphaned image", "path", imagePath, "error", rmErr)
		}
		return nil, err
	}

	s.logger.Info("ingested route sheet",
		"job_id", rec.ID,
		"source", rec.Source,
		"bytes", len(data),
		"image_path", imagePath)
	return rec, nil
}

func hashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
