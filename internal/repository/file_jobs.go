package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/joseph-ayodele/lantern/constants"
	"github.com/joseph-ayodele/lantern/internal/entity"
)

type fileJobRepo struct {
	dir string
	log *slog.Logger
	now func() time.Time

	mu sync.Mutex
}

// NewFileJobRepository keeps one JSON document per job under dir. Writes go
// through a temp file and rename so a reader never sees a partial record.
func NewFileJobRepository(dir string, log *slog.Logger) (JobRepository, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create job dir: %w", err)
	}
	return &fileJobRepo{dir: dir, log: log, now: time.Now}, nil
}

func (r *fileJobRepo) path(id string) string {
	return filepath.Join(r.dir, id+".json")
}

func (r *fileJobRepo) Create(_ context.Context, in NewJob) (*entity.JobRecord, error) {
	if err := validateNew(in); err != nil {
		return nil, err
	}
	if strings.ContainsAny(in.ID, `/\`) {
		return nil, fmt.Errorf("invalid job id %q", in.ID)
	}
	rec := newRecord(in, r.now())

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := os.Stat(r.path(rec.ID)); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrJobExists, rec.ID)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if err := r.write(rec); err != nil {
		r.log.Error("job create failed", "job_id", rec.ID, "err", err)
		return nil, err
	}
	r.log.Info("job created", "job_id", rec.ID, "source", rec.Source)
	return rec, nil
}

func (r *fileJobRepo) Get(_ context.Context, id string) (*entity.JobRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read(id)
}

func (r *fileJobRepo) Update(_ context.Context, id string, status constants.JobStatus, opts ...UpdateOption) error {
	if err := validateStatus(status); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.read(id)
	if errors.Is(err, ErrJobNotFound) {
		r.log.Debug("job update skipped; unknown id", "job_id", id)
		return nil
	}
	if err != nil {
		return err
	}
	applyUpdate(rec, status, r.now(), opts)
	if err := r.write(rec); err != nil {
		r.log.Error("job update failed", "job_id", id, "status", status, "err", err)
		return err
	}
	r.log.Debug("job updated", "job_id", id, "status", status)
	return nil
}

func (r *fileJobRepo) ListByStatus(_ context.Context, status constants.JobStatus) ([]*entity.JobRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, err
	}
	var out []*entity.JobRecord
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		rec, err := r.read(strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			r.log.Warn("skipping unreadable job file", "file", e.Name(), "err", err)
			continue
		}
		if rec.Status == status {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReceivedAt.Before(out[j].ReceivedAt) })
	return out, nil
}

func (r *fileJobRepo) Close() error { return nil }

func (r *fileJobRepo) read(id string) (*entity.JobRecord, error) {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return nil, ErrJobNotFound
	}
	b, err := os.ReadFile(r.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	var rec entity.JobRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &rec, nil
}

func (r *fileJobRepo) write(rec *entity.JobRecord) error {
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(r.dir, rec.ID+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), r.path(rec.ID))
}
