package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/joseph-ayodele/lantern/constants"
	"github.com/joseph-ayodele/lantern/internal/common"
	"github.com/joseph-ayodele/lantern/internal/entity"
)

const jobsTable = "jobs"

var jobColumns = []string{"id", "received_at", "source", "metadata", "image_path", "status", "error", "extraction", "updated_at"}

type sqlJobRepo struct {
	db  *DB
	log *slog.Logger
	now func() time.Time
}

// NewSQLJobRepository stores jobs in the jobs table of a Postgres or SQLite database.
func NewSQLJobRepository(db *DB, log *slog.Logger) JobRepository {
	if log == nil {
		log = slog.Default()
	}
	return &sqlJobRepo{db: db, log: log, now: time.Now}
}

func (r *sqlJobRepo) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.db.Dialect)
}

func (r *sqlJobRepo) Create(ctx context.Context, in NewJob) (*entity.JobRecord, error) {
	if err := validateNew(in); err != nil {
		return nil, err
	}
	rec := newRecord(in, r.now())
	md, err := encodeMetadata(rec.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}

	query, args := r.builder().
		Insert(jobsTable).
		Columns("id", "received_at", "source", "metadata", "image_path", "status", "updated_at").
		Values(rec.ID, formatTime(rec.ReceivedAt), string(rec.Source), md, rec.ImagePath, string(rec.Status), formatTime(rec.UpdatedAt)).
		Query()
	if err := r.db.Driver.Exec(ctx, query, args, nil); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrJobExists, rec.ID)
		}
		r.log.Error("job create failed", "job_id", rec.ID, "err", err)
		return nil, fmt.Errorf("%w: insert job: %w", common.ErrDatabase, err)
	}
	r.log.Info("job created", "job_id", rec.ID, "source", rec.Source)
	return rec, nil
}

func (r *sqlJobRepo) Get(ctx context.Context, id string) (*entity.JobRecord, error) {
	query, args := r.builder().
		Select(jobColumns...).
		From(entsql.Table(jobsTable)).
		Where(entsql.EQ("id", id)).
		Query()
	recs, err := r.query(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrJobNotFound
	}
	return recs[0], nil
}

func (r *sqlJobRepo) Update(ctx context.Context, id string, status constants.JobStatus, opts ...UpdateOption) error {
	if err := validateStatus(status); err != nil {
		return err
	}
	var u jobUpdate
	for _, o := range opts {
		o(&u)
	}

	upd := r.builder().
		Update(jobsTable).
		Set("status", string(status)).
		Set("updated_at", formatTime(r.now()))
	if u.errMsg != nil {
		upd.Set("error", *u.errMsg)
	}
	if u.extraction != nil {
		ext, err := encodeExtraction(u.extraction)
		if err != nil {
			return fmt.Errorf("encode extraction: %w", err)
		}
		upd.Set("extraction", *ext)
	}
	query, args := upd.Where(entsql.EQ("id", id)).Query()

	var res sql.Result
	if err := r.db.Driver.Exec(ctx, query, args, &res); err != nil {
		r.log.Error("job update failed", "job_id", id, "status", status, "err", err)
		return fmt.Errorf("%w: update job: %w", common.ErrDatabase, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		r.log.Debug("job update skipped; unknown id", "job_id", id)
		return nil
	}
	r.log.Debug("job updated", "job_id", id, "status", status)
	return nil
}

func (r *sqlJobRepo) ListByStatus(ctx context.Context, status constants.JobStatus) ([]*entity.JobRecord, error) {
	query, args := r.builder().
		Select(jobColumns...).
		From(entsql.Table(jobsTable)).
		Where(entsql.EQ("status", string(status))).
		OrderBy("received_at").
		Query()
	return r.query(ctx, query, args)
}

func (r *sqlJobRepo) Ping(ctx context.Context) error {
	return r.db.HealthCheck(ctx, 0)
}

func (r *sqlJobRepo) Close() error {
	return r.db.Close()
}

func (r *sqlJobRepo) query(ctx context.Context, query string, args []any) ([]*entity.JobRecord, error) {
	var rows entsql.Rows
	if err := r.db.Driver.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("%w: query jobs: %w", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []*entity.JobRecord
	for rows.Next() {
		var (
			rec                       entity.JobRecord
			receivedAt, updatedAt, md string
			source, status            string
			errMsg, extraction        sql.NullString
		)
		if err := rows.Scan(&rec.ID, &receivedAt, &source, &md, &rec.ImagePath, &status, &errMsg, &extraction, &updatedAt); err != nil {
			return nil, err
		}
		if err := decodeRow(&rec, receivedAt, updatedAt, md, errMsg, extraction); err != nil {
			return nil, fmt.Errorf("decode job %s: %w", rec.ID, err)
		}
		rec.Source = constants.Source(source)
		rec.Status = constants.JobStatus(status)
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// isUniqueViolation reports a primary key clash from postgres (23505) or sqlite.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func decodeRow(rec *entity.JobRecord, receivedAt, updatedAt, md string, errMsg, extraction sql.NullString) error {
	var err error
	if rec.ReceivedAt, err = parseTime(receivedAt); err != nil {
		return err
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return err
	}
	if rec.Metadata, err = decodeMetadata(md); err != nil {
		return err
	}
	if errMsg.Valid {
		rec.Error = &errMsg.String
	}
	if extraction.Valid {
		if rec.Extraction, err = decodeExtraction(&extraction.String); err != nil {
			return err
		}
	}
	return nil
}
