package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joseph-ayodele/lantern/constants"
	"github.com/joseph-ayodele/lantern/internal/entity"
)

const (
	redisKeyPrefix   = "lantern:job:"
	redisStatusIndex = "lantern:jobs:status:"
	redisTxRetries   = 10
)

type redisJobRepo struct {
	client *redis.Client
	log    *slog.Logger
	now    func() time.Time
}

// NewRedisJobRepository stores each job as a JSON string keyed by id, with a
// sorted set per status scored by received_at.
func NewRedisJobRepository(ctx context.Context, redisURL string, log *slog.Logger) (JobRepository, error) {
	if log == nil {
		log = slog.Default()
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &redisJobRepo{client: client, log: log, now: time.Now}, nil
}

func jobKey(id string) string { return redisKeyPrefix + id }

func statusKey(s constants.JobStatus) string { return redisStatusIndex + string(s) }

func (r *redisJobRepo) Create(ctx context.Context, in NewJob) (*entity.JobRecord, error) {
	if err := validateNew(in); err != nil {
		return nil, err
	}
	rec := newRecord(in, r.now())
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}

	ok, err := r.client.SetNX(ctx, jobKey(rec.ID), b, 0).Result()
	if err != nil {
		r.log.Error("job create failed", "job_id", rec.ID, "err", err)
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobExists, rec.ID)
	}
	if err := r.client.ZAdd(ctx, statusKey(rec.Status), redis.Z{Score: float64(rec.ReceivedAt.UnixNano()), Member: rec.ID}).Err(); err != nil {
		return nil, err
	}
	r.log.Info("job created", "job_id", rec.ID, "source", rec.Source)
	return rec, nil
}

func (r *redisJobRepo) Get(ctx context.Context, id string) (*entity.JobRecord, error) {
	return r.get(ctx, r.client, id)
}

func (r *redisJobRepo) get(ctx context.Context, c redis.Cmdable, id string) (*entity.JobRecord, error) {
	b, err := c.Get(ctx, jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
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

func (r *redisJobRepo) Update(ctx context.Context, id string, status constants.JobStatus, opts ...UpdateOption) error {
	if err := validateStatus(status); err != nil {
		return err
	}
	key := jobKey(id)
	txf := func(tx *redis.Tx) error {
		rec, err := r.get(ctx, tx, id)
		if err != nil {
			return err
		}
		prev := rec.Status
		applyUpdate(rec, status, r.now(), opts)
		b, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, 0)
			if prev != status {
				pipe.ZRem(ctx, statusKey(prev), id)
			}
			pipe.ZAdd(ctx, statusKey(status), redis.Z{Score: float64(rec.ReceivedAt.UnixNano()), Member: id})
			return nil
		})
		return err
	}

	for i := 0; i < redisTxRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		switch {
		case err == nil:
			r.log.Debug("job updated", "job_id", id, "status", status)
			return nil
		case errors.Is(err, ErrJobNotFound):
			r.log.Debug("job update skipped; unknown id", "job_id", id)
			return nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		default:
			r.log.Error("job update failed", "job_id", id, "status", status, "err", err)
			return err
		}
	}
	return fmt.Errorf("job %s: update contended after %d attempts", id, redisTxRetries)
}

func (r *redisJobRepo) ListByStatus(ctx context.Context, status constants.JobStatus) ([]*entity.JobRecord, error) {
	ids, err := r.client.ZRange(ctx, statusKey(status), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*entity.JobRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := r.Get(ctx, id)
		if errors.Is(err, ErrJobNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		// the index may briefly lag a concurrent update
		if rec.Status == status {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *redisJobRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *redisJobRepo) Close() error {
	return r.client.Close()
}
