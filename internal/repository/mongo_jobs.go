package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/joseph-ayodele/lantern/constants"
	"github.com/joseph-ayodele/lantern/internal/entity"
)

const collectionJobs = "jobs"

// jobDocument is the stored shape. Metadata and extraction are kept as JSON
// text so numeric types survive the round trip unchanged.
type jobDocument struct {
	ID         string    `bson:"_id"`
	ReceivedAt time.Time `bson:"received_at"`
	Source     string    `bson:"source"`
	Metadata   string    `bson:"metadata"`
	ImagePath  string    `bson:"image_path"`
	Status     string    `bson:"status"`
	Error      *string   `bson:"error,omitempty"`
	Extraction *string   `bson:"extraction,omitempty"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

type mongoJobRepo struct {
	client     *mongo.Client
	collection *mongo.Collection
	log        *slog.Logger
	now        func() time.Time
}

// NewMongoJobRepository connects to MongoDB and ensures the status index exists.
func NewMongoJobRepository(ctx context.Context, uri, database string, timeout time.Duration, log *slog.Logger) (JobRepository, error) {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	log.Info("connecting to mongodb", "database", database)

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout).
		SetRetryWrites(true).
		SetRetryReads(true)

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	coll := client.Database(database).Collection(collectionJobs)
	_, err = coll.Indexes().CreateOne(connectCtx, mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}, {Key: "received_at", Value: 1}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create jobs index: %w", err)
	}

	log.Info("successfully connected to mongodb")
	return &mongoJobRepo{client: client, collection: coll, log: log, now: time.Now}, nil
}

func (r *mongoJobRepo) Create(ctx context.Context, in NewJob) (*entity.JobRecord, error) {
	if err := validateNew(in); err != nil {
		return nil, err
	}
	rec := newRecord(in, r.now())
	md, err := encodeMetadata(rec.Metadata)
	if err != nil {
		return nil, err
	}
	doc := jobDocument{
		ID:         rec.ID,
		ReceivedAt: rec.ReceivedAt,
		Source:     string(rec.Source),
		Metadata:   md,
		ImagePath:  rec.ImagePath,
		Status:     string(rec.Status),
		UpdatedAt:  rec.UpdatedAt,
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: %s", ErrJobExists, rec.ID)
		}
		r.log.Error("job create failed", "job_id", rec.ID, "err", err)
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	r.log.Info("job created", "job_id", rec.ID, "source", rec.Source)
	// mongo keeps millisecond precision; return what a later Get would see
	rec.ReceivedAt = rec.ReceivedAt.Truncate(time.Millisecond)
	rec.UpdatedAt = rec.UpdatedAt.Truncate(time.Millisecond)
	return rec, nil
}

func (r *mongoJobRepo) Get(ctx context.Context, id string) (*entity.JobRecord, error) {
	var doc jobDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return doc.record()
}

func (r *mongoJobRepo) Update(ctx context.Context, id string, status constants.JobStatus, opts ...UpdateOption) error {
	if err := validateStatus(status); err != nil {
		return err
	}
	var u jobUpdate
	for _, o := range opts {
		o(&u)
	}
	set := bson.M{"status": string(status), "updated_at": r.now().UTC()}
	if u.errMsg != nil {
		set["error"] = *u.errMsg
	}
	if u.extraction != nil {
		ext, err := encodeExtraction(u.extraction)
		if err != nil {
			return err
		}
		set["extraction"] = *ext
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		r.log.Error("job update failed", "job_id", id, "status", status, "err", err)
		return fmt.Errorf("failed to update job: %w", err)
	}
	if res.MatchedCount == 0 {
		r.log.Debug("job update skipped; unknown id", "job_id", id)
		return nil
	}
	r.log.Debug("job updated", "job_id", id, "status", status)
	return nil
}

func (r *mongoJobRepo) ListByStatus(ctx context.Context, status constants.JobStatus) ([]*entity.JobRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "received_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"status": string(status)}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []jobDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode jobs: %w", err)
	}
	out := make([]*entity.JobRecord, 0, len(docs))
	for _, d := range docs {
		rec, err := d.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *mongoJobRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

func (r *mongoJobRepo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

func (d jobDocument) record() (*entity.JobRecord, error) {
	md, err := decodeMetadata(d.Metadata)
	if err != nil {
		return nil, err
	}
	ext, err := decodeExtraction(d.Extraction)
	if err != nil {
		return nil, err
	}
	return &entity.JobRecord{
		ID:         d.ID,
		ReceivedAt: d.ReceivedAt.UTC(),
		Source:     constants.Source(d.Source),
		Metadata:   md,
		ImagePath:  d.ImagePath,
		Status:     constants.JobStatus(d.Status),
		Error:      d.Error,
		Extraction: ext,
		UpdatedAt:  d.UpdatedAt.UTC(),
	}, nil
}
