package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/lantern/constants"
	"github.com/joseph-ayodele/lantern/internal/common"
	"github.com/joseph-ayodele/lantern/internal/entity"
	"github.com/joseph-ayodele/lantern/internal/repository"
)

// exerciseJobRepository runs the behaviour every backend must share.
func exerciseJobRepository(t *testing.T, repo repository.JobRepository) {
	t.Helper()
	ctx := context.Background()

	t.Run("create assigns id and queued status", func(t *testing.T) {
		rec, err := repo.Create(ctx, repository.NewJob{
			Source:    constants.SourceEmail,
			Metadata:  map[string]any{"subject": "Route 14", "attempt": float64(2)},
			ImagePath: "data/inbox_raw/a_sheet.jpg",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, rec.ID)
		assert.Equal(t, constants.JobStatusQueued, rec.Status)
		assert.Nil(t, rec.Error)
		assert.Nil(t, rec.Extraction)

		got, err := repo.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, rec.ID, got.ID)
		assert.Equal(t, constants.SourceEmail, got.Source)
		assert.Equal(t, "Route 14", got.Metadata["subject"])
		assert.Equal(t, float64(2), got.Metadata["attempt"])
		assert.Equal(t, "data/inbox_raw/a_sheet.jpg", got.ImagePath)
		assert.True(t, rec.ReceivedAt.Equal(got.ReceivedAt))
	})

	t.Run("explicit id is kept", func(t *testing.T) {
		rec, err := repo.Create(ctx, repository.NewJob{ID: "fixed-id-1", Source: constants.SourceUpload})
		require.NoError(t, err)
		assert.Equal(t, "fixed-id-1", rec.ID)
	})

	t.Run("unknown source rejected", func(t *testing.T) {
		_, err := repo.Create(ctx, repository.NewJob{Source: "carrier-pigeon"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, common.ErrInvalidInput))
	})

	t.Run("duplicate id rejected and original kept", func(t *testing.T) {
		first, err := repo.Create(ctx, repository.NewJob{ID: "dup-id-1", Source: constants.SourceEmail, ImagePath: "first.jpg"})
		require.NoError(t, err)

		_, err = repo.Create(ctx, repository.NewJob{ID: "dup-id-1", Source: constants.SourceUpload, ImagePath: "second.jpg"})
		require.Error(t, err)
		assert.ErrorIs(t, err, repository.ErrJobExists)
		assert.ErrorIs(t, err, common.ErrConflict)

		got, err := repo.Get(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, "first.jpg", got.ImagePath)
		assert.Equal(t, constants.SourceEmail, got.Source)
	})

	t.Run("malformed id rejected", func(t *testing.T) {
		_, err := repo.Create(ctx, repository.NewJob{ID: "a/b c"})
		assert.ErrorIs(t, err, common.ErrInvalidInput)
	})

	t.Run("get unknown id", func(t *testing.T) {
		_, err := repo.Get(ctx, "does-not-exist")
		assert.ErrorIs(t, err, repository.ErrJobNotFound)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("update unknown id is a no-op", func(t *testing.T) {
		assert.NoError(t, repo.Update(ctx, "does-not-exist", constants.JobStatusDone))
		_, err := repo.Get(ctx, "does-not-exist")
		assert.ErrorIs(t, err, repository.ErrJobNotFound)
	})

	t.Run("update keeps omitted fields", func(t *testing.T) {
		rec, err := repo.Create(ctx, repository.NewJob{Source: constants.SourceUpload, ImagePath: "x.jpg"})
		require.NoError(t, err)

		res := entity.ExtractionResult{
			Status:    constants.JobStatusQueued,
			JobID:     rec.ID,
			OCRStatus: constants.OCRStatusUnavailable,
			Message:   "OCR unavailable",
		}
		require.NoError(t, repo.Update(ctx, rec.ID, constants.JobStatusQueued,
			repository.WithError("OCR unavailable"), repository.WithExtraction(res)))
		require.NoError(t, repo.Update(ctx, rec.ID, constants.JobStatusProcessing))

		got, err := repo.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, constants.JobStatusProcessing, got.Status)
		require.NotNil(t, got.Error)
		assert.Equal(t, "OCR unavailable", *got.Error)
		require.NotNil(t, got.Extraction)
		assert.Equal(t, constants.OCRStatusUnavailable, got.Extraction.OCRStatus)
		assert.Equal(t, "x.jpg", got.ImagePath)
		assert.False(t, got.UpdatedAt.Before(got.ReceivedAt))
	})

	t.Run("invalid status rejected", func(t *testing.T) {
		rec, err := repo.Create(ctx, repository.NewJob{})
		require.NoError(t, err)
		err = repo.Update(ctx, rec.ID, constants.JobStatus("lost"))
		assert.ErrorIs(t, err, common.ErrInvalidInput)
	})

	t.Run("list by status", func(t *testing.T) {
		a, err := repo.Create(ctx, repository.NewJob{Metadata: map[string]any{"list": "a"}})
		require.NoError(t, err)
		b, err := repo.Create(ctx, repository.NewJob{Metadata: map[string]any{"list": "b"}})
		require.NoError(t, err)
		require.NoError(t, repo.Update(ctx, a.ID, constants.JobStatusFailed, repository.WithError("boom")))
		require.NoError(t, repo.Update(ctx, b.ID, constants.JobStatusFailed, repository.WithError("boom")))

		failed, err := repo.ListByStatus(ctx, constants.JobStatusFailed)
		require.NoError(t, err)
		var ids []string
		for _, r := range failed {
			assert.Equal(t, constants.JobStatusFailed, r.Status)
			ids = append(ids, r.ID)
		}
		assert.Contains(t, ids, a.ID)
		assert.Contains(t, ids, b.ID)

		queued, err := repo.ListByStatus(ctx, constants.JobStatusQueued)
		require.NoError(t, err)
		for _, r := range queued {
			assert.NotEqual(t, a.ID, r.ID)
		}
	})

	t.Run("concurrent updates leave a valid record", func(t *testing.T) {
		rec, err := repo.Create(ctx, repository.NewJob{})
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, repo.Update(ctx, rec.ID, constants.JobStatusDone))
			}()
		}
		wg.Wait()

		got, err := repo.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, constants.JobStatusDone, got.Status)
	})
}
