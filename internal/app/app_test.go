package app_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/lantern/constants"
	"github.com/joseph-ayodele/lantern/internal/app"
	"github.com/joseph-ayodele/lantern/internal/common"
	"github.com/joseph-ayodele/lantern/internal/repository"
)

func testConfig(t *testing.T) *common.Config {
	t.Helper()
	dataDir := t.TempDir()
	return &common.Config{
		DataDir: dataDir,
		Store:   common.StoreConfig{Backend: repository.BackendSQLite, DSN: filepath.Join(dataDir, "lantern.db")},
		Server:  common.ServerConfig{HTTPAddr: "127.0.0.1:0"},
		OCR: common.OCRConfig{
			Tesseract:        "lantern-test-missing-tesseract",
			ArtifactCacheDir: filepath.Join(dataDir, "tmp"),
			MinConfidence:    0.45,
		},
		Delivery: common.DeliveryConfig{MaxAttempts: 1, Timeout: time.Second},
		Worker:   common.WorkerConfig{Workers: 1, QueueSize: 4, ProcessTimeout: time.Minute},
		Retry: common.RetryConfig{
			Schedule:      "",
			MinAge:        time.Minute,
			StaleAfter:    time.Minute,
			RequeuePolicy: "record",
		},
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Backend = "cassandra"
	_, err := app.New(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestApp_IngestWithoutOCRParksJob(t *testing.T) {
	ctx := context.Background()
	a, err := app.New(ctx, testConfig(t), nil)
	require.NoError(t, err)
	defer a.Close()

	rec, err := a.Ingest.SaveImage(ctx, []byte("jpeg"), "sheet.jpg", nil, constants.SourceCLI)
	require.NoError(t, err)

	out, err := a.Pipeline.Run(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusQueued, out.Job.Status)
	assert.Equal(t, constants.OCRStatusUnavailable, out.Extraction.OCRStatus)
	assert.Contains(t, out.Extraction.Message, "lantern-test-missing-tesseract")
	assert.Equal(t, constants.DeliveryStatus("skipped"), out.Delivery.Status)
}

func TestApp_RecoverStale(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Retry.StaleAfter = 0
	a, err := app.New(ctx, cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	rec, err := a.Jobs.Create(ctx, repository.NewJob{Source: constants.SourceCLI, ImagePath: "x.jpg"})
	require.NoError(t, err)
	require.NoError(t, a.Jobs.Update(ctx, rec.ID, constants.JobStatusProcessing))

	ids, err := a.RecoverStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{rec.ID}, ids)
}

func TestApp_ServeStopsOnCancel(t *testing.T) {
	a, err := app.New(context.Background(), testConfig(t), nil)
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}
}
