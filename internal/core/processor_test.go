package core_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/lantern/constants"
	"github.com/joseph-ayodele/lantern/internal/common"
	"github.com/joseph-ayodele/lantern/internal/core"
	"github.com/joseph-ayodele/lantern/internal/core/gps"
	"github.com/joseph-ayodele/lantern/internal/core/ocr"
	"github.com/joseph-ayodele/lantern/internal/repository"
)

const (
	sheetText    = "Route: 22\nAddress: 123 Main St\nSpringfield\nIL 62704\nTime Open: 7|00 am"
	sheetRawText = "Route: 22\r\nAddress:\t123 Main St\r\nSpringfield\r\n\r\n\r\nIL 62704\nTime Open: 7|00 am\n"
)

type fakeEngine struct {
	availErr error
	rec      ocr.Recognition
	err      error
	onRun    func()
	calls    int
}

func (f *fakeEngine) CheckAvailable(context.Context) error { return f.availErr }

func (f *fakeEngine) Recognize(context.Context, string) (ocr.Recognition, error) {
	f.calls++
	if f.onRun != nil {
		f.onRun()
	}
	return f.rec, f.err
}

func newRepo(t *testing.T) repository.JobRepository {
	t.Helper()
	repo, err := repository.NewFileJobRepository(t.TempDir(), nil)
	require.NoError(t, err)
	return repo
}

func newJob(t *testing.T, repo repository.JobRepository, imagePath string) string {
	t.Helper()
	rec, err := repo.Create(context.Background(), repository.NewJob{Source: constants.SourceUpload, ImagePath: imagePath})
	require.NoError(t, err)
	return rec.ID
}

func unavailable() error {
	return common.NewAppError("OCR_UNAVAILABLE", "OCR unavailable; missing dependencies: tesseract", common.ErrUnavailable)
}

func TestProcess_Done(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	id := newJob(t, repo, "sheet.jpg")

	eng := &fakeEngine{rec: ocr.Recognition{
		RawText:    sheetRawText,
		Text:       sheetText,
		Confidence: 0.9,
		Metadata: &gps.Metadata{
			Latitude:     []gps.Rational{{Num: 40, Den: 1}, {Num: 30, Den: 1}, {Num: 0, Den: 1}},
			LatitudeRef:  "N",
			Longitude:    []gps.Rational{{Num: 89, Den: 1}, {Num: 39, Den: 1}, {Num: 0, Den: 1}},
			LongitudeRef: "W",
		},
	}}
	eng.onRun = func() {
		job, err := repo.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, constants.JobStatusProcessing, job.Status)
	}
	p := core.NewProcessor(repo, eng, nil)

	res, err := p.Process(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusDone, res.Status)
	assert.Equal(t, id, res.JobID)
	assert.Empty(t, res.OCRStatus)
	require.NotNil(t, res.RawText)
	assert.Equal(t, sheetRawText, *res.RawText)
	assert.Equal(t, "22", *res.Fields.Route)
	assert.Equal(t, "7:00AM", *res.Fields.TimeOpen)
	assert.InDelta(t, 40.5, *res.Fields.GPSLatitude, 1e-9)
	assert.InDelta(t, -89.65, *res.Fields.GPSLongitude, 1e-9)

	job, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusDone, job.Status)
	require.NotNil(t, job.Extraction)
	assert.Equal(t, constants.JobStatusDone, job.Extraction.Status)
	assert.Equal(t, "62704", *job.Extraction.Fields.PostalCode)
	assert.Nil(t, job.Error)
}

func TestProcess_LogsRecognitionDetails(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	repo := newRepo(t)
	id := newJob(t, repo, "sheet.jpg")
	eng := &fakeEngine{rec: ocr.Recognition{
		Text:       sheetText,
		Confidence: 0.9,
		Method:     "image-ocr",
		Language:   "eng",
		Warnings:   []string{"gps metadata: no exif"},
	}}

	_, err := core.NewProcessor(repo, eng, logger).Process(context.Background(), id)
	require.NoError(t, err)

	var line map[string]any
	for _, raw := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(raw, &entry))
		if entry["msg"] == "job extracted" {
			line = entry
		}
	}
	require.NotNil(t, line, buf.String())
	assert.Equal(t, id, line["job_id"])
	assert.Equal(t, "image-ocr", line["method"])
	assert.Equal(t, "eng", line["language"])
	assert.Equal(t, []any{"gps metadata: no exif"}, line["warnings"])
}

func TestProcess_LowConfidenceStillDone(t *testing.T) {
	repo := newRepo(t)
	id := newJob(t, repo, "sheet.jpg")
	eng := &fakeEngine{rec: ocr.Recognition{Text: "smudge", Confidence: 0.2}}

	res, err := core.NewProcessor(repo, eng, nil, core.WithMinConfidence(0.45)).Process(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusDone, res.Status)
	assert.Equal(t, constants.OCRStatusLowConfidence, res.OCRStatus)
}

func TestProcess_MissingImagePath(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	id := newJob(t, repo, "")
	eng := &fakeEngine{availErr: unavailable()}

	res, err := core.NewProcessor(repo, eng, nil).Process(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusFailed, res.Status)
	assert.Equal(t, "missing image_path", res.Error)
	assert.Nil(t, res.Fields.Route)
	assert.Zero(t, eng.calls)

	job, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusFailed, job.Status)
	require.NotNil(t, job.Error)
	assert.Equal(t, "missing image_path", *job.Error)
}

func TestProcess_UnavailableThenAvailable(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	id := newJob(t, repo, "sheet.jpg")

	avail := unavailable()
	eng := &fakeEngine{rec: ocr.Recognition{Text: sheetText, Confidence: 0.8}}
	p := core.NewProcessor(repo, eng, nil, core.WithCapabilityCheck(func(context.Context) error { return avail }))

	for i := 0; i < 2; i++ {
		res, err := p.Process(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, constants.JobStatusQueued, res.Status)
		assert.Equal(t, constants.OCRStatusUnavailable, res.OCRStatus)
		assert.Equal(t, "OCR unavailable; missing dependencies: tesseract", res.Message)
		assert.Nil(t, res.Fields.Address)

		job, err := repo.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, constants.JobStatusQueued, job.Status)
		require.NotNil(t, job.Extraction)
		assert.Equal(t, constants.OCRStatusUnavailable, job.Extraction.OCRStatus)
	}
	assert.Zero(t, eng.calls)

	avail = nil
	res, err := p.Process(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusDone, res.Status)

	job, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusDone, job.Status)
	// a recorded error is not cleared by success
	require.NotNil(t, job.Error)
	assert.Contains(t, *job.Error, "OCR unavailable")
}

func TestProcess_UnavailablePreservePolicy(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	id := newJob(t, repo, "sheet.jpg")
	require.NoError(t, repo.Update(ctx, id, constants.JobStatusFailed, repository.WithError("earlier failure")))

	eng := &fakeEngine{availErr: unavailable()}
	res, err := core.NewProcessor(repo, eng, nil, core.WithRequeuePolicy(core.RequeuePreserve)).Process(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusQueued, res.Status)

	job, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusQueued, job.Status)
	assert.Equal(t, "earlier failure", *job.Error)
	assert.Nil(t, job.Extraction)
}

func TestProcess_RecognizeError(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	id := newJob(t, repo, "corrupt.jpg")
	eng := &fakeEngine{err: errors.New("tesseract: exit status 1: Error in pixReadStream")}

	res, err := core.NewProcessor(repo, eng, nil).Process(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusFailed, res.Status)
	assert.Equal(t, constants.OCRStatusError, res.OCRStatus)
	assert.Equal(t, "tesseract: exit status 1: Error in pixReadStream", res.Error)
	assert.Nil(t, res.RawText)

	job, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusFailed, job.Status)
	assert.Equal(t, res.Error, *job.Error)
}

func TestProcess_RecognizeUnavailableRequeues(t *testing.T) {
	repo := newRepo(t)
	id := newJob(t, repo, "sheet.heic")
	eng := &fakeEngine{err: unavailable()}

	res, err := core.NewProcessor(repo, eng, nil).Process(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusQueued, res.Status)
}

func TestProcess_UnknownJob(t *testing.T) {
	_, err := core.NewProcessor(newRepo(t), &fakeEngine{}, nil).Process(context.Background(), "nope")
	assert.ErrorIs(t, err, repository.ErrJobNotFound)
}

func TestProcess_NoEngineIsUnavailable(t *testing.T) {
	repo := newRepo(t)
	id := newJob(t, repo, "sheet.jpg")

	res, err := core.NewProcessor(repo, nil, nil).Process(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, constants.JobStatusQueued, res.Status)
}
