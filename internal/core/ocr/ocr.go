// Package ocr wraps the tesseract command line as the route-sheet OCR engine.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/lantern/constants"
	"github.com/joseph-ayodele/lantern/internal/common"
	"github.com/joseph-ayodele/lantern/internal/core/gps"
)

type Config struct {
	Tesseract     string // binary name or absolute path; if empty -> "tesseract"
	TesseractLang string // default "eng"
	TessdataDir   string
	PSM           int // e.g., 6 is good for uniform block of text
	OEM           int

	HeicConverter       string
	EnableTSVConfidence bool
	ArtifactCacheDir    string
}

// Recognition is the outcome of one OCR pass over an image. RawText is the
// engine output as read; Text is its Normalize form.
type Recognition struct {
	RawText    string
	Text       string
	Metadata   *gps.Metadata
	Confidence float32
	Method     string
	Language   string
	Duration   time.Duration
	Warnings   []string
}

// MetadataReader loads embedded location metadata from an image.
type MetadataReader func(path string) (*gps.Metadata, error)

type Extractor struct {
	cfg      Config
	runner   Runner
	lookPath LookPathFunc
	readMeta MetadataReader
	logger   *slog.Logger
}

type Option func(*Extractor)

// WithRunner replaces command execution, mainly for tests.
func WithRunner(r Runner) Option {
	return func(e *Extractor) {
		if r != nil {
			e.runner = r
		}
	}
}

// WithLookPath replaces PATH resolution, mainly for tests.
func WithLookPath(fn LookPathFunc) Option {
	return func(e *Extractor) {
		if fn != nil {
			e.lookPath = fn
		}
	}
}

func WithMetadataReader(fn MetadataReader) Option {
	return func(e *Extractor) {
		if fn != nil {
			e.readMeta = fn
		}
	}
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	e := &Extractor{
		cfg:      cfg,
		runner:   execRunner{},
		lookPath: exec.LookPath,
		readMeta: gps.ReadMetadata,
		logger:   logger,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// CheckAvailable probes for the tesseract binary. The returned error wraps
// common.ErrUnavailable and names the missing dependency.
func (e *Extractor) CheckAvailable(ctx context.Context) error {
	var missing []string
	if _, err := e.lookPath(e.cfg.Tesseract); err != nil {
		missing = append(missing, filepath.Base(e.cfg.Tesseract))
	}
	if e.cfg.HeicConverter != "" {
		if _, err := e.lookPath(e.cfg.HeicConverter); err != nil {
			e.logger.Debug("heic converter not found; heic uploads will fail", "converter", e.cfg.HeicConverter)
		}
	}
	if len(missing) > 0 {
		return common.NewAppError("OCR_UNAVAILABLE",
			"OCR unavailable; missing dependencies: "+strings.Join(missing, ", "), common.ErrUnavailable)
	}
	if _, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, e.logger, "--version"); err != nil {
		msg := strings.TrimSpace(string(errb))
		if msg == "" {
			msg = err.Error()
		}
		return common.NewAppError("OCR_UNAVAILABLE", "tesseract is not runnable: "+msg, common.ErrUnavailable)
	}
	return nil
}

// Recognize runs OCR over an image and reads its GPS metadata.
func (e *Extractor) Recognize(ctx context.Context, path string) (Recognition, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	e.logger.Debug("starting ocr", "path", path, "ext", ext)

	if _, err := os.Stat(path); err != nil {
		return Recognition{}, fmt.Errorf("open image: %w", err)
	}

	src := path
	var warns []string
	if constants.IsHEICExt(ext) {
		out, w, cleanup, err := convertHEICtoPNG(ctx, e.runner, e.logger, e.cfg.HeicConverter, path, e.cfg.ArtifactCacheDir)
		warns = append(warns, w...)
		if err != nil {
			e.logger.Error("heic conversion failed", "path", path, "error", err)
			return Recognition{Warnings: warns}, err
		}
		if cleanup != nil {
			defer cleanup()
		}
		src = out
	}

	raw, w, err := e.tesseract(ctx, src)
	warns = append(warns, w...)
	if err != nil {
		return Recognition{Warnings: warns}, err
	}
	txt := Normalize(raw)

	var engineConf float32
	if e.cfg.EnableTSVConfidence {
		if c, err := e.tsvConfidence(ctx, src); err == nil {
			engineConf = c
		} else {
			warns = append(warns, err.Error())
		}
	}

	meta, err := e.readMeta(path)
	if err != nil {
		warns = append(warns, "gps metadata: "+err.Error())
		meta = nil
	}

	rec := Recognition{
		RawText:    raw,
		Text:       txt,
		Metadata:   meta,
		Confidence: blend(engineConf, heuristicConfidence(txt)),
		Method:     "image-ocr",
		Language:   e.cfg.TesseractLang,
		Duration:   time.Since(start),
		Warnings:   warns,
	}
	e.logger.Debug("ocr finished",
		"path", path,
		"text_bytes", len(rec.Text),
		"confidence", rec.Confidence,
		"has_gps", meta != nil,
		"duration_ms", rec.Duration.Milliseconds(),
	)
	return rec, nil
}

func (e *Extractor) baseArgs(path string) []string {
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", fmt.Sprintf("%d", e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", fmt.Sprintf("%d", e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	return args
}

func (e *Extractor) tesseract(ctx context.Context, path string) (string, []string, error) {
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, e.logger, e.baseArgs(path)...)
	if err != nil {
		msg := strings.TrimSpace(string(errb))
		if msg != "" {
			return "", []string{msg}, fmt.Errorf("tesseract: %w: %s", err, msg)
		}
		return "", nil, fmt.Errorf("tesseract: %w", err)
	}
	return string(out), nil, nil
}

func (e *Extractor) tsvConfidence(ctx context.Context, path string) (float32, error) {
	out, _, err := e.runner.Run(ctx, e.cfg.Tesseract, e.logger, append(e.baseArgs(path), "tsv")...)
	if err != nil {
		return 0, fmt.Errorf("tesseract TSV: %w", err)
	}
	return meanTSVConfidence(string(out)), nil
}

// IsUnavailable reports whether err signals a missing OCR dependency.
func IsUnavailable(err error) bool {
	return errors.Is(err, common.ErrUnavailable)
}
