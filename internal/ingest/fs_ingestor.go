package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/lantern/constants"
	"github.com/joseph-ayodele/lantern/internal/common"
)

// IngestPath reads a local image and stores it like an upload.
func (s *Service) IngestPath(ctx context.Context, path string, source constants.Source) (IngestionResult, error) {
	out := IngestionResult{SourcePath: path}

	abs, err := filepath.Abs(path)
	if err != nil {
		s.logger.Error("abs path error", "path", path, "error", err)
		return out, err
	}
	out.SourcePath = abs

	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !AllowedExt(ext) {
		s.logger.Warn("unsupported or missing extension", "path", abs, "ext", ext)
		return out, common.NewAppError("UNSUPPORTED_TYPE",
			fmt.Sprintf("unsupported or missing extension: %q", ext), common.ErrInvalidInput)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		s.logger.Error("read error", "path", abs, "error", err)
		return out, err
	}

	rec, err := s.SaveImage(ctx, data, filepath.Base(abs), map[string]any{"original_path": abs}, source)
	if err != nil {
		return out, err
	}

	out.JobID = rec.ID
	out.ImagePath = rec.ImagePath
	out.HashHex = hashHex(data)
	out.FileExt = ext
	out.ReceivedAt = rec.ReceivedAt
	return out, nil
}

// IngestDirectory walks root, skips hidden if requested,
// and calls IngestPath for each file. Returns per-file results + aggregate stats.
func (s *Service) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []IngestionResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		r, err := s.IngestPath(ctx, path, constants.SourceFolder)
		if err != nil {
			r.Err = err.Error()
			results = append(results, r)
			stats.Failed++
			return nil
		}
		results = append(results, r)
		stats.Succeeded++
		return nil
	})

	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	s.logger.Info("directory ingest finished",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed)
	return results, stats, nil
}
