package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/lantern/constants"
	"github.com/joseph-ayodele/lantern/internal/common"
	"github.com/joseph-ayodele/lantern/internal/entity"
	"github.com/joseph-ayodele/lantern/internal/repository"
)

// SheetName is the worksheet holding one row per extracted route sheet.
const SheetName = "Route Sheets"

// Headers lists the exported columns in order.
var Headers = []string{
	"Job ID",
	"Received At",
	"Source",
	"Route",
	"Site Name",
	"Address",
	"City",
	"Postal Code",
	"GPS Latitude",
	"GPS Longitude",
	"Service Days",
	"Time Open",
	"Time Closed",
	"Notes",
	"Salt Product",
	"Salt Amount",
	"Salt Unit",
	"Image Path",
}

// Service produces XLSX bytes for finished jobs.
type Service struct {
	jobs   repository.JobRepository
	logger *slog.Logger
}

func NewService(jobs repository.JobRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{jobs: jobs, logger: logger}
}

// ExportJobsXLSX returns a workbook with every done job received within the window.
// If only from is provided -> from..now.
// If only to is provided   -> beginning..to (inclusive).
// If neither is provided   -> all done jobs.
func (s *Service) ExportJobsXLSX(ctx context.Context, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	done, err := s.jobs.ListByStatus(ctx, constants.JobStatusDone)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("xlsx close failed", "error", err)
		}
	}()
	if _, err := f.NewSheet(SheetName); err != nil {
		return nil, err
	}
	activeIndex, _ := f.GetSheetIndex(SheetName)
	f.SetActiveSheet(activeIndex)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	for i, h := range Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
	}

	row := 2
	for _, job := range done {
		if job.Extraction == nil || !inWindow(job.ReceivedAt, from, to) {
			continue
		}
		for i, v := range rowValues(job) {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			_ = f.SetCellValue(SheetName, cell, v)
		}
		row++
	}

	_ = f.SetColWidth(SheetName, "A", "A", 38) // job id
	_ = f.SetColWidth(SheetName, "B", "B", 22) // received
	_ = f.SetColWidth(SheetName, "D", "H", 20)
	_ = f.SetColWidth(SheetName, "N", "N", 48) // notes
	_ = f.SetColWidth(SheetName, "R", "R", 60) // path

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: xlsx write: %w", common.ErrInternal, err)
	}

	s.logger.Info("export xlsx finished",
		"rows", row-2,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func rowValues(job *entity.JobRecord) []any {
	fl := job.Extraction.Fields
	return []any{
		job.ID,
		job.ReceivedAt.UTC().Format(time.RFC3339),
		string(job.Source),
		str(fl.Route),
		str(fl.SiteName),
		str(fl.Address),
		str(fl.City),
		str(fl.PostalCode),
		num(fl.GPSLatitude),
		num(fl.GPSLongitude),
		str(fl.ServiceDays),
		str(fl.TimeOpen),
		str(fl.TimeClosed),
		truncate(str(fl.Notes), 500),
		str(fl.SaltProduct),
		str(fl.SaltAmount),
		str(fl.SaltUnit),
		job.ImagePath,
	}
}

func inWindow(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func num(p *float64) any {
	if p == nil {
		return ""
	}
	return *p
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
