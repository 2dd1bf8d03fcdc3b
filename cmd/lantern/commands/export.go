package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const (
	flagOut  = "out"
	flagFrom = "from"
	flagTo   = "to"
)

func init() {
	exportCmd.Flags().StringP(flagOut, "o", "route-sheets.xlsx", "Output XLSX path")
	exportCmd.Flags().String(flagFrom, "", "Only jobs received on or after this date (YYYY-MM-DD)")
	exportCmd.Flags().String(flagTo, "", "Only jobs received on or before this date (YYYY-MM-DD)")
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write done jobs to an XLSX workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out, _ := cmd.Flags().GetString(flagOut)
		fromStr, _ := cmd.Flags().GetString(flagFrom)
		toStr, _ := cmd.Flags().GetString(flagTo)

		from, err := parseDate(fromStr, false)
		if err != nil {
			return fmt.Errorf("--from: %w", err)
		}
		to, err := parseDate(toStr, true)
		if err != nil {
			return fmt.Errorf("--to: %w", err)
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		xlsx, err := a.Export.ExportJobsXLSX(cmd.Context(), from, to)
		if err != nil {
			return err
		}
		if err := os.WriteFile(out, xlsx, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(xlsx))
		return nil
	},
}

// parseDate reads YYYY-MM-DD; endOfDay moves the result to the last instant of that day.
func parseDate(s string, endOfDay bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", s, err)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
