package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"entgo.io/ent/dialect"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/lantern/constants"
	"github.com/joseph-ayodele/lantern/internal/core/pipeline"
	"github.com/joseph-ayodele/lantern/internal/repository"
)

const (
	flagProcess    = "process"
	flagDir        = "dir"
	flagSkipHidden = "skip-hidden"
	flagSource     = "source"
)

func init() {
	ingestCmd.Flags().Bool(flagProcess, true, "Run extraction and delivery right after ingest")
	ingestCmd.Flags().Bool(flagDir, false, "Treat the argument as a directory and ingest every image below it")
	ingestCmd.Flags().Bool(flagSkipHidden, true, "Skip hidden files and directories when ingesting a directory")
	ingestCmd.Flags().String(flagSource, string(constants.SourceCLI), "Source tag recorded on the job: upload|email|folder|cli")
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Ingest a route sheet image from disk",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		process, _ := cmd.Flags().GetBool(flagProcess)
		isDir, _ := cmd.Flags().GetBool(flagDir)
		sourceStr, _ := cmd.Flags().GetString(flagSource)
		source, ok := constants.Canonicalize(sourceStr)
		if !ok {
			return fmt.Errorf("unknown source %q", sourceStr)
		}

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		var ids []string
		if isDir {
			skipHidden, _ := cmd.Flags().GetBool(flagSkipHidden)
			results, stats, err := a.Ingest.IngestDirectory(ctx, args[0], skipHidden)
			if err != nil {
				return err
			}
			for _, r := range results {
				if r.Err != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", r.SourcePath, r.Err)
					continue
				}
				ids = append(ids, r.JobID)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "scanned=%d matched=%d succeeded=%d failed=%d\n",
				stats.Scanned, stats.Matched, stats.Succeeded, stats.Failed)
		} else {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			rec, err := a.Ingest.SaveImage(ctx, data, args[0], map[string]any{"original_path": args[0]}, source)
			if err != nil {
				return err
			}
			ids = append(ids, rec.ID)
		}

		if !process {
			out := make([]any, 0, len(ids))
			for _, id := range ids {
				rec, err := a.Jobs.Get(ctx, id)
				if err != nil {
					return err
				}
				out = append(out, rec)
			}
			return printJSON(cmd.OutOrStdout(), out)
		}

		outcomes := make([]pipeline.Outcome, 0, len(ids))
		for _, id := range ids {
			o, err := a.Pipeline.Run(ctx, id)
			if err != nil {
				return fmt.Errorf("process %s: %w", id, err)
			}
			outcomes = append(outcomes, o)
		}
		return printJSON(cmd.OutOrStdout(), outcomes)
	},
}

var processCmd = &cobra.Command{
	Use:   "process <job-id>",
	Short: "Run extraction and delivery for a stored job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		out, err := a.Pipeline.Run(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), out)
	},
}

var requeueStaleCmd = &cobra.Command{
	Use:   "requeue-stale",
	Short: "Move jobs stuck in processing back to queued",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		ids, err := a.RecoverStale(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "requeued %d job(s)\n", len(ids))
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations for the sqlite or postgres store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		var sqlDialect string
		switch cfg.Store.Backend {
		case repository.BackendSQLite:
			if err := os.MkdirAll(filepath.Dir(cfg.Store.DSN), 0o755); err != nil {
				return err
			}
			sqlDialect = dialect.SQLite
		case repository.BackendPostgres:
			sqlDialect = dialect.Postgres
		default:
			return fmt.Errorf("store %q has no migrations", cfg.Store.Backend)
		}
		if err := repository.Migrate(sqlDialect, cfg.Store.DSN, logger); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}
