package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/lantern/internal/app"
	"github.com/joseph-ayodele/lantern/internal/common"
)

// flag names
const (
	flagDataDir = "data-dir"
	flagBackend = "store"
	flagLevel   = "log-level"
)

var (
	cfg    *common.Config
	logger *slog.Logger
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "lantern",
	Short: "Lantern - route sheet OCR intake",
	Long: `Lantern ingests photographed route sheets, extracts their fields with OCR
and delivers the results downstream. Settings come from the environment
(and a .env file); flags override them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg = common.LoadConfig()
		if v, _ := cmd.Flags().GetString(flagDataDir); v != "" {
			cfg.DataDir = v
			if cfg.Store.Backend == "sqlite" && !cmd.Flags().Changed(flagBackend) {
				cfg.Store.DSN = v + "/lantern.db"
			}
		}
		if v, _ := cmd.Flags().GetString(flagBackend); v != "" {
			cfg.Store.Backend = v
		}
		if v, _ := cmd.Flags().GetString(flagLevel); v != "" {
			cfg.Log.Level = v
		}
		logger = cfg.Log.NewLogger()
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	RootCmd.PersistentFlags().String(flagDataDir, "", "Data directory (env: DATA_DIR)")
	RootCmd.PersistentFlags().String(flagBackend, "", "Job store backend: sqlite|postgres|file|redis|mongo (env: STORE_BACKEND)")
	RootCmd.PersistentFlags().String(flagLevel, "", "Log level: debug|info|warn|error (env: LOG_LEVEL)")

	RootCmd.AddCommand(serveCmd)
	RootCmd.AddCommand(ingestCmd)
	RootCmd.AddCommand(processCmd)
	RootCmd.AddCommand(parseCmd)
	RootCmd.AddCommand(exportCmd)
	RootCmd.AddCommand(migrateCmd)
	RootCmd.AddCommand(requeueStaleCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return RootCmd.Execute()
}

// openApp wires the full application for commands that touch the store.
func openApp(ctx context.Context) (*app.App, error) {
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open lantern: %w", err)
	}
	return a, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
