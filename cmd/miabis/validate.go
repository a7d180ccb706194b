package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/miabis/miabis/internal/config"
	"github.com/miabis/miabis/internal/platform/db"
	"github.com/miabis/miabis/internal/platform/validation"
)

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [file-or-dir]",
		Short: "Validate bundles with the HL7 FHIR validator against the MIABIS IG",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			skipSetup, _ := cmd.Flags().GetBool("skip-setup")
			noHistory, _ := cmd.Flags().GetBool("no-history")

			input := cfg.BundlesDir
			if len(args) == 1 {
				input = args[0]
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var recorder validation.Recorder
			if cfg.HistoryEnabled() && !noHistory {
				store, closeStore, err := openHistory(ctx, cfg, logger)
				if err != nil {
					logger.Warn().Err(err).Msg("validation history unavailable, continuing without it")
				} else {
					defer closeStore()
					recorder = store
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "MIABIS on FHIR - Batch Validation")
			fmt.Fprintf(out, "  Input: %s\n", input)

			orch := validation.New(cfg.ValidationOptions(), validation.Deps{
				Recorder: recorder,
				Out:      out,
			}, logger)
			report, err := orch.Run(ctx, input, skipSetup)
			if report != nil {
				fmt.Fprintf(out, "\n  Reports directory: %s\n", cfg.ValidationOptions().ReportsDir())
				fmt.Fprintf(out, "  Summary:           %s\n", report.SummaryPath)
			}
			return err
		},
	}

	cmd.Flags().Bool("skip-setup", false, "Reuse the existing IG checkout and validator")
	cmd.Flags().Bool("no-history", false, "Do not record this run in the history store")
	return cmd
}

// openHistory opens the configured history database and runs its migrations.
func openHistory(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*db.HistoryStore, func(), error) {
	conn, err := db.Open(ctx, cfg.HistoryDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open history: %w", err)
	}
	store, err := db.NewHistoryStore(ctx, conn)
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	logger.Debug().Str("dialect", string(conn.Dialect)).Msg("history store ready")
	return store, func() {
		if err := conn.Close(); err != nil {
			fmt.Fprintln(os.Stderr, "close history:", err)
		}
	}, nil
}
