package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/miabis/miabis/internal/platform/db"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent validation runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.HistoryEnabled() {
				return fmt.Errorf("validation history is disabled (MIABIS_HISTORY_DSN is empty)")
			}

			ctx := context.Background()
			store, closeStore, err := openHistory(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			runs, err := store.Recent(ctx, limit)
			if err != nil {
				return err
			}
			printRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}
	cmd.Flags().Int("limit", 10, "Number of runs to show")
	return cmd
}

func printRuns(w io.Writer, runs []db.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No validation runs recorded.")
		return
	}
	fmt.Fprintf(w, "%-36s %-20s %-5s %-6s %-6s %-6s %-9s %s\n",
		"RUN", "STARTED", "EXIT", "FILES", "PASS", "FAIL", "CHECK LOG", "INPUT")
	for _, r := range runs {
		var pass, fail, check int
		for _, f := range r.Files {
			switch f.Status {
			case "PASS":
				pass++
			case "FAIL":
				fail++
			default:
				check++
			}
		}
		fmt.Fprintf(w, "%-36s %-20s %-5d %-6d %-6d %-6d %-9d %s\n",
			r.ID, r.StartedAt.UTC().Format("2006-01-02 15:04:05"), r.ExitCode,
			len(r.Files), pass, fail, check, r.Input)
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the validation history schema",
	}

	// migrate up
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := openHistoryDB(context.Background())
			if err != nil {
				return err
			}
			defer conn.Close()

			count, err := db.NewMigrator(conn).Up(context.Background())
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	})

	// migrate status
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := openHistoryDB(context.Background())
			if err != nil {
				return err
			}
			defer conn.Close()

			statuses, err := db.NewMigrator(conn).Status(context.Background())
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Fprintln(out, "---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	})

	return cmd
}

func openHistoryDB(ctx context.Context) (*db.DB, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.HistoryEnabled() {
		return nil, fmt.Errorf("validation history is disabled (MIABIS_HISTORY_DSN is empty)")
	}
	return db.Open(ctx, cfg.HistoryDSN)
}
