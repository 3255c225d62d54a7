package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bibliobalance/internal/config"
	"bibliobalance/internal/database"
	"bibliobalance/internal/logging"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type migrator struct {
	db       *database.DB
	provider *goose.Provider
	logger   *zap.Logger
}

func rootCmd() *cobra.Command {
	m := &migrator{}

	cmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the Biblio Balance database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if m.logger, err = logging.New(cfg.LogLevel, "console"); err != nil {
				return err
			}
			if m.db, err = database.InitializeWithConfig(cmd.Context(), cfg); err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			m.provider, err = m.db.NewMigrator()
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if m.db != nil {
				m.db.Close()
			}
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				results, err := m.provider.Up(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to run migrations: %w", err)
				}
				for _, r := range results {
					m.logger.Info("Applied migration",
						zap.Int64("version", r.Source.Version),
						zap.Duration("duration", r.Duration))
				}
				m.logger.Info("Migrations completed", zap.Int("applied", len(results)))
				return nil
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				r, err := m.provider.Down(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to rollback migration: %w", err)
				}
				m.logger.Info("Rolled back migration", zap.Int64("version", r.Source.Version))
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "List migrations and whether they have been applied",
			RunE: func(cmd *cobra.Command, args []string) error {
				statuses, err := m.provider.Status(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT\tFILE")
				for _, s := range statuses {
					applied := "-"
					if !s.AppliedAt.IsZero() {
						applied = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Source.Version, s.State, applied, s.Source.Path)
				}
				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				version, err := m.provider.GetDBVersion(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to get version: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Current migration version: %d\n", version)
				return nil
			},
		},
	)
	return cmd
}
