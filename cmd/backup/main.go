package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bibliobalance/internal/config"
	"bibliobalance/internal/database"
	"bibliobalance/internal/logging"
	"bibliobalance/internal/repository"
	"bibliobalance/internal/security"
	"bibliobalance/internal/service"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app is the state shared by every subcommand.
type app struct {
	cfg    *config.Config
	db     *database.DB
	logger *zap.Logger
}

func rootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "backup",
		Short:         "Export, import and seed Biblio Balance data",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	cmd.AddCommand(exportCmd(a), importCmd(a), seedCmd(a))
	return cmd
}

func (a *app) open(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel, "console")
	if err != nil {
		return err
	}

	db, err := database.InitializeWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	// Make sure the schema is current before touching data.
	if _, err := db.RunMigrations(ctx); err != nil {
		db.Close()
		return err
	}

	a.cfg, a.db, a.logger = cfg, db, logger
	return nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func exportCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every table to a JSON backup file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
			}
			if dir := filepath.Dir(output); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("failed to create output directory: %w", err)
				}
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create backup file: %w", err)
			}
			defer f.Close()

			a.logger.Info("Exporting database", zap.String("output", output))
			backup, err := service.NewBackupService(a.db, a.logger).Export(cmd.Context(), f)
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			if err := f.Sync(); err != nil {
				return err
			}

			info, err := f.Stat()
			if err != nil {
				return err
			}
			a.logger.Info("Export complete",
				zap.Int("profiles", len(backup.Profiles)),
				zap.Int("books", len(backup.Books)),
				zap.Float64("size_mb", float64(info.Size())/1024/1024))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path (default: backup_YYYYMMDD_HHMMSS.json)")
	return cmd
}

func importCmd(a *app) *cobra.Command {
	var (
		input     string
		clearData bool
		yes       bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a JSON backup file",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(input)
			if err != nil {
				return fmt.Errorf("failed to open backup file: %w", err)
			}
			defer f.Close()

			if clearData && !yes && !confirm(cmd, "WARNING: This will delete all existing data. Type 'yes' to confirm: ") {
				a.logger.Info("Import cancelled")
				return nil
			}

			a.logger.Info("Importing database", zap.String("input", input), zap.Bool("clear", clearData))
			backup, err := service.NewBackupService(a.db, a.logger).Import(cmd.Context(), f, clearData)
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}
			a.logger.Info("Import complete",
				zap.Int("profiles", len(backup.Profiles)),
				zap.Int("books", len(backup.Books)),
				zap.Int("challenges", len(backup.Challenges)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Input file path")
	cmd.Flags().BoolVar(&clearData, "clear", false, "Clear existing data before import (WARNING: destructive)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt for --clear")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func seedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the demo account with a sample library",
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := security.NewTokenManager(a.cfg.JWTSecret, a.cfg.TokenTTL)
			if err != nil {
				return err
			}

			profiles := repository.NewProfileRepository(a.db)
			books := repository.NewBookRepository(a.db)
			stats := service.NewStatsService(books, repository.NewStatsRepository(a.db), profiles, nil, a.logger)
			seeder := service.NewSeedService(
				service.NewAuthService(profiles, tokens, nil, a.logger),
				profiles,
				service.NewBookService(books, stats, a.logger),
				stats,
				a.logger,
			)

			res, err := seeder.SeedDemo(cmd.Context())
			if err != nil {
				return fmt.Errorf("seed failed: %w", err)
			}

			a.logger.Info("Seed completed",
				zap.Bool("created_profile", res.Created),
				zap.Int("books", res.Books),
				zap.Int("books_read", res.Stats.BooksRead))
			fmt.Fprintf(cmd.OutOrStdout(), "Demo credentials:\n   Email: %s\n   Password: %s\n", service.DemoEmail, service.DemoPassword)
			return nil
		},
	}
}

func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	return strings.TrimSpace(line) == "yes"
}
