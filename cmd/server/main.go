package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"bibliobalance/internal/catalog"
	"bibliobalance/internal/config"
	"bibliobalance/internal/database"
	"bibliobalance/internal/handlers"
	"bibliobalance/internal/logging"
	"bibliobalance/internal/repository"
	"bibliobalance/internal/security"
	"bibliobalance/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startup := handlers.NewStartupStatus()

	// Initialize database with config (supports sqlite, postgres, mysql)
	startup.SetCurrentStep(handlers.StepDatabase)
	db, err := database.InitializeWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	startup.CompleteStep(handlers.StepDatabase)
	logger.Info("Database connection established", zap.String("type", cfg.DatabaseType))

	startup.SetCurrentStep(handlers.StepMigrations)
	applied, err := db.RunMigrations(ctx)
	if err != nil {
		return err
	}
	startup.CompleteStep(handlers.StepMigrations)
	logger.Info("Migrations completed", zap.Int("applied", applied))

	startup.SetCurrentStep(handlers.StepServices)
	svc, err := buildServices(ctx, cfg, db, logger)
	if err != nil {
		return err
	}
	startup.CompleteStep(handlers.StepServices)

	handler := handlers.Routes(svc, handlers.RouterOptions{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRequests:  cfg.RateLimitRequests,
		RateLimitWindow:    cfg.RateLimitWindow,
		OAuth:              handlers.NewOAuthSettings(cfg),
	}, startup, logger)

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting", zap.String("addr", addr), zap.String("environment", cfg.Environment))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()
	startup.MarkReady()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

func buildServices(ctx context.Context, cfg *config.Config, db *database.DB, logger *zap.Logger) (handlers.Services, error) {
	tokens, err := security.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return handlers.Services{}, fmt.Errorf("failed to create token manager: %w", err)
	}

	emailService, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, logger)
	if err != nil {
		return handlers.Services{}, fmt.Errorf("failed to create email service: %w", err)
	}

	profileRepo := repository.NewProfileRepository(db)
	bookRepo := repository.NewBookRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	statsService := service.NewStatsService(bookRepo, statsRepo, profileRepo, emailService, logger)

	return handlers.Services{
		Auth:     service.NewAuthService(profileRepo, tokens, emailService, logger),
		Books:    service.NewBookService(bookRepo, statsService, logger),
		Stats:    statsService,
		Profiles: service.NewProfileService(profileRepo, logger),
		Catalog: catalog.NewClient(catalog.Options{
			BaseURL:           cfg.OpenLibraryURL,
			Timeout:           cfg.CatalogTimeout,
			RequestsPerSecond: cfg.CatalogRequestsPerSecond,
		}, logger.Named("catalog")),
	}, nil
}
