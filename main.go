package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/statforms/statforms-engine/pkg/config"
	"github.com/statforms/statforms-engine/pkg/database"
	"github.com/statforms/statforms-engine/pkg/handlers"
	"github.com/statforms/statforms-engine/pkg/logging"
	"github.com/statforms/statforms-engine/pkg/middleware"
	"github.com/statforms/statforms-engine/pkg/parsing"
	"github.com/statforms/statforms-engine/pkg/repositories"
	"github.com/statforms/statforms-engine/pkg/services"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "statforms-engine: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(Version)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		// pgx echoes the connection string in connect errors.
		return fmt.Errorf("connect to database: %s", logging.SanitizeError(err))
	}
	defer db.Close()

	if err := runMigrations(cfg, logger); err != nil {
		return err
	}

	fileRepo := repositories.NewFileRepository(db)
	recordRepo := repositories.NewRecordRepository(db)
	formRepo := repositories.NewFormRepository(db)
	logRepo := repositories.NewLogRepository(db)

	// Application logs above debug also land in the store for later review.
	logger, stopLogSink := logging.AttachStore(logger, logRepo, zapcore.InfoLevel)
	defer stopLogSink()

	normalizer, err := buildNormalizer(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := normalizer.Finalize(); err != nil {
			logger.Warn("Failed to persist normalizer cache", zap.Error(err))
		}
	}()

	coordinator := services.NewPersistenceCoordinator(fileRepo, recordRepo, cfg.Upload.ChunkSize, logger)
	uploadService := services.NewUploadService(
		fileRepo, formRepo, coordinator, normalizer,
		cfg.Upload.MaxFileBytes, cfg.Upload.Workers, logger,
	)
	queryService := services.NewQueryService(recordRepo)
	formService := services.NewFormService(formRepo)
	fileService := services.NewFileService(fileRepo, recordRepo, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewUploadHandler(uploadService, logger).RegisterRoutes(mux)
	handlers.NewFilterHandler(queryService, logger).RegisterRoutes(mux)
	handlers.NewFormHandler(formService, logger).RegisterRoutes(mux)
	handlers.NewFileHandler(fileService, logger).RegisterRoutes(mux)

	addr := fmt.Sprintf("%s:%s", cfg.BindAddr, cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting statforms-engine",
			zap.String("addr", addr),
			zap.String("version", cfg.Version),
			zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Graceful shutdown incomplete", zap.Error(err))
	}

	logger.Info("Server stopped")
	return nil
}

// runMigrations opens a separate database/sql connection for the migration
// runner, which needs the stdlib driver rather than the pgx pool.
func runMigrations(cfg *config.Config, logger *zap.Logger) error {
	migrationDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer migrationDB.Close()

	if err := database.RunMigrations(migrationDB, cfg.Database.MigrationsPath, logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func buildNormalizer(cfg *config.Config, logger *zap.Logger) (*parsing.Normalizer, error) {
	var oracle parsing.Oracle = parsing.NopOracle{}
	if path := cfg.Morphology.DictionaryPath; path != "" {
		dict, err := parsing.LoadDictionary(path)
		if err != nil {
			return nil, fmt.Errorf("load morphology dictionary: %w", err)
		}
		oracle = dict
		logger.Info("Loaded morphology dictionary", zap.String("path", path))
	}

	normalizer, err := parsing.NewNormalizer(cfg.Morphology.ManualMapPath, oracle)
	if err != nil {
		return nil, fmt.Errorf("create header normalizer: %w", err)
	}
	return normalizer, nil
}
