// Package main is the claim risk decisioning service entry point. It wires
// the policy store, the external fraud signal collaborators and the human
// review queue into the HTTP API.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/claim-risk-engine/internal/api"
	"github.com/claim-risk-engine/internal/config"
	"github.com/claim-risk-engine/internal/database"
	"github.com/claim-risk-engine/internal/domain"
	"github.com/claim-risk-engine/internal/repository"
	"github.com/claim-risk-engine/internal/review"
	"github.com/claim-risk-engine/internal/service"
	"github.com/claim-risk-engine/pkg/external"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := newLogger(cfg.Logging)

	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting claim risk decisioning service")

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	// Policy store
	db, err := database.NewConnection(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to policy database: %v", err)
	}
	defer db.Close()

	if err := runMigrations(configManager, cfg, logger); err != nil {
		logger.Fatalf("Failed to apply migrations: %v", err)
	}

	policies, err := repository.NewPolicyRepository(db.Pool, cfg.Pipeline.PolicyCacheSize, logger)
	if err != nil {
		logger.Fatalf("Failed to create policy repository: %v", err)
	}

	// Verdict cache is optional; an empty Redis URL disables it.
	var cache *external.VerdictCache
	if cfg.Cache.RedisURL != "" {
		cache, err = external.NewVerdictCache(cfg.Cache)
		if err != nil {
			logger.Fatalf("Failed to connect to verdict cache: %v", err)
		}
		defer cache.Close()
	}

	// External fraud signal collaborators. Each one is optional and the
	// scorer treats a missing collaborator as a silent signal.
	signals := external.NewResilientSignalClient(
		external.NewClassifierClient(cfg.Collaborators.Classifier),
		external.NewQualitativeClient(cfg.Collaborators.Qualitative),
		cache,
		logger,
	)

	var classifierSource domain.ClassifierSource
	if cfg.Collaborators.Classifier.BaseURL != "" {
		classifierSource = signals
	}
	var qualitativeAnalyzer domain.QualitativeAnalyzer
	if cfg.Collaborators.Qualitative.APIKey != "" {
		qualitativeAnalyzer = signals
	}
	var anomalyDetector domain.AnomalyDetector
	if cfg.Collaborators.Anomaly.BaseURL != "" {
		anomalyDetector = external.NewAnomalyClient(cfg.Collaborators.Anomaly)
	}
	watchlist := external.NewFileWatchlist(cfg.Collaborators.Watchlist.Dir)

	// Human review queue
	reviews, err := newReviewStore(ctx, cfg.Review)
	if err != nil {
		logger.Fatalf("Failed to open review store: %v", err)
	}
	defer reviews.Close()

	pipeline := service.NewPipeline(
		service.NewEntityResolver(logger),
		service.NewConsistencyValidator(logger),
		service.NewCoverageEvaluator(policies, logger),
		service.NewFraudScorer(
			classifierSource,
			qualitativeAnalyzer,
			watchlist,
			anomalyDetector,
			cfg.Collaborators.Watchlist.Threshold,
			cfg.Pipeline.CollaboratorTimeout,
			logger,
		),
		service.NewDecisionEngine(logger),
		logger,
	)

	checks := map[string]api.HealthCheck{
		"policy_db": db.Health,
	}
	if cache != nil {
		checks["cache"] = cache.Ping
	}

	// Start server
	server := api.NewServer(configManager, pipeline, reviews, checks, logger)
	if err := server.Start(ctx); err != nil {
		logger.Fatalf("Server failed: %v", err)
	}

	logger.Info("Server stopped")
}

// newLogger builds the process logger from the logging configuration.
func newLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	return logger
}

// runMigrations applies pending policy store migrations.
func runMigrations(manager *config.Manager, cfg *domain.Config, logger *logrus.Logger) error {
	runner, err := database.NewMigrationRunner(manager.GetDatabaseURL(), cfg.Database.MigrationsPath, logger)
	if err != nil {
		return err
	}
	defer runner.Close()

	return runner.Up()
}

// newReviewStore opens the configured review queue backend.
func newReviewStore(ctx context.Context, cfg domain.ReviewConfig) (review.Store, error) {
	switch cfg.Driver {
	case "postgres":
		store, err := review.NewPostgresStoreFromURL(cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	default:
		return review.NewSQLiteStore(cfg.SQLitePath)
	}
}
