// Package main provides claimctl, the operator CLI for the claim risk
// decisioning service. It can evaluate a claim bundle offline against a
// policy file, seed the policy store and run schema migrations.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/claim-risk-engine/internal/api"
	"github.com/claim-risk-engine/internal/config"
	"github.com/claim-risk-engine/internal/database"
	"github.com/claim-risk-engine/internal/domain"
	"github.com/claim-risk-engine/internal/repository"
	"github.com/claim-risk-engine/internal/service"
	"github.com/claim-risk-engine/pkg/external"
)

func main() {
	root := &cobra.Command{
		Use:          "claimctl",
		Short:        "Operator CLI for the claim risk decisioning service",
		SilenceUsage: true,
	}

	root.AddCommand(newEvaluateCmd())
	root.AddCommand(newSeedPoliciesCmd())
	root.AddCommand(newMigrateCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// newEvaluateCmd evaluates one claim bundle offline. Policies come from a
// JSON file instead of the database, and the external fraud collaborators
// are disabled, so only the local rule signals contribute to the score.
func newEvaluateCmd() *cobra.Command {
	var bundlePath string
	var policiesPath string
	var watchlistDir string

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a claim bundle offline",
		RunE: func(cmd *cobra.Command, args []string) error {
			var bundle api.EvaluateRequest
			if err := readJSONFile(bundlePath, &bundle); err != nil {
				return fmt.Errorf("failed to read claim bundle: %w", err)
			}

			var policies []*domain.PolicyRecord
			if policiesPath != "" {
				if err := readJSONFile(policiesPath, &policies); err != nil {
					return fmt.Errorf("failed to read policies: %w", err)
				}
			}

			var watchlist domain.WatchlistSource
			if watchlistDir != "" {
				watchlist = external.NewFileWatchlist(watchlistDir)
			}

			logger := logrus.New()
			logger.SetLevel(logrus.WarnLevel)

			pipeline := service.NewPipeline(
				service.NewEntityResolver(logger),
				service.NewConsistencyValidator(logger),
				service.NewCoverageEvaluator(repository.NewMemoryPolicyStore(policies), logger),
				service.NewFraudScorer(nil, nil, watchlist, nil, 85, 10*time.Second, logger),
				service.NewDecisionEngine(logger),
				logger,
			)

			result := pipeline.Evaluate(cmd.Context(), bundle.ClaimID, bundle.Documents)

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(result)
		},
	}

	cmd.Flags().StringVar(&bundlePath, "bundle", "", "path to the claim bundle JSON file")
	cmd.Flags().StringVar(&policiesPath, "policies", "", "path to a JSON file with policy records")
	cmd.Flags().StringVar(&watchlistDir, "watchlist", "", "directory with watchlist files")
	cmd.MarkFlagRequired("bundle")

	return cmd
}

// newSeedPoliciesCmd loads policy records from a JSON file into the
// policy database.
func newSeedPoliciesCmd() *cobra.Command {
	var filePath string

	cmd := &cobra.Command{
		Use:   "seed-policies",
		Short: "Load policy records into the policy database",
		RunE: func(cmd *cobra.Command, args []string) error {
			var policies []*domain.PolicyRecord
			if err := readJSONFile(filePath, &policies); err != nil {
				return fmt.Errorf("failed to read policies: %w", err)
			}

			_, cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := database.NewConnection(cmd.Context(), cfg.Database, logger)
			if err != nil {
				return fmt.Errorf("failed to connect to policy database: %w", err)
			}
			defer db.Close()

			repo, err := repository.NewPolicyRepository(db.Pool, cfg.Pipeline.PolicyCacheSize, logger)
			if err != nil {
				return fmt.Errorf("failed to create policy repository: %w", err)
			}
			if err := repo.Seed(cmd.Context(), policies); err != nil {
				return fmt.Errorf("failed to seed policies: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d policies\n", len(policies))
			return nil
		},
	}

	cmd.Flags().StringVar(&filePath, "file", "", "path to a JSON file with policy records")
	cmd.MarkFlagRequired("file")

	return cmd
}

// newMigrateCmd applies or rolls back policy store schema migrations.
func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Run policy database schema migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			runner, err := database.NewMigrationRunner(manager.GetDatabaseURL(), cfg.Database.MigrationsPath, logger)
			if err != nil {
				return fmt.Errorf("failed to create migration runner: %w", err)
			}
			defer runner.Close()

			if args[0] == "down" {
				return runner.Down()
			}
			return runner.Up()
		},
	}

	return cmd
}

func loadConfig() (*config.Manager, *domain.Config, *logrus.Logger, error) {
	manager, err := config.NewManager()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := manager.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	return manager, manager.GetConfig(), logger, nil
}

func readJSONFile(path string, target interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}
