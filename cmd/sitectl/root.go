// Command sitectl is the operator CLI for the SoraSolar site datasets:
// classify prints group statistics, validate checks dataset integrity, and
// export writes classified groups for offline review.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sorasolar/site-api/internal/adapter/dataset"
	"github.com/sorasolar/site-api/internal/config"
	"github.com/sorasolar/site-api/internal/domain"
	"github.com/sorasolar/site-api/internal/observability"
)

var (
	cfg    *config.Config
	logger *slog.Logger

	rooftopsFlag string
	partnersFlag string
)

var rootCmd = &cobra.Command{
	Use:   "sitectl",
	Short: "Inspect and export the SoraSolar rooftop datasets",
	Long:  "Runs the geo-classification engine offline against the configured or given datasets, validates dataset integrity, and exports classified groups.",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		_ = godotenv.Load()

		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if rooftopsFlag != "" {
			c.RooftopsSource = rooftopsFlag
		}
		if partnersFlag != "" {
			c.PartnersSource = partnersFlag
		}
		cfg = c
		// Logs go to stderr so command output stays pipeable.
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		if cfg.LogLevel == "debug" {
			logger = observability.NewLogger(cfg.LogLevel, "text")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rooftopsFlag, "rooftops", "", "rooftop dataset file or URL (default: ROOFTOPS_SOURCE or embedded)")
	rootCmd.PersistentFlags().StringVar(&partnersFlag, "partners", "", "partner dataset file or URL (default: PARTNERS_SOURCE or embedded)")

	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(exportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newProvider(c *config.Config, l *slog.Logger) *dataset.Provider {
	return dataset.NewProvider(c.RooftopsSource, c.PartnersSource, c.DatasetTimeout, l)
}

// partitionerFor builds the configured partitioner for a strategy.
func partitionerFor(c *config.Config, s domain.Strategy) domain.Partitioner {
	if s == domain.StrategyCluster {
		return domain.NewClusterPartitioner(c.Clusters, c.ClusterThresholds)
	}
	return domain.NewGridPartitioner(c.MapCellSize, c.GridThresholds)
}

// strategyOrDefault parses s, falling back to the configured strategy when empty.
func strategyOrDefault(c *config.Config, s string) (domain.Strategy, error) {
	if s == "" {
		return c.MapStrategy, nil
	}
	return domain.ParseStrategy(s)
}
