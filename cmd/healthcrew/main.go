package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/healthcrew/healthcrew/internal/config"
	"github.com/healthcrew/healthcrew/internal/learning"
	"github.com/healthcrew/healthcrew/internal/logging"
)

// Version information (set at build time with -ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var rootCmd = &cobra.Command{
	Use:     "healthcrew",
	Short:   "HealthCrew - cluster issue clustering and root-cause inference",
	Long:    `HealthCrew analyzes cluster health snapshots: it matches failures against known issues, clusters shared symptoms, runs diagnostics on one representative per group and learns recurring patterns across runs.`,
	Version: Version,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(learningCmd)
	rootCmd.AddCommand(suggestionsCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("HealthCrew %s\n", Version)
		if BuildTime != "unknown" {
			fmt.Printf("Built: %s\n", BuildTime)
		}
		if GitCommit != "unknown" {
			fmt.Printf("Commit: %s\n", GitCommit)
		}
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads configuration and initializes logging; shared by every
// subcommand that touches runtime state.
func setup() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	logging.Init(logging.Config{
		Format:    cfg.LogFormat,
		Level:     cfg.LogLevel,
		Component: "healthcrew",
	})
	return cfg, nil
}

func openStore(cfg *config.Config) *learning.Store {
	return learning.NewStore(learning.Config{
		Path:               cfg.LearningPath(),
		RetentionDays:      cfg.HistoryRetentionDays,
		PromotionThreshold: cfg.PromotionThreshold,
	})
}
