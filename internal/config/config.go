// Package config loads runtime configuration from the environment, with an
// optional .env file for development setups. Values have working defaults;
// only cluster access needs explicit configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all runtime settings.
type Config struct {
	// Cluster access for live diagnostics. When Host is empty the engine
	// runs in offline mode: matching and learning only, no investigation
	// commands.
	ClusterHost    string
	ClusterUser    string
	ClusterKeyPath string

	// DataDir holds the learning document and pattern overrides.
	DataDir string

	// TrackerProjects limits which tracker projects are assessed.
	TrackerProjects []string

	HistoryRetentionDays int
	PromotionThreshold   int
	MaxInvestigations    int
	InvestigationWorkers int
	CommandTimeout       time.Duration
	OutputCap            int

	// KBOverridePath optionally replaces the built-in pattern table and is
	// watched for changes while running.
	KBOverridePath string

	LogLevel  string
	LogFormat string // auto, json or console
}

func defaults() *Config {
	return &Config{
		ClusterUser:          "core",
		DataDir:              defaultDataDir(),
		TrackerProjects:      []string{"CNV", "OCPBUGS"},
		HistoryRetentionDays: 30,
		PromotionThreshold:   3,
		MaxInvestigations:    10,
		InvestigationWorkers: 4,
		CommandTimeout:       5 * time.Second,
		OutputCap:            500,
		LogLevel:             "info",
		LogFormat:            "auto",
	}
}

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".healthcrew")
	}
	return ".healthcrew"
}

// Load builds the configuration from defaults, an optional .env file and
// environment variable overrides, in that order.
func Load() (*Config, error) {
	cfg := defaults()

	if envFile := os.Getenv("HEALTHCREW_ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded .env from working directory")
	}

	if host := os.Getenv("HEALTHCREW_CLUSTER_HOST"); host != "" {
		cfg.ClusterHost = host
	}
	if user := os.Getenv("HEALTHCREW_CLUSTER_USER"); user != "" {
		cfg.ClusterUser = user
	}
	if keyPath := os.Getenv("HEALTHCREW_CLUSTER_KEY"); keyPath != "" {
		cfg.ClusterKeyPath = keyPath
	}
	if dir := os.Getenv("HEALTHCREW_DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}
	if projects := os.Getenv("HEALTHCREW_TRACKER_PROJECTS"); projects != "" {
		cfg.TrackerProjects = splitList(projects)
	}
	if v := os.Getenv("HEALTHCREW_HISTORY_RETENTION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			cfg.HistoryRetentionDays = days
		} else {
			log.Warn().Str("value", v).Msg("Invalid HEALTHCREW_HISTORY_RETENTION_DAYS, using default")
		}
	}
	if v := os.Getenv("HEALTHCREW_PROMOTION_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PromotionThreshold = n
		} else {
			log.Warn().Str("value", v).Msg("Invalid HEALTHCREW_PROMOTION_THRESHOLD, using default")
		}
	}
	if v := os.Getenv("HEALTHCREW_MAX_INVESTIGATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxInvestigations = n
		}
	}
	if v := os.Getenv("HEALTHCREW_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.InvestigationWorkers = n
		}
	}
	if v := os.Getenv("HEALTHCREW_COMMAND_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.CommandTimeout = d
		} else {
			log.Warn().Str("value", v).Msg("Invalid HEALTHCREW_COMMAND_TIMEOUT, using default")
		}
	}
	if v := os.Getenv("HEALTHCREW_OUTPUT_CAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.OutputCap = n
		}
	}
	if path := os.Getenv("HEALTHCREW_KB_OVERRIDE"); path != "" {
		cfg.KBOverridePath = path
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = strings.ToLower(level)
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.LogFormat = strings.ToLower(format)
	}

	return cfg, nil
}

// LearningPath is the location of the persisted learning document.
func (c *Config) LearningPath() string {
	return filepath.Join(c.DataDir, "learning.json")
}

// Offline reports whether live cluster diagnostics are unavailable.
func (c *Config) Offline() bool {
	return c.ClusterHost == ""
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
