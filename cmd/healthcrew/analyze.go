package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/healthcrew/healthcrew/internal/config"
	"github.com/healthcrew/healthcrew/internal/engine"
	"github.com/healthcrew/healthcrew/internal/investigate"
	"github.com/healthcrew/healthcrew/internal/kb"
	"github.com/healthcrew/healthcrew/internal/snapshot"
	"github.com/healthcrew/healthcrew/internal/sshexec"
)

const metricsAddr = ":9091"

var (
	analyzeSnapshotPath string
	analyzeJSON         bool
	analyzeInterval     time.Duration
)

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeSnapshotPath, "snapshot", "s", "-", "snapshot file path, or - for stdin")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "emit the report as JSON instead of the console summary")
	analyzeCmd.Flags().DurationVar(&analyzeInterval, "interval", 0, "re-analyze the snapshot file periodically (0 = run once)")
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a cluster health snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		return runAnalyze(cfg)
	},
}

func runAnalyze(cfg *config.Config) error {
	knowledge, err := kb.Load()
	if err != nil {
		return fmt.Errorf("load knowledge base: %w", err)
	}
	if cfg.KBOverridePath != "" {
		if err := knowledge.ReloadPatterns(cfg.KBOverridePath); err != nil {
			log.Warn().Err(err).Str("path", cfg.KBOverridePath).Msg("Pattern override not loaded, using built-in table")
		}
	}

	store := openStore(cfg)
	exec, cleanup, err := buildExecutor(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	eng := engine.New(engine.Config{
		KB:                knowledge,
		Store:             store,
		Executor:          exec,
		MaxInvestigations: cfg.MaxInvestigations,
		Workers:           cfg.InvestigationWorkers,
		CommandTimeout:    cfg.CommandTimeout,
		OutputCap:         cfg.OutputCap,
	})

	if analyzeInterval <= 0 {
		snap, err := loadSnapshot(analyzeSnapshotPath)
		if err != nil {
			return err
		}
		return analyzeOnce(context.Background(), eng, snap)
	}
	return analyzeLoop(cfg, knowledge, eng)
}

// analyzeLoop re-reads and re-analyzes the snapshot file on a fixed interval
// until interrupted, serving Prometheus metrics and watching the pattern
// override file for edits.
func analyzeLoop(cfg *config.Config, knowledge *kb.KnowledgeBase, eng *engine.Engine) error {
	if analyzeSnapshotPath == "-" {
		return fmt.Errorf("--interval requires a snapshot file, not stdin")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.KBOverridePath != "" {
		watcher, err := kb.NewWatcher(knowledge, cfg.KBOverridePath)
		if err != nil {
			log.Warn().Err(err).Msg("Pattern override watcher not started")
		} else if err := watcher.Start(); err != nil {
			log.Warn().Err(err).Msg("Pattern override watcher not started")
		} else {
			defer watcher.Stop()
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: metricsAddr, Handler: mux}
	go func() {
		log.Info().Str("addr", metricsAddr).Msg("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Metrics server failed")
		}
	}()
	defer srv.Close()

	ticker := time.NewTicker(analyzeInterval)
	defer ticker.Stop()
	for {
		snap, err := loadSnapshot(analyzeSnapshotPath)
		if err != nil {
			log.Error().Err(err).Msg("Snapshot unreadable, retrying next interval")
		} else if err := analyzeOnce(ctx, eng, snap); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func analyzeOnce(ctx context.Context, eng *engine.Engine, snap *snapshot.Snapshot) error {
	rep, err := eng.Run(ctx, snap)
	if err != nil {
		return fmt.Errorf("analysis run: %w", err)
	}
	if analyzeJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	renderReport(os.Stdout, rep)
	return nil
}

func loadSnapshot(path string) (*snapshot.Snapshot, error) {
	if path == "-" {
		return snapshot.Decode(os.Stdin)
	}
	return snapshot.Load(path)
}

func buildExecutor(cfg *config.Config) (investigate.Executor, func(), error) {
	if cfg.Offline() {
		log.Info().Msg("No cluster host configured, investigations run in offline mode")
		return investigate.NopExecutor{}, func() {}, nil
	}
	client, err := sshexec.New(sshexec.Config{
		Host:    cfg.ClusterHost,
		User:    cfg.ClusterUser,
		KeyPath: cfg.ClusterKeyPath,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("ssh executor: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}
