package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HistoryRetentionDays != 30 {
		t.Errorf("HistoryRetentionDays = %d, want 30", cfg.HistoryRetentionDays)
	}
	if cfg.PromotionThreshold != 3 {
		t.Errorf("PromotionThreshold = %d, want 3", cfg.PromotionThreshold)
	}
	if cfg.MaxInvestigations != 10 {
		t.Errorf("MaxInvestigations = %d, want 10", cfg.MaxInvestigations)
	}
	if cfg.CommandTimeout != 5*time.Second {
		t.Errorf("CommandTimeout = %v, want 5s", cfg.CommandTimeout)
	}
	if cfg.OutputCap != 500 {
		t.Errorf("OutputCap = %d, want 500", cfg.OutputCap)
	}
	if !cfg.Offline() {
		t.Error("Offline() should be true without a cluster host")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HEALTHCREW_CLUSTER_HOST", "api.cluster.example:6443")
	t.Setenv("HEALTHCREW_CLUSTER_USER", "admin")
	t.Setenv("HEALTHCREW_DATA_DIR", "/var/lib/healthcrew")
	t.Setenv("HEALTHCREW_HISTORY_RETENTION_DAYS", "7")
	t.Setenv("HEALTHCREW_PROMOTION_THRESHOLD", "2")
	t.Setenv("HEALTHCREW_COMMAND_TIMEOUT", "10s")
	t.Setenv("HEALTHCREW_TRACKER_PROJECTS", "CNV, OCPBUGS , ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ClusterHost != "api.cluster.example:6443" {
		t.Errorf("ClusterHost = %q", cfg.ClusterHost)
	}
	if cfg.Offline() {
		t.Error("Offline() should be false with a cluster host")
	}
	if cfg.ClusterUser != "admin" {
		t.Errorf("ClusterUser = %q", cfg.ClusterUser)
	}
	if cfg.HistoryRetentionDays != 7 {
		t.Errorf("HistoryRetentionDays = %d, want 7", cfg.HistoryRetentionDays)
	}
	if cfg.PromotionThreshold != 2 {
		t.Errorf("PromotionThreshold = %d, want 2", cfg.PromotionThreshold)
	}
	if cfg.CommandTimeout != 10*time.Second {
		t.Errorf("CommandTimeout = %v, want 10s", cfg.CommandTimeout)
	}
	if len(cfg.TrackerProjects) != 2 || cfg.TrackerProjects[0] != "CNV" || cfg.TrackerProjects[1] != "OCPBUGS" {
		t.Errorf("TrackerProjects = %v", cfg.TrackerProjects)
	}
	if cfg.LearningPath() != "/var/lib/healthcrew/learning.json" {
		t.Errorf("LearningPath = %q", cfg.LearningPath())
	}
}

func TestLoadInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("HEALTHCREW_HISTORY_RETENTION_DAYS", "soon")
	t.Setenv("HEALTHCREW_PROMOTION_THRESHOLD", "-1")
	t.Setenv("HEALTHCREW_COMMAND_TIMEOUT", "fast")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HistoryRetentionDays != 30 {
		t.Errorf("HistoryRetentionDays = %d, want default 30", cfg.HistoryRetentionDays)
	}
	if cfg.PromotionThreshold != 3 {
		t.Errorf("PromotionThreshold = %d, want default 3", cfg.PromotionThreshold)
	}
	if cfg.CommandTimeout != 5*time.Second {
		t.Errorf("CommandTimeout = %v, want default 5s", cfg.CommandTimeout)
	}
}
