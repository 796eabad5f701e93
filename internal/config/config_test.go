package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.HTTPPort != 3000 {
		t.Errorf("expected default port 3000, got %d", cfg.HTTPPort)
	}
	if cfg.MergeRadiusMeters != 100 {
		t.Errorf("expected default merge radius 100, got %f", cfg.MergeRadiusMeters)
	}
	if cfg.MergeTimeWindow != 2*time.Hour {
		t.Errorf("expected default time window 2h, got %s", cfg.MergeTimeWindow)
	}
	if cfg.SimilarityThreshold != 0.70 {
		t.Errorf("expected default similarity threshold 0.70, got %f", cfg.SimilarityThreshold)
	}
	if cfg.MaxGroupSize != 10 {
		t.Errorf("expected default max group size 10, got %d", cfg.MaxGroupSize)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "8080")
	t.Setenv("MERGE_RADIUS_METERS", "250.5")
	t.Setenv("MERGE_TIME_WINDOW", "30m")
	t.Setenv("MAX_GROUP_SIZE", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.HTTPPort != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.HTTPPort)
	}
	if cfg.MergeRadiusMeters != 250.5 {
		t.Errorf("expected radius 250.5, got %f", cfg.MergeRadiusMeters)
	}
	if cfg.MergeTimeWindow != 30*time.Minute {
		t.Errorf("expected window 30m, got %s", cfg.MergeTimeWindow)
	}
	if cfg.MaxGroupSize != 5 {
		t.Errorf("expected max group size 5, got %d", cfg.MaxGroupSize)
	}
}

func TestLoad_IgnoresMalformedValues(t *testing.T) {
	t.Setenv("HTTP_PORT", "not-a-number")
	t.Setenv("MERGE_TIME_WINDOW", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.HTTPPort != 3000 {
		t.Errorf("malformed int must fall back to default, got %d", cfg.HTTPPort)
	}
	if cfg.MergeTimeWindow != 2*time.Hour {
		t.Errorf("malformed duration must fall back to default, got %s", cfg.MergeTimeWindow)
	}
}
