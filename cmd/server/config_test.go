package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Address != ":8080" {
		t.Errorf("address = %q, want :8080", cfg.Server.Address)
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("cache ttl = %v, want 5m", cfg.Cache.TTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `server:
  address: ":9090"
  recent_limit: 10
cache:
  ttl: 2m
query:
  base_url: "https://example.test"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Server.Address != ":9090" {
		t.Errorf("address = %q, want :9090", cfg.Server.Address)
	}
	if cfg.Cache.TTL != 2*time.Minute {
		t.Errorf("cache ttl = %v, want 2m", cfg.Cache.TTL)
	}
	if cfg.Query.BaseURL != "https://example.test" {
		t.Errorf("query base url = %q", cfg.Query.BaseURL)
	}
	// Unset fields still get defaults.
	if cfg.Server.RequestTimeout != 60*time.Second {
		t.Errorf("request timeout = %v, want 60s", cfg.Server.RequestTimeout)
	}
}

func TestConfigValidate_RejectsNegativeDurations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.TTL = -time.Minute
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for negative cache.ttl")
	}

	cfg = DefaultConfig()
	cfg.Server.RequestTimeout = -time.Second
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for negative server.request_timeout")
	}
}

func TestConfigValidate_RejectsNegativeRecentLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.RecentLimit = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for negative server.recent_limit")
	}
}

func TestLoadSecrets_MissingIsFatal(t *testing.T) {
	vars := []string{
		"HEALTHDECK_STORAGE_CONNECTION_STRING",
		"HEALTHDECK_TABLE_NAME",
		"HEALTHDECK_INSIGHTS_APP_ID",
		"HEALTHDECK_INSIGHTS_API_KEY",
		"HEALTHDECK_ENVIRONMENT_ID",
	}
	for _, v := range vars {
		t.Setenv(v, "value")
	}

	if _, err := loadSecrets(); err != nil {
		t.Fatalf("loadSecrets() error = %v with all secrets set", err)
	}

	for _, missing := range vars {
		t.Run(missing, func(t *testing.T) {
			for _, v := range vars {
				t.Setenv(v, "value")
			}
			t.Setenv(missing, "")
			if _, err := loadSecrets(); err == nil {
				t.Errorf("loadSecrets() error = nil with %s unset", missing)
			}
		})
	}
}

func TestLoadSeverityLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.yaml")
	if err := os.WriteFile(path, []byte("1: Fatal\n2: Warning\n"), 0600); err != nil {
		t.Fatal(err)
	}

	labels, err := loadSeverityLabels(path)
	if err != nil {
		t.Fatalf("loadSeverityLabels() error = %v", err)
	}
	if labels[1] != "Fatal" || labels[2] != "Warning" {
		t.Errorf("labels = %v", labels)
	}
}

func TestLoadSeverityLabels_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.yaml")
	if err := os.WriteFile(path, []byte("not: [valid: mapping"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := loadSeverityLabels(path); err == nil {
		t.Error("loadSeverityLabels() error = nil for invalid yaml")
	}

	if _, err := loadSeverityLabels(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("loadSeverityLabels() error = nil for missing file")
	}

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(empty, []byte(""), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := loadSeverityLabels(empty); err == nil {
		t.Error("loadSeverityLabels() error = nil for empty mapping")
	}
}
