package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestBuilderDefaultsOnly(t *testing.T) {
	cfg, err := NewBuilder().Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if cfg != Default() {
		t.Errorf("Build() = %+v, want Default() = %+v", cfg, Default())
	}
}

func TestBuilderEnvOverridesDefaults(t *testing.T) {
	t.Setenv("BUNDLEENGINE_ANCHOR_SHORTLIST_K", "99")
	t.Setenv("BUNDLEENGINE_GENERATE_BUDGET_MS", "750")
	t.Setenv("BUNDLEENGINE_RULESET_URL", "https://example.invalid/rules.tar.gz")

	cfg, err := NewBuilder().WithEnvConfig().Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if cfg.DefaultAnchorShortlistK != 99 {
		t.Errorf("DefaultAnchorShortlistK = %d, want 99", cfg.DefaultAnchorShortlistK)
	}
	if cfg.GenerateBudget != 750*time.Millisecond {
		t.Errorf("GenerateBudget = %v, want 750ms", cfg.GenerateBudget)
	}
	if cfg.RuleSetURL != "https://example.invalid/rules.tar.gz" {
		t.Errorf("RuleSetURL = %q, want the overridden URL", cfg.RuleSetURL)
	}
	if cfg.DefaultSlotShortlistK != Default().DefaultSlotShortlistK {
		t.Errorf("DefaultSlotShortlistK = %d, want untouched default %d", cfg.DefaultSlotShortlistK, Default().DefaultSlotShortlistK)
	}
}

func TestBuilderEnvInvalidIntegerIsAnError(t *testing.T) {
	t.Setenv("BUNDLEENGINE_MAX_INFLIGHT_REQUESTS", "not-a-number")

	_, err := NewBuilder().WithEnvConfig().Build()
	if err == nil {
		t.Fatal("Build() error = nil, want an error for an invalid integer env var")
	}
}

func TestBuilderFileOverridesDefaultsThenEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlBody := "default_anchor_shortlist_k: 55\nshortlist_cache_size: 4096\n"
	if err := os.WriteFile(path, []byte(yamlBody), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	t.Setenv("BUNDLEENGINE_SHORTLIST_CACHE_SIZE", "8192")

	cfg, err := NewBuilder().WithFile(path).WithEnvConfig().Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if cfg.DefaultAnchorShortlistK != 55 {
		t.Errorf("DefaultAnchorShortlistK = %d, want 55 from file", cfg.DefaultAnchorShortlistK)
	}
	if cfg.ShortlistCacheSize != 8192 {
		t.Errorf("ShortlistCacheSize = %d, want 8192 (env overrides file)", cfg.ShortlistCacheSize)
	}
}

func TestBuilderFileNotFoundIsAnError(t *testing.T) {
	_, err := NewBuilder().WithFile(filepath.Join(t.TempDir(), "missing.yaml")).Build()
	if err == nil {
		t.Fatal("Build() error = nil, want an error for a missing config file")
	}
}

func TestBuilderEmptyFilePathIsANoOp(t *testing.T) {
	cfg, err := NewBuilder().WithFile("").Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if cfg != Default() {
		t.Errorf("Build() = %+v, want Default() unchanged by an empty path", cfg)
	}
}
