// Package config loads the bundle engine's process-level configuration
// from environment variables and an optional YAML file, using the
// teacher's builder-pattern construction style
// (NewBuilder().WithFile(path).WithEnvConfig().Build()).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the engine's tunable process-level parameters. Ruleset
// values (weights, thresholds, beam width) are NOT here — those are
// versioned and delivered via ruleset.RuleSet; Config covers the host
// process's own operating envelope.
type Config struct {
	// DefaultAnchorShortlistK / DefaultSlotShortlistK are the default
	// shortlist sizes. They are loaded but not read elsewhere: the ruleset
	// loader applies its own defaults of 40 and 20.
	DefaultAnchorShortlistK int `yaml:"default_anchor_shortlist_k"`
	DefaultSlotShortlistK   int `yaml:"default_slot_shortlist_k"`

	// GenerateBudget / ReplaceBudget are the P95 latency budgets from §2.
	// The CLI's generate command uses GenerateBudget as its deadline when
	// --budget-ms is 0; ReplaceBudget is not read (replace has its own
	// --budget-ms default).
	GenerateBudget time.Duration `yaml:"generate_budget"`
	ReplaceBudget  time.Duration `yaml:"replace_budget"`

	// ShortlistCacheSize bounds the process-wide LRU candidate-shortlist
	// cache (§5).
	ShortlistCacheSize int `yaml:"shortlist_cache_size"`

	// MaxInflightRequests bounds concurrent generate/replace calls; excess
	// is rejected with enginerr.Busy (§5 backpressure).
	MaxInflightRequests int `yaml:"max_inflight_requests"`

	// RuleSetURL / RuleSetPath name a remote or local rule set pack source.
	// They are loaded from file and env only: nothing in this module builds
	// a RuleSetProvider from them, and setting both is not rejected.
	RuleSetURL  string `yaml:"ruleset_url,omitempty"`
	RuleSetPath string `yaml:"ruleset_path,omitempty"`

	// CacheDir names a directory for extracted rule set packs; like the
	// two fields above it is loaded but not read elsewhere.
	CacheDir string `yaml:"cache_dir,omitempty"`
}

// Default returns the engine's documented defaults (§4.5, §4.6 defaults;
// §2 latency budgets).
func Default() Config {
	return Config{
		DefaultAnchorShortlistK: 40,
		DefaultSlotShortlistK:   20,
		GenerateBudget:          400 * time.Millisecond,
		ReplaceBudget:           600 * time.Millisecond,
		ShortlistCacheSize:      2048,
		MaxInflightRequests:     64,
	}
}

// Builder assembles a Config from layered sources: defaults, then an
// optional YAML file, then environment variables (each layer overrides the
// previous), mirroring the teacher's NewBuilder().WithEnvConfig().Build()
// construction idiom.
type Builder struct {
	cfg Config
	err error
}

// NewBuilder starts from Default().
func NewBuilder() *Builder {
	return &Builder{cfg: Default()}
}

// WithFile merges settings from a YAML config file. Missing fields in the
// file leave the current value untouched.
func (b *Builder) WithFile(path string) *Builder {
	if b.err != nil || path == "" {
		return b
	}
	data, err := os.ReadFile(path) // #nosec G304 - operator-supplied config path
	if err != nil {
		b.err = fmt.Errorf("config: read %s: %w", path, err)
		return b
	}
	if err := yaml.Unmarshal(data, &b.cfg); err != nil {
		b.err = fmt.Errorf("config: parse %s: %w", path, err)
	}
	return b
}

// WithEnvConfig overlays BUNDLEENGINE_* environment variables onto the
// config, the way the teacher's manager reads TINCT_* variables.
func (b *Builder) WithEnvConfig() *Builder {
	if b.err != nil {
		return b
	}
	if v := os.Getenv("BUNDLEENGINE_ANCHOR_SHORTLIST_K"); v != "" {
		b.cfg.DefaultAnchorShortlistK = b.atoi(v)
	}
	if v := os.Getenv("BUNDLEENGINE_SLOT_SHORTLIST_K"); v != "" {
		b.cfg.DefaultSlotShortlistK = b.atoi(v)
	}
	if v := os.Getenv("BUNDLEENGINE_GENERATE_BUDGET_MS"); v != "" {
		b.cfg.GenerateBudget = time.Duration(b.atoi(v)) * time.Millisecond
	}
	if v := os.Getenv("BUNDLEENGINE_REPLACE_BUDGET_MS"); v != "" {
		b.cfg.ReplaceBudget = time.Duration(b.atoi(v)) * time.Millisecond
	}
	if v := os.Getenv("BUNDLEENGINE_SHORTLIST_CACHE_SIZE"); v != "" {
		b.cfg.ShortlistCacheSize = b.atoi(v)
	}
	if v := os.Getenv("BUNDLEENGINE_MAX_INFLIGHT_REQUESTS"); v != "" {
		b.cfg.MaxInflightRequests = b.atoi(v)
	}
	if v := os.Getenv("BUNDLEENGINE_RULESET_URL"); v != "" {
		b.cfg.RuleSetURL = v
	}
	if v := os.Getenv("BUNDLEENGINE_RULESET_PATH"); v != "" {
		b.cfg.RuleSetPath = v
	}
	if v := os.Getenv("BUNDLEENGINE_CACHE_DIR"); v != "" {
		b.cfg.CacheDir = v
	}
	return b
}

func (b *Builder) atoi(v string) int {
	if b.err != nil {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		b.err = fmt.Errorf("config: invalid integer %q: %w", v, err)
		return 0
	}
	return n
}

// Build returns the assembled config, or the first error encountered while
// building it.
func (b *Builder) Build() (Config, error) {
	if b.err != nil {
		return Config{}, b.err
	}
	return b.cfg, nil
}
