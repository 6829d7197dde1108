package cli

import (
	"fmt"

	"github.com/outfitforge/bundleengine/internal/config"
	"github.com/outfitforge/bundleengine/internal/engine"
	"github.com/outfitforge/bundleengine/internal/index"
	"github.com/outfitforge/bundleengine/internal/registry"
	"github.com/outfitforge/bundleengine/internal/ruleset"
)

// loadConfig builds the process config from --config (when set) layered
// with BUNDLEENGINE_* environment variables, the way buildEngine's other
// inputs are loaded from flag-bound paths.
func loadConfig() (config.Config, error) {
	cfg, err := config.NewBuilder().WithFile(configPath).WithEnvConfig().Build()
	if err != nil {
		return config.Config{}, fmt.Errorf("cli: load config: %w", err)
	}
	return cfg, nil
}

// buildEngine loads fixtures and a rule set from the paths bound to the
// --fixtures/--ruleset flags and wires a single-process engine.Engine over
// them, the way a demo invocation does (SPEC_FULL.md §10).
func buildEngine() (*engine.Engine, fixtureSet, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fixtureSet{}, err
	}

	fs, err := loadFixtures(fixturesPath)
	if err != nil {
		return nil, fixtureSet{}, err
	}

	rs, err := ruleset.LoadFile(rulesetPath)
	if err != nil {
		return nil, fixtureSet{}, fmt.Errorf("cli: load ruleset: %w", err)
	}

	snap := index.NewSnapshot()
	snap.LoadWardrobe(fs.Profile.UserID, fs.Wardrobe)
	snap.LoadCatalog(fs.Catalog)

	eng := engine.New(
		snap,
		ruleset.StaticProvider{RuleSet: rs},
		newStaticProfiles(fs.Profile.UserID, fs.Profile),
		noHistory{},
		registry.New(),
		logger(),
		cfg.MaxInflightRequests,
		cfg.ShortlistCacheSize,
	)
	return eng, fs, nil
}
