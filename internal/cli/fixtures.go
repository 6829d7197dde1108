// Package cli provides the bundleengine demo command-line interface: a
// thin harness over the engine, loading wardrobe/catalog/profile fixtures
// from disk. It is not a production interface (SPEC_FULL.md §10); a real
// deployment wires index.Query, engine.ProfileProvider, and
// engine.WearHistoryProvider against its own stores.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/outfitforge/bundleengine/internal/model"
)

// fixtureSet is everything a demo invocation needs: a user's wardrobe, the
// shared catalog, and the user's styling profile.
type fixtureSet struct {
	Wardrobe []model.Item  `json:"wardrobe"`
	Catalog  []model.Item  `json:"catalog"`
	Profile  model.Profile `json:"profile"`
}

// loadFixtures reads a single JSON fixture file containing a user's
// wardrobe, the shared catalog, and their profile.
func loadFixtures(path string) (fixtureSet, error) {
	data, err := os.ReadFile(path) // #nosec G304 - operator-supplied fixture path
	if err != nil {
		return fixtureSet{}, fmt.Errorf("cli: read fixtures %s: %w", path, err)
	}
	var fs fixtureSet
	if err := json.Unmarshal(data, &fs); err != nil {
		return fixtureSet{}, fmt.Errorf("cli: parse fixtures %s: %w", path, err)
	}
	return fs, nil
}

// staticProfiles is a engine.ProfileProvider backed by a single fixture
// profile, keyed by user id.
type staticProfiles struct {
	byUser map[string]model.Profile
}

func newStaticProfiles(userID string, p model.Profile) *staticProfiles {
	return &staticProfiles{byUser: map[string]model.Profile{userID: p}}
}

func (s *staticProfiles) Snapshot(userID string) (model.Profile, error) {
	p, ok := s.byUser[userID]
	if !ok {
		return model.Profile{}, fmt.Errorf("cli: no fixture profile for user %q", userID)
	}
	return p, nil
}

// noHistory is a engine.WearHistoryProvider that always reports no recent
// wear, used when a demo invocation has no history fixture.
type noHistory struct{}

func (noHistory) Recent(userID string, n int) ([]string, error) {
	return nil, nil
}
