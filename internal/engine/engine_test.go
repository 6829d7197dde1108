package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outfitforge/bundleengine/internal/enginerr"
	"github.com/outfitforge/bundleengine/internal/index"
	"github.com/outfitforge/bundleengine/internal/model"
	"github.com/outfitforge/bundleengine/internal/registry"
	"github.com/outfitforge/bundleengine/internal/ruleset"
)

type staticProfiles struct {
	profile model.Profile
	err     error
}

func (s staticProfiles) Snapshot(string) (model.Profile, error) { return s.profile, s.err }

type staticHistory struct {
	recent []string
	err    error
}

func (s staticHistory) Recent(string, int) ([]string, error) { return s.recent, s.err }

func casualTemplate() ruleset.Template {
	return ruleset.Template{
		ID:            "casual-1",
		Occasion:      "casual",
		AnchorSlot:    model.SlotTop,
		RequiredSlots: []model.Slot{model.SlotTop, model.SlotBottom},
		DressinessMin: 1,
		DressinessMax: 3,
		SlotOrder:     []model.Slot{model.SlotTop, model.SlotBottom},
	}
}

func testRuleSet() ruleset.RuleSet {
	return ruleset.RuleSet{
		Version:          "v1",
		Templates:        []ruleset.Template{casualTemplate()},
		Weights:          ruleset.DefaultWeights(),
		Thresholds:       ruleset.DefaultThresholds(),
		BeamWidth:        8,
		AnchorShortlistK: 10,
		SlotShortlistK:   10,
	}
}

func newTestEngine(t *testing.T, profile model.Profile) *Engine {
	t.Helper()
	snap := index.NewSnapshot()
	snap.LoadWardrobe("u1", []model.Item{
		{ItemID: "shirt-1", Owner: model.OwnerWardrobe, Slot: model.SlotTop, Formality: 2},
		{ItemID: "trouser-1", Owner: model.OwnerWardrobe, Slot: model.SlotBottom, Formality: 2},
	})
	return New(snap, ruleset.StaticProvider{RuleSet: testRuleSet()}, staticProfiles{profile: profile}, staticHistory{}, registry.New(), hclog.NewNullLogger(), 2, 64)
}

func TestGenerateRequiresOccasion(t *testing.T) {
	e := newTestEngine(t, model.Profile{BaselineDressiness: 2})
	_, err := e.Generate(context.Background(), "u1", model.Context{}, false)
	require.Error(t, err)
	assert.Equal(t, enginerr.InvalidInput, enginerr.KindOf(err))
}

func TestGenerateRequiresADressinessTarget(t *testing.T) {
	e := newTestEngine(t, model.Profile{})
	_, err := e.Generate(context.Background(), "u1", model.Context{Occasion: "casual"}, false)
	require.Error(t, err)
	assert.Equal(t, enginerr.InvalidInput, enginerr.KindOf(err), "neither profile baseline nor context override is set")
}

func TestGenerateSucceeds(t *testing.T) {
	e := newTestEngine(t, model.Profile{BaselineDressiness: 2})
	result, err := e.Generate(context.Background(), "u1", model.Context{Occasion: "casual", TargetDressiness: 2}, false)
	require.NoError(t, err)
	assert.Equal(t, "shirt-1", result.Bundle.Items[model.SlotTop])
	assert.Equal(t, "trouser-1", result.Bundle.Items[model.SlotBottom])
	assert.False(t, result.Bundle.Partial)
}

func TestGeneratePropagatesProfileSnapshotError(t *testing.T) {
	e := newTestEngine(t, model.Profile{})
	e.Profiles = staticProfiles{err: errors.New("profile store down")}
	_, err := e.Generate(context.Background(), "u1", model.Context{Occasion: "casual", TargetDressiness: 2}, false)
	require.Error(t, err)
	assert.Equal(t, enginerr.IndexError, enginerr.KindOf(err))
}

func TestGenerateRejectsOverBackpressureLimit(t *testing.T) {
	e := newTestEngine(t, model.Profile{BaselineDressiness: 2})
	e.MaxInflight = 1
	e.inflight.Store(1)

	_, err := e.Generate(context.Background(), "u1", model.Context{Occasion: "casual", TargetDressiness: 2}, false)
	require.Error(t, err)
	assert.Equal(t, enginerr.Busy, enginerr.KindOf(err))
}

func TestExplainIsPureOverComputedComponents(t *testing.T) {
	e := newTestEngine(t, model.Profile{BaselineDressiness: 2})
	bundle := model.Bundle{
		Items: map[model.Slot]string{model.SlotTop: "shirt-1"},
		Score: 0.82,
		Components: []model.ComponentScore{
			{Name: "FormalityCloseness", Score: 1, Confidence: 1},
		},
	}
	result := e.Explain(bundle)
	assert.Equal(t, 0.82, result.Score)
	require.Len(t, result.Slots, 1)
	assert.Equal(t, "shirt-1", result.Slots[0].ItemID)
	assert.Len(t, result.Components, 1)
}

func TestReplacePlansAlternatives(t *testing.T) {
	e := newTestEngine(t, model.Profile{BaselineDressiness: 2})
	bundle := model.Bundle{
		TemplateID: "casual-1",
		Items: map[model.Slot]string{
			model.SlotTop:    "shirt-1",
			model.SlotBottom: "trouser-1",
		},
	}
	items := map[string]model.Item{
		"shirt-1":   {ItemID: "shirt-1", Slot: model.SlotTop, Formality: 2},
		"trouser-1": {ItemID: "trouser-1", Slot: model.SlotBottom, Formality: 2},
	}
	result, err := e.Replace(context.Background(), "u1", bundle, items, model.SlotTop, model.Context{TargetDressiness: 2}, false)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Alternatives, "want at least the existing top candidate")
}
