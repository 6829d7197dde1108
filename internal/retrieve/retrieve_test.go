package retrieve

import (
	"context"
	"testing"

	"github.com/outfitforge/bundleengine/internal/index"
	"github.com/outfitforge/bundleengine/internal/model"
	"github.com/outfitforge/bundleengine/internal/ruleset"
)

func newRuleSet() ruleset.RuleSet {
	rs := ruleset.RuleSet{Version: "v1", Thresholds: ruleset.DefaultThresholds(), Weights: ruleset.DefaultWeights()}
	return rs
}

func TestShortlistRanksAndTruncates(t *testing.T) {
	snap := index.NewSnapshot()
	snap.LoadWardrobe("u1", []model.Item{
		{ItemID: "close", Owner: model.OwnerWardrobe, Slot: model.SlotTop, Formality: 3},
		{ItemID: "far", Owner: model.OwnerWardrobe, Slot: model.SlotTop, Formality: 1},
		{ItemID: "mid", Owner: model.OwnerWardrobe, Slot: model.SlotTop, Formality: 2},
	})

	req := Request{
		UserID:  "u1",
		Slot:    model.SlotTop,
		RuleSet: newRuleSet(),
		Profile: model.Profile{BaselineDressiness: 3},
		Context: model.Context{TargetDressiness: 3},
		K:       2,
	}

	got, err := Shortlist(context.Background(), snap, req)
	if err != nil {
		t.Fatalf("Shortlist() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
	if got[0].Item.ItemID != "close" {
		t.Errorf("got[0].Item.ItemID = %q, want %q", got[0].Item.ItemID, "close")
	}
}

func TestShortlistExcludesCatalogWhenDisallowed(t *testing.T) {
	snap := index.NewSnapshot()
	snap.LoadWardrobe("u1", nil)
	snap.LoadCatalog([]model.Item{
		{ItemID: "cat-1", Owner: model.OwnerCatalog, Slot: model.SlotTop, Formality: 3},
	})

	req := Request{
		UserID:       "u1",
		Slot:         model.SlotTop,
		RuleSet:      newRuleSet(),
		Profile:      model.Profile{BaselineDressiness: 3},
		Context:      model.Context{TargetDressiness: 3},
		AllowCatalog: false,
	}

	got, err := Shortlist(context.Background(), snap, req)
	if err != nil {
		t.Fatalf("Shortlist() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("len(got) = %d, want 0 (catalog disallowed)", len(got))
	}
}

func TestShortlistPrefersWardrobeAtEqualUnaryScore(t *testing.T) {
	snap := index.NewSnapshot()
	snap.LoadWardrobe("u1", []model.Item{
		{ItemID: "w-item", Owner: model.OwnerWardrobe, Slot: model.SlotTop, Formality: 3},
	})
	snap.LoadCatalog([]model.Item{
		{ItemID: "c-item", Owner: model.OwnerCatalog, Slot: model.SlotTop, Formality: 3},
	})

	req := Request{
		UserID:       "u1",
		Slot:         model.SlotTop,
		RuleSet:      newRuleSet(),
		Profile:      model.Profile{BaselineDressiness: 3},
		Context:      model.Context{TargetDressiness: 3},
		AllowCatalog: true,
	}

	got, err := Shortlist(context.Background(), snap, req)
	if err != nil {
		t.Fatalf("Shortlist() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
	if got[0].Item.Owner != model.OwnerWardrobe {
		t.Errorf("got[0].Item.Owner = %v, want wardrobe to rank first at equal unary score", got[0].Item.Owner)
	}
}
