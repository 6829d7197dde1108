package assembler

import (
	"context"
	"testing"
	"time"

	"github.com/outfitforge/bundleengine/internal/constraint"
	"github.com/outfitforge/bundleengine/internal/enginerr"
	"github.com/outfitforge/bundleengine/internal/index"
	"github.com/outfitforge/bundleengine/internal/model"
	"github.com/outfitforge/bundleengine/internal/ruleset"
)

func casualTemplate() ruleset.Template {
	return ruleset.Template{
		ID:            "casual-1",
		Occasion:      "casual",
		AnchorSlot:    model.SlotTop,
		RequiredSlots: []model.Slot{model.SlotTop, model.SlotBottom},
		OptionalSlots: []model.Slot{model.SlotFootwear},
		DressinessMin: 1,
		DressinessMax: 3,
		SlotOrder:     []model.Slot{model.SlotTop, model.SlotBottom, model.SlotFootwear},
	}
}

func simpleRuleSet(templates ...ruleset.Template) ruleset.RuleSet {
	return ruleset.RuleSet{
		Version:          "v1",
		Templates:        templates,
		Weights:          ruleset.DefaultWeights(),
		Thresholds:       ruleset.DefaultThresholds(),
		BeamWidth:        8,
		AnchorShortlistK: 10,
		SlotShortlistK:   10,
	}
}

func TestAssembleReturnsNoTemplateWhenNoneMatch(t *testing.T) {
	snap := index.NewSnapshot()
	req := Request{
		UserID:  "u1",
		Profile: model.Profile{BaselineDressiness: 3},
		Context: model.Context{Occasion: "black_tie", TargetDressiness: 5},
		RuleSet: simpleRuleSet(casualTemplate()),
	}
	_, err := Assemble(context.Background(), snap, req)
	if enginerr.KindOf(err) != enginerr.NoTemplate {
		t.Fatalf("KindOf(err) = %v, want NoTemplate", enginerr.KindOf(err))
	}
}

func TestAssembleReturnsNoBundleWhenShortlistIsEmpty(t *testing.T) {
	snap := index.NewSnapshot() // no items loaded
	req := Request{
		UserID:  "u1",
		Profile: model.Profile{BaselineDressiness: 2},
		Context: model.Context{Occasion: "casual", TargetDressiness: 2},
		RuleSet: simpleRuleSet(casualTemplate()),
	}
	_, err := Assemble(context.Background(), snap, req)
	if enginerr.KindOf(err) != enginerr.NoBundle {
		t.Fatalf("KindOf(err) = %v, want NoBundle", enginerr.KindOf(err))
	}
}

func TestAssembleProducesACompleteBundle(t *testing.T) {
	snap := index.NewSnapshot()
	snap.LoadWardrobe("u1", []model.Item{
		{ItemID: "shirt-1", Owner: model.OwnerWardrobe, Slot: model.SlotTop, Formality: 2},
		{ItemID: "trouser-1", Owner: model.OwnerWardrobe, Slot: model.SlotBottom, Formality: 2},
		{ItemID: "shoe-1", Owner: model.OwnerWardrobe, Slot: model.SlotFootwear, Formality: 2},
	})

	req := Request{
		UserID:  "u1",
		Profile: model.Profile{BaselineDressiness: 2},
		Context: model.Context{Occasion: "casual", TargetDressiness: 2},
		RuleSet: simpleRuleSet(casualTemplate()),
	}
	result, err := Assemble(context.Background(), snap, req)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if result.Bundle.Items[model.SlotTop] != "shirt-1" {
		t.Errorf("Items[top] = %q, want shirt-1", result.Bundle.Items[model.SlotTop])
	}
	if result.Bundle.Items[model.SlotBottom] != "trouser-1" {
		t.Errorf("Items[bottom] = %q, want trouser-1", result.Bundle.Items[model.SlotBottom])
	}
	if result.Bundle.Partial {
		t.Error("Partial = true, want a complete bundle")
	}
}

func TestAssembleReturnsDeadlineErrorOnExpiredDeadline(t *testing.T) {
	snap := index.NewSnapshot()
	snap.LoadWardrobe("u1", []model.Item{
		{ItemID: "shirt-1", Owner: model.OwnerWardrobe, Slot: model.SlotTop, Formality: 2},
		{ItemID: "trouser-1", Owner: model.OwnerWardrobe, Slot: model.SlotBottom, Formality: 2},
	})

	req := Request{
		UserID:  "u1",
		Profile: model.Profile{BaselineDressiness: 2},
		Context: model.Context{Occasion: "casual", TargetDressiness: 2},
		RuleSet: simpleRuleSet(casualTemplate()),
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err := Assemble(ctx, snap, req)
	if err == nil {
		t.Fatal("Assemble() with an already-expired deadline and no prior terminal should error")
	}
	if enginerr.KindOf(err) != enginerr.Deadline {
		t.Fatalf("KindOf(err) = %v, want Deadline", enginerr.KindOf(err))
	}
}

func TestSortTerminalsPrefersFewerCatalogItems(t *testing.T) {
	a := partial{score: 0.8, catalogCount: 1, state: constraint.State{Committed: map[model.Slot]model.Item{
		model.SlotTop: {ItemID: "z-item"},
	}}}
	b := partial{score: 0.8, catalogCount: 0, state: constraint.State{Committed: map[model.Slot]model.Item{
		model.SlotTop: {ItemID: "a-item"},
	}}}
	terminals := []partial{a, b}

	sortTerminals(terminals, 10)

	if terminals[0].catalogCount != 0 {
		t.Errorf("terminals[0].catalogCount = %d, want 0 (fewer catalog items should rank first at equal score)", terminals[0].catalogCount)
	}
}
