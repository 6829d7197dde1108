package scoring

import (
	"testing"

	"github.com/outfitforge/bundleengine/internal/color"
	"github.com/outfitforge/bundleengine/internal/model"
	"github.com/outfitforge/bundleengine/internal/ruleset"
)

func baseRuleSet() ruleset.RuleSet {
	return ruleset.RuleSet{
		Weights:    ruleset.DefaultWeights(),
		Thresholds: ruleset.DefaultThresholds(),
	}
}

func TestAggregateRenormalizesOverZeroWeightComponents(t *testing.T) {
	rs := baseRuleSet()
	rs.Weights.PaletteHarmony = 0
	rs.Weights.PatternMix = 0
	rs.Weights.SilhouetteBalance = 0
	rs.Weights.TemperatureFit = 0
	rs.Weights.StyleTagMatch = 0
	rs.Weights.NoveltyVariety = 0
	rs.Weights.AccessoryConsistency = 0
	rs.Weights.SkinSynergy = 0
	rs.Weights.ProportionFit = 0
	rs.Weights.FormalityCloseness = 1.0

	items := []model.Item{{ItemID: "a", Slot: model.SlotTop, Formality: 3}}
	ctx := model.Context{TargetDressiness: 3}

	total, scores := Aggregate(items, rs, model.Profile{}, ctx, nil)
	if len(scores) != 1 {
		t.Fatalf("len(scores) = %d, want 1 (only FormalityCloseness has weight)", len(scores))
	}
	if scores[0].Weight != 1.0 {
		t.Errorf("scores[0].Weight = %v, want 1.0 after renormalization", scores[0].Weight)
	}
	if total != scores[0].Score*scores[0].Confidence {
		t.Errorf("total = %v, want score*confidence = %v", total, scores[0].Score*scores[0].Confidence)
	}
}

func TestAggregateAllComponentsPresentByDefault(t *testing.T) {
	rs := baseRuleSet()
	items := []model.Item{
		{ItemID: "shirt", Slot: model.SlotTop, Formality: 3},
		{ItemID: "trousers", Slot: model.SlotBottom, Formality: 3},
	}
	_, scores := Aggregate(items, rs, model.Profile{}, model.Context{TargetDressiness: 3}, nil)
	if len(scores) != 10 {
		t.Fatalf("len(scores) = %d, want 10 (all components have a default weight)", len(scores))
	}
}

func TestPaletteHarmonySameHueScoresHigh(t *testing.T) {
	items := []model.Item{
		{ItemID: "a", Color: &color.LCh{L: 50, C: 40, H: 30}},
		{ItemID: "b", Color: &color.LCh{L: 55, C: 42, H: 32}},
	}
	cs := PaletteHarmony(items, baseRuleSet(), model.Profile{}, model.Context{}, nil)
	if cs.Score < 0.6 {
		t.Errorf("Score = %v, want a high score for near-identical hues", cs.Score)
	}
}

func TestPatternMixPenalizesMultiplePatterns(t *testing.T) {
	rs := baseRuleSet()
	items := []model.Item{
		{ItemID: "a", Pattern: "stripe"},
		{ItemID: "b", Pattern: "plaid"},
		{ItemID: "c", Pattern: "floral"},
	}
	cs := PatternMix(items, rs, model.Profile{}, model.Context{}, nil)
	solo := PatternMix([]model.Item{{ItemID: "a", Pattern: "stripe"}}, rs, model.Profile{}, model.Context{}, nil)
	if cs.Score >= solo.Score {
		t.Errorf("multi-pattern score %v should be lower than single-pattern score %v", cs.Score, solo.Score)
	}
}

func TestSilhouetteBalanceRewardsContrast(t *testing.T) {
	rs := baseRuleSet()
	contrast := []model.Item{
		{ItemID: "top", Slot: model.SlotTop, FitProfile: model.FitOversize},
		{ItemID: "bottom", Slot: model.SlotBottom, FitProfile: model.FitSlim},
	}
	matching := []model.Item{
		{ItemID: "top", Slot: model.SlotTop, FitProfile: model.FitOversize},
		{ItemID: "bottom", Slot: model.SlotBottom, FitProfile: model.FitOversize},
	}
	cContrast := SilhouetteBalance(contrast, rs, model.Profile{}, model.Context{}, nil)
	cMatching := SilhouetteBalance(matching, rs, model.Profile{}, model.Context{}, nil)
	if cContrast.Score <= cMatching.Score {
		t.Errorf("contrast score %v should exceed matching score %v", cContrast.Score, cMatching.Score)
	}
}

func TestFormalityClosenessExactMatchScoresOne(t *testing.T) {
	items := []model.Item{{ItemID: "a", Slot: model.SlotTop, Formality: 3}}
	cs := FormalityCloseness(items, baseRuleSet(), model.Profile{}, model.Context{TargetDressiness: 3}, nil)
	if cs.Score != 1 {
		t.Errorf("Score = %v, want 1 for exact formality match", cs.Score)
	}
}

func TestTemperatureFitNoBandReturnsPerfectScore(t *testing.T) {
	items := []model.Item{{ItemID: "a", Seasonality: []model.Season{model.SeasonHot}}}
	cs := TemperatureFit(items, baseRuleSet(), model.Profile{}, model.Context{}, nil)
	if cs.Score != 1 {
		t.Errorf("Score = %v, want 1 when no temperature band requested", cs.Score)
	}
}

func TestTemperatureFitPartialCoverage(t *testing.T) {
	items := []model.Item{
		{ItemID: "a", Seasonality: []model.Season{model.SeasonCold}},
		{ItemID: "b", Seasonality: []model.Season{model.SeasonHot}},
	}
	cs := TemperatureFit(items, baseRuleSet(), model.Profile{}, model.Context{TemperatureBand: model.SeasonCold}, nil)
	if cs.Score != 0.5 {
		t.Errorf("Score = %v, want 0.5 for 1/2 coverage with no outer bonus", cs.Score)
	}
}

func TestStyleTagMatchForbiddenTagZeroesScore(t *testing.T) {
	profile := model.Profile{Guardrails: model.Guardrails{Forbidden: []string{"neon"}}}
	items := []model.Item{{ItemID: "a", StyleTags: []string{"neon"}}}
	cs := StyleTagMatch(items, baseRuleSet(), profile, model.Context{}, nil)
	if cs.Score != 0 {
		t.Errorf("Score = %v, want 0 when a forbidden tag is present", cs.Score)
	}
}

func TestStyleTagMatchJaccardOverlap(t *testing.T) {
	profile := model.Profile{StyleSignature: []string{"classic", "minimal"}}
	items := []model.Item{{ItemID: "a", StyleTags: []string{"classic"}}}
	cs := StyleTagMatch(items, baseRuleSet(), profile, model.Context{}, nil)
	if cs.Score != 0.5 {
		t.Errorf("Score = %v, want 0.5 (1 intersection / 2 union)", cs.Score)
	}
}

func TestNoveltyVarietyNoHistoryIsPerfect(t *testing.T) {
	items := []model.Item{{ItemID: "a"}}
	cs := NoveltyVariety(items, baseRuleSet(), model.Profile{}, model.Context{}, nil)
	if cs.Score != 1 {
		t.Errorf("Score = %v, want 1 with no wear history", cs.Score)
	}
}

func TestNoveltyVarietyPenalizesRecentRepeat(t *testing.T) {
	items := []model.Item{{ItemID: "a"}}
	cs := NoveltyVariety(items, baseRuleSet(), model.Profile{}, model.Context{}, []string{"a", "b", "c"})
	if cs.Score >= 1 {
		t.Errorf("Score = %v, want < 1 when the item was worn most recently", cs.Score)
	}
}

func TestAccessoryConsistencyFreeModeAlwaysPerfect(t *testing.T) {
	rs := baseRuleSet()
	rs.AccessoryMode = ruleset.AccessoryFree
	items := []model.Item{
		{ItemID: "a", LeatherFamily: "brown"},
		{ItemID: "b", LeatherFamily: "black"},
	}
	cs := AccessoryConsistency(items, rs, model.Profile{}, model.Context{}, nil)
	if cs.Score != 1 {
		t.Errorf("Score = %v, want 1 in free mode regardless of mismatches", cs.Score)
	}
}

func TestAccessoryConsistencyStrictFamilyZeroesOnMismatch(t *testing.T) {
	rs := baseRuleSet()
	rs.AccessoryMode = ruleset.AccessoryStrictFamily
	items := []model.Item{
		{ItemID: "a", LeatherFamily: "brown"},
		{ItemID: "b", LeatherFamily: "black"},
	}
	cs := AccessoryConsistency(items, rs, model.Profile{}, model.Context{}, nil)
	if cs.Score != 0 {
		t.Errorf("Score = %v, want 0 under strict_family with a leather mismatch", cs.Score)
	}
}

func TestSkinSynergyFallsBackWhenAppearanceAbsent(t *testing.T) {
	items := []model.Item{{ItemID: "a", Slot: model.SlotTop, Color: &color.LCh{L: 50, C: 30, H: 20}}}
	cs := SkinSynergy(items, baseRuleSet(), model.Profile{}, model.Context{}, nil)
	if cs.Score != 0.5 {
		t.Errorf("Score = %v, want 0.5 neutral fallback when no appearance signature is declared", cs.Score)
	}
}

func TestSkinSynergyScoresNearFaceItems(t *testing.T) {
	profile := model.Profile{Appearance: model.AppearanceSignature{
		Present: true, SkinLCh: color.LCh{L: 60, C: 20, H: 40}, SynergyStyle: "harmonize",
	}}
	items := []model.Item{{ItemID: "a", Slot: model.SlotTop, Color: &color.LCh{L: 58, C: 22, H: 45}}}
	cs := SkinSynergy(items, baseRuleSet(), profile, model.Context{}, nil)
	if cs.Score <= 0 {
		t.Errorf("Score = %v, want a positive synergy score for a near-band ΔE", cs.Score)
	}
}

func TestProportionFitFallsBackWhenBodyAbsent(t *testing.T) {
	items := []model.Item{{ItemID: "a", Slot: model.SlotBottom}}
	cs := ProportionFit(items, baseRuleSet(), model.Profile{}, model.Context{}, nil)
	if cs.Score != 0.5 {
		t.Errorf("Score = %v, want 0.5 neutral fallback when no body signature is declared", cs.Score)
	}
}

func TestProportionFitLongTorsoFavorsHighRise(t *testing.T) {
	profile := model.Profile{Body: model.BodySignature{Present: true, Traits: []string{"long_torso"}}}
	items := []model.Item{{ItemID: "a", Slot: model.SlotBottom, BottomRiseClass: "high_rise"}}
	cs := ProportionFit(items, baseRuleSet(), profile, model.Context{}, nil)
	if cs.Score <= 0.6 {
		t.Errorf("Score = %v, want a boost above the 0.6 baseline for a favorable rule match", cs.Score)
	}
}
