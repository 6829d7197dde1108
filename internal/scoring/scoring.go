// Package scoring implements the Scoring Engine (§4.4): ten pure, stateless
// soft-scoring components plus the weighted, confidence-scaled aggregator.
// Each component returns a score in [0,1], a confidence, and an explanation
// string; it never mutates its inputs and never performs I/O.
package scoring

import (
	"fmt"
	"math"

	"github.com/outfitforge/bundleengine/internal/color"
	"github.com/outfitforge/bundleengine/internal/model"
	"github.com/outfitforge/bundleengine/internal/ruleset"
)

// nearFaceSlots are the slots SkinSynergy evaluates over (§4.4).
var nearFaceSlots = map[model.Slot]bool{
	model.SlotTop: true, model.SlotOuter: true,
	model.SlotHeadwear: true, model.SlotJewelry: true,
}

// Component is a single named soft-scoring function.
type Component struct {
	Name string
	Eval func(items []model.Item, rs ruleset.RuleSet, profile model.Profile, ctx model.Context, history []string) model.ComponentScore
}

// All returns the ten §4.4 components in weight-table order.
func All() []Component {
	return []Component{
		{Name: "PaletteHarmony", Eval: PaletteHarmony},
		{Name: "PatternMix", Eval: PatternMix},
		{Name: "SilhouetteBalance", Eval: SilhouetteBalance},
		{Name: "FormalityCloseness", Eval: FormalityCloseness},
		{Name: "TemperatureFit", Eval: TemperatureFit},
		{Name: "StyleTagMatch", Eval: StyleTagMatch},
		{Name: "NoveltyVariety", Eval: NoveltyVariety},
		{Name: "AccessoryConsistency", Eval: AccessoryConsistency},
		{Name: "SkinSynergy", Eval: SkinSynergy},
		{Name: "ProportionFit", Eval: ProportionFit},
	}
}

func weightOf(w ruleset.Weights, name string) float64 {
	switch name {
	case "PaletteHarmony":
		return w.PaletteHarmony
	case "PatternMix":
		return w.PatternMix
	case "SilhouetteBalance":
		return w.SilhouetteBalance
	case "FormalityCloseness":
		return w.FormalityCloseness
	case "TemperatureFit":
		return w.TemperatureFit
	case "StyleTagMatch":
		return w.StyleTagMatch
	case "NoveltyVariety":
		return w.NoveltyVariety
	case "AccessoryConsistency":
		return w.AccessoryConsistency
	case "SkinSynergy":
		return w.SkinSynergy
	case "ProportionFit":
		return w.ProportionFit
	default:
		return 0
	}
}

// Aggregate runs every component over items and combines them per §4.4:
// weights renormalized over present components, final score =
// sum(w_i * s_i * confidence_i). "Present" excludes nothing here — absent
// appearance/body signatures fall back to a neutral 0.5 rather than being
// excluded (§8 property 5), so renormalization denominator is always the
// full weight sum unless a ruleset weight is itself zero.
func Aggregate(items []model.Item, rs ruleset.RuleSet, profile model.Profile, ctx model.Context, history []string) (float64, []model.ComponentScore) {
	components := All()
	scores := make([]model.ComponentScore, 0, len(components))

	var weightSum float64
	for _, c := range components {
		w := weightOf(rs.Weights, c.Name)
		if w <= 0 {
			continue
		}
		weightSum += w
	}
	if weightSum <= 0 {
		weightSum = 1
	}

	var total float64
	for _, c := range components {
		w := weightOf(rs.Weights, c.Name)
		if w <= 0 {
			continue
		}
		cs := c.Eval(items, rs, profile, ctx, history)
		cs.Weight = w / weightSum
		scores = append(scores, cs)
		total += cs.Weight * cs.Score * cs.Confidence
	}
	return total, scores
}

// nonNeutralColors returns the LCh values of non-neutral items.
func nonNeutralColors(items []model.Item, neutralChroma float64) []color.LCh {
	var out []color.LCh
	for _, it := range items {
		if it.Color == nil {
			continue
		}
		if it.Color.IsNeutral(neutralChroma) {
			continue
		}
		out = append(out, *it.Color)
	}
	return out
}

// dominantRelation returns the most frequent pairwise hue relation among
// the given colors, defaulting to same when there are fewer than two.
func dominantRelation(colors []color.LCh) color.Relation {
	if len(colors) < 2 {
		return color.RelationSame
	}
	counts := make(map[color.Relation]int)
	for i := 0; i < len(colors); i++ {
		for j := i + 1; j < len(colors); j++ {
			counts[color.RelationOf(colors[i], colors[j])]++
		}
	}
	best := color.RelationUnrelated
	bestCount := -1
	for _, rel := range []color.Relation{color.RelationSame, color.RelationAnalogous, color.RelationComplementary, color.RelationTriadic, color.RelationUnrelated} {
		if counts[rel] > bestCount {
			best = rel
			bestCount = counts[rel]
		}
	}
	return best
}

// PaletteHarmony scores pairwise LCh relations over non-neutral items,
// scaled down by hue spread, with a neutral-item boost (§4.4).
func PaletteHarmony(items []model.Item, rs ruleset.RuleSet, profile model.Profile, ctx model.Context, history []string) model.ComponentScore {
	neutralChroma := rs.Thresholds.NeutralChroma
	colors := nonNeutralColors(items, neutralChroma)

	base := 0.3
	switch dominantRelation(colors) {
	case color.RelationSame:
		base = 0.8
	case color.RelationAnalogous:
		base = 0.9
	case color.RelationComplementary:
		base = 0.85
	case color.RelationTriadic:
		base = 0.7
	}

	var hues []float64
	for _, c := range colors {
		hues = append(hues, c.H)
	}
	sigma := color.CircularHueStdDev(hues)
	scaled := base * (1 - math.Min(1, sigma/60))

	neutralCount := 0
	for _, it := range items {
		if it.Color != nil && it.Color.IsNeutral(neutralChroma) {
			neutralCount++
		}
	}
	boost := math.Min(0.1, float64(neutralCount)*0.03)
	score := clamp01(scaled + boost)

	return model.ComponentScore{
		Name:        "PaletteHarmony",
		Score:       score,
		Confidence:  confidenceForFields(items, "color"),
		Explanation: fmt.Sprintf("dominant relation over %d hued item(s), hue spread sigma=%.1f, %d neutral booster(s)", len(colors), sigma, neutralCount),
	}
}

// PatternMix penalizes more than one non-solid item beyond the first, and
// items sharing a pattern scale (§4.4).
func PatternMix(items []model.Item, rs ruleset.RuleSet, profile model.Profile, ctx model.Context, history []string) model.ComponentScore {
	pmax := rs.Thresholds.MaxPatterns
	if pmax <= 1 {
		pmax = 3
	}

	var patterned []model.Item
	for _, it := range items {
		if it.Pattern != "" && it.Pattern != "solid" {
			patterned = append(patterned, it)
		}
	}
	p := len(patterned)
	score := 1 - math.Max(0, float64(p-1))/float64(pmax-1)

	scaleCounts := make(map[string]int)
	for _, it := range patterned {
		if it.PatternScale != "" {
			scaleCounts[it.PatternScale]++
		}
	}
	for _, n := range scaleCounts {
		if n > 1 {
			score -= 0.1
		}
	}

	return model.ComponentScore{
		Name:        "PatternMix",
		Score:       clamp01(score),
		Confidence:  confidenceForFields(items, "pattern"),
		Explanation: fmt.Sprintf("%d non-solid item(s) against max %d", p, pmax),
	}
}

// SilhouetteBalance rewards top/bottom volume contrast and penalizes more
// than one structured layer (§4.4).
func SilhouetteBalance(items []model.Item, rs ruleset.RuleSet, profile model.Profile, ctx model.Context, history []string) model.ComponentScore {
	var top, bottom *model.Item
	structuredLayers := 0
	for i := range items {
		it := &items[i]
		if it.Slot == model.SlotTop && top == nil {
			top = it
		}
		if it.Slot == model.SlotBottom && bottom == nil {
			bottom = it
		}
		if it.ShoulderStructure == model.ShoulderStructured {
			structuredLayers++
		}
	}

	score := 0.75
	explanation := "no top/bottom pair to compare"
	if top != nil && bottom != nil {
		if isVoluminous(top.FitProfile) != isVoluminous(bottom.FitProfile) {
			score = 1.0
			explanation = "contrasting top/bottom volume"
		} else {
			score = 0.6
			explanation = "matching top/bottom volume"
		}
	}
	if structuredLayers > 1 {
		score -= 0.2
		explanation += fmt.Sprintf(", %d structured layers", structuredLayers)
	}

	return model.ComponentScore{
		Name:        "SilhouetteBalance",
		Score:       clamp01(score),
		Confidence:  confidenceForFields(items, "fit_profile"),
		Explanation: explanation,
	}
}

func isVoluminous(fit model.FitProfile) bool {
	return fit == model.FitOversize || fit == model.FitRelaxed
}

// FormalityCloseness scores 1 - |avg(formality)-target|/4, weighting
// top/outer/footwear double (§4.4).
func FormalityCloseness(items []model.Item, rs ruleset.RuleSet, profile model.Profile, ctx model.Context, history []string) model.ComponentScore {
	target := float64(ctx.EffectiveDressiness(profile))
	var weightedSum, weightTotal float64
	for _, it := range items {
		w := 1.0
		if it.Slot == model.SlotTop || it.Slot == model.SlotOuter || it.Slot == model.SlotFootwear {
			w = 2.0
		}
		weightedSum += w * float64(it.Formality)
		weightTotal += w
	}
	if weightTotal == 0 {
		return model.ComponentScore{Name: "FormalityCloseness", Score: 0.5, Confidence: 1, Explanation: "no items to evaluate"}
	}
	avg := weightedSum / weightTotal
	score := 1 - math.Abs(avg-target)/4

	return model.ComponentScore{
		Name:        "FormalityCloseness",
		Score:       clamp01(score),
		Confidence:  1,
		Explanation: fmt.Sprintf("weighted avg formality %.2f vs target %.0f", avg, target),
	}
}

// TemperatureFit rewards the fraction of items covering the requested band,
// with a bonus for an outer layer when the band is cold (§4.4).
func TemperatureFit(items []model.Item, rs ruleset.RuleSet, profile model.Profile, ctx model.Context, history []string) model.ComponentScore {
	if len(items) == 0 || ctx.TemperatureBand == "" {
		return model.ComponentScore{Name: "TemperatureFit", Score: 1, Confidence: 1, Explanation: "no temperature band to evaluate"}
	}
	covered := 0
	hasOuter := false
	for _, it := range items {
		if it.HasSeasonality(ctx.TemperatureBand) {
			covered++
		}
		if it.Slot == model.SlotOuter {
			hasOuter = true
		}
	}
	score := float64(covered) / float64(len(items))
	if ctx.TemperatureBand == model.SeasonCold && hasOuter {
		score = clamp01(score + 0.1)
	}
	return model.ComponentScore{
		Name:        "TemperatureFit",
		Score:       clamp01(score),
		Confidence:  1,
		Explanation: fmt.Sprintf("%d/%d items cover band %s", covered, len(items), ctx.TemperatureBand),
	}
}

// StyleTagMatch is the Jaccard similarity of the union of item tags with
// profile.style_signature, zeroed out if any forbidden tag is present.
func StyleTagMatch(items []model.Item, rs ruleset.RuleSet, profile model.Profile, ctx model.Context, history []string) model.ComponentScore {
	forbidden := make(map[string]bool, len(profile.Guardrails.Forbidden))
	for _, t := range profile.Guardrails.Forbidden {
		forbidden[t] = true
	}

	union := make(map[string]bool)
	for _, it := range items {
		for _, tag := range it.StyleTags {
			if forbidden[tag] {
				return model.ComponentScore{
					Name:        "StyleTagMatch",
					Score:       0,
					Confidence:  1,
					Explanation: "forbidden tag " + tag + " present",
				}
			}
			union[tag] = true
		}
	}

	signature := make(map[string]bool, len(profile.StyleSignature))
	for _, t := range profile.StyleSignature {
		signature[t] = true
	}

	if len(union) == 0 && len(signature) == 0 {
		return model.ComponentScore{Name: "StyleTagMatch", Score: 0.5, Confidence: 1, Explanation: "no style tags to compare"}
	}

	intersection := 0
	unionCount := len(signature)
	for tag := range union {
		if signature[tag] {
			intersection++
		} else {
			unionCount++
		}
	}
	score := 0.0
	if unionCount > 0 {
		score = float64(intersection) / float64(unionCount)
	}

	return model.ComponentScore{
		Name:        "StyleTagMatch",
		Score:       clamp01(score),
		Confidence:  confidenceForFields(items, "style_tags"),
		Explanation: fmt.Sprintf("jaccard overlap with style signature = %.2f", score),
	}
}

// NoveltyVariety penalizes items worn in the last N outfits, decayed by
// recency (most recent = strongest penalty).
func NoveltyVariety(items []model.Item, rs ruleset.RuleSet, profile model.Profile, ctx model.Context, history []string) model.ComponentScore {
	if len(history) == 0 {
		return model.ComponentScore{Name: "NoveltyVariety", Score: 1, Confidence: 1, Explanation: "no wear history"}
	}
	n := rs.Thresholds.NoveltyWindow
	if n <= 0 {
		n = 10
	}
	window := history
	if len(window) > n {
		window = window[:n]
	}
	positionOf := make(map[string]int, len(window))
	for i, id := range window {
		if _, seen := positionOf[id]; !seen {
			positionOf[id] = i
		}
	}

	var penalty float64
	repeats := 0
	for _, it := range items {
		if pos, worn := positionOf[it.ItemID]; worn {
			repeats++
			decay := 1 - float64(pos)/float64(len(window))
			penalty += decay / float64(len(items))
		}
	}

	return model.ComponentScore{
		Name:        "NoveltyVariety",
		Score:       clamp01(1 - penalty),
		Confidence:  1,
		Explanation: fmt.Sprintf("%d item(s) repeat within last %d outfits", repeats, len(window)),
	}
}

// AccessoryConsistency enforces leather/metal family matching per the
// ruleset's accessory mode.
func AccessoryConsistency(items []model.Item, rs ruleset.RuleSet, profile model.Profile, ctx model.Context, history []string) model.ComponentScore {
	if rs.AccessoryMode == ruleset.AccessoryFree {
		return model.ComponentScore{Name: "AccessoryConsistency", Score: 1, Confidence: 1, Explanation: "free accessory mode"}
	}

	leatherFamilies := make(map[string]int)
	metalKeys := make(map[string]int)
	for _, it := range items {
		if it.LeatherFamily != "" {
			leatherFamilies[it.LeatherFamily]++
		}
		if it.MetalFamily != "" {
			metalKeys[it.MetalFamily+"/"+it.MetalFinish]++
		}
	}
	mismatches := distinctBeyondOne(leatherFamilies) + distinctBeyondOne(metalKeys)

	if rs.AccessoryMode == ruleset.AccessoryStrictFamily {
		if mismatches > 0 {
			return model.ComponentScore{Name: "AccessoryConsistency", Score: 0, Confidence: 1, Explanation: "leather/metal family mismatch under strict_family"}
		}
		return model.ComponentScore{Name: "AccessoryConsistency", Score: 1, Confidence: 1, Explanation: "consistent families"}
	}

	// coordinated: at most one mismatch with linear decay.
	score := 1.0
	if mismatches == 1 {
		score = 0.6
	} else if mismatches > 1 {
		score = math.Max(0, 0.6-0.2*float64(mismatches-1))
	}
	return model.ComponentScore{
		Name:        "AccessoryConsistency",
		Score:       clamp01(score),
		Confidence:  1,
		Explanation: fmt.Sprintf("%d family mismatch(es) under coordinated mode", mismatches),
	}
}

func distinctBeyondOne(counts map[string]int) int {
	if len(counts) <= 1 {
		return 0
	}
	return len(counts) - 1
}

// SkinSynergy scores near-face items against the user's declared skin LCh
// and synergy style, falling back to a neutral 0.5 if the signature is
// absent (§8 property 5).
func SkinSynergy(items []model.Item, rs ruleset.RuleSet, profile model.Profile, ctx model.Context, history []string) model.ComponentScore {
	if !profile.Appearance.Present {
		return model.ComponentScore{Name: "SkinSynergy", Score: 0.5, Confidence: 1, Explanation: "no appearance signature declared"}
	}

	var nearFace []model.Item
	for _, it := range items {
		if nearFaceSlots[it.Slot] && it.Color != nil {
			nearFace = append(nearFace, it)
		}
	}
	if len(nearFace) == 0 {
		return model.ComponentScore{Name: "SkinSynergy", Score: 0.5, Confidence: 1, Explanation: "no near-face colored items"}
	}

	bandCenter, bandWidth := synergyBand(profile.Appearance.SynergyStyle, profile.Appearance.Undertone)

	var sum float64
	for _, it := range nearFace {
		deltaE := color.DeltaE2000(profile.Appearance.SkinLCh, *it.Color)
		deviation := deltaE - bandCenter
		sum += math.Exp(-(deviation * deviation) / (2 * bandWidth * bandWidth))
	}
	score := sum / float64(len(nearFace))

	return model.ComponentScore{
		Name:        "SkinSynergy",
		Score:       clamp01(score),
		Confidence:  confidenceForFields(nearFace, "color"),
		Explanation: fmt.Sprintf("%d near-face item(s) scored against %s band", len(nearFace), profile.Appearance.SynergyStyle),
	}
}

// synergyBand returns the preferred ΔE band center and a gaussian width for
// a synergy style: contrast >= 25, harmonize <= 15, auto picks by
// undertone (warm leans harmonize, cool/neutral leans contrast).
func synergyBand(style, undertone string) (center, width float64) {
	switch style {
	case "contrast":
		return 30, 10
	case "harmonize":
		return 10, 8
	default: // auto
		if undertone == "warm" {
			return 10, 8
		}
		return 30, 10
	}
}

// ProportionFit is a rule lookup by declared body traits, falling back to
// neutral 0.5 when absent (§8 property 5).
func ProportionFit(items []model.Item, rs ruleset.RuleSet, profile model.Profile, ctx model.Context, history []string) model.ComponentScore {
	if !profile.Body.Present {
		return model.ComponentScore{Name: "ProportionFit", Score: 0.5, Confidence: 1, Explanation: "no body signature declared"}
	}

	traits := make(map[string]bool, len(profile.Body.Traits))
	for _, t := range profile.Body.Traits {
		traits[t] = true
	}

	var bottom *model.Item
	var outer *model.Item
	for i := range items {
		it := &items[i]
		if it.Slot == model.SlotBottom && bottom == nil {
			bottom = it
		}
		if it.Slot == model.SlotOuter && outer == nil {
			outer = it
		}
	}

	score := 0.6
	var reasons []string
	if traits["long_torso"] && bottom != nil && bottom.BottomRiseClass == "high_rise" {
		score += 0.25
		reasons = append(reasons, "long_torso favored by high_rise bottom")
	}
	if traits["petite"] && outer != nil && outer.TopLengthClass == "long" {
		score -= 0.25
		reasons = append(reasons, "petite penalized by long outer")
	}

	explanation := "no matching proportion rule"
	if len(reasons) > 0 {
		explanation = joinReasons(reasons)
	}

	return model.ComponentScore{
		Name:        "ProportionFit",
		Score:       clamp01(score),
		Confidence:  1,
		Explanation: explanation,
	}
}

func joinReasons(reasons []string) string {
	out := reasons[0]
	for _, r := range reasons[1:] {
		out += "; " + r
	}
	return out
}

// confidenceForFields returns the minimum per-item confidence across the
// given fields, for items where the field is populated.
func confidenceForFields(items []model.Item, fields ...string) float64 {
	min := 1.0
	for _, it := range items {
		if c := it.MinConfidence(fields...); c < min {
			min = c
		}
	}
	return min
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
