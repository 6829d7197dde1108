// Package ruleset defines the versioned, immutable RuleSet (§3): the
// layering graph, template registry, hard-constraint thresholds, scoring
// weights, and accessory-consistency mode. A RuleSet is captured once per
// request (snapshot semantics, §9) and never mutated afterward.
package ruleset

import (
	"fmt"

	"github.com/outfitforge/bundleengine/internal/model"
)

// AccessoryMode governs AccessoryConsistency scoring (§3).
type AccessoryMode string

const (
	AccessoryStrictFamily AccessoryMode = "strict_family"
	AccessoryCoordinated  AccessoryMode = "coordinated"
	AccessoryFree         AccessoryMode = "free"
)

// LayeringEdge declares that From must be worn at-or-before To in the
// layering order (e.g. top -> mid -> outer).
type LayeringEdge struct {
	From model.Slot `yaml:"from"`
	To   model.Slot `yaml:"to"`
}

// Template is a per-occasion recipe (§3).
type Template struct {
	ID               string     `yaml:"id"`
	Occasion         string     `yaml:"occasion"`
	AnchorSlot       model.Slot `yaml:"anchor_slot"`
	RequiredSlots    []model.Slot `yaml:"required_slots"`
	OptionalSlots    []model.Slot `yaml:"optional_slots"`
	DressinessMin    int        `yaml:"dressiness_min"`
	DressinessMax    int        `yaml:"dressiness_max"`
	// SlotOrder is the template-declared expansion sequence after the
	// anchor; accessories should be listed last (§4.6 step 2).
	SlotOrder []model.Slot `yaml:"slot_order"`
}

// Matches reports whether t is a candidate template for occasion/dressiness.
func (t Template) Matches(occasion string, dressiness int) bool {
	return t.Occasion == occasion && dressiness >= t.DressinessMin && dressiness <= t.DressinessMax
}

// AllSlots returns the anchor, then SlotOrder, then required and optional
// slots, deduplicated.
func (t Template) AllSlots() []model.Slot {
	seen := make(map[model.Slot]bool)
	var out []model.Slot
	add := func(s model.Slot) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	add(t.AnchorSlot)
	for _, s := range t.SlotOrder {
		add(s)
	}
	for _, s := range t.RequiredSlots {
		add(s)
	}
	for _, s := range t.OptionalSlots {
		add(s)
	}
	return out
}

// IsRequired reports whether slot is mandatory for coverage (§4.3 Coverage).
func (t Template) IsRequired(slot model.Slot) bool {
	for _, s := range t.RequiredSlots {
		if s == slot {
			return true
		}
	}
	return slot == t.AnchorSlot
}

// Weights holds the nonnegative per-component soft-scoring weights (§4.4
// defaults given in parens there); renormalized over present components at
// aggregation time.
type Weights struct {
	PaletteHarmony    float64 `yaml:"palette_harmony"`
	PatternMix        float64 `yaml:"pattern_mix"`
	SilhouetteBalance float64 `yaml:"silhouette_balance"`
	FormalityCloseness float64 `yaml:"formality_closeness"`
	TemperatureFit    float64 `yaml:"temperature_fit"`
	StyleTagMatch     float64 `yaml:"style_tag_match"`
	NoveltyVariety    float64 `yaml:"novelty_variety"`
	AccessoryConsistency float64 `yaml:"accessory_consistency"`
	SkinSynergy       float64 `yaml:"skin_synergy"`
	ProportionFit     float64 `yaml:"proportion_fit"`
}

// DefaultWeights returns the §4.4 defaults.
func DefaultWeights() Weights {
	return Weights{
		PaletteHarmony:       0.22,
		PatternMix:           0.12,
		SilhouetteBalance:    0.12,
		FormalityCloseness:   0.14,
		TemperatureFit:       0.10,
		StyleTagMatch:        0.08,
		NoveltyVariety:       0.05,
		AccessoryConsistency: 0.07,
		SkinSynergy:          0.08,
		ProportionFit:        0.10,
	}
}

// Thresholds holds the ΔE bands and count caps referenced throughout §4.
type Thresholds struct {
	NeutralChroma          float64 `yaml:"neutral_chroma"`            // default 10 (§9 open question)
	MaxPatterns            int     `yaml:"max_patterns"`              // Pmax in §4.4 PatternMix
	MaxPatternScales       int     `yaml:"max_pattern_scales"`
	FormalityToleranceLow  int     `yaml:"formality_tolerance_low"`
	FormalityToleranceHigh int     `yaml:"formality_tolerance_high"`
	NoveltyWindow          int     `yaml:"novelty_window"` // N in NoveltyVariety
	PreferStrictBreakPenalty float64 `yaml:"prefer_strict_break_penalty"` // default 0.15 (§9 open question)
}

// DefaultThresholds returns the engine's documented defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		NeutralChroma:            10,
		MaxPatterns:              3,
		MaxPatternScales:         2,
		FormalityToleranceLow:    1,
		FormalityToleranceHigh:   1,
		NoveltyWindow:            10,
		PreferStrictBreakPenalty: 0.15,
	}
}

// RuleSet is the immutable, versioned bundle described by §3.
type RuleSet struct {
	RuleSetID string
	Version   string

	Layering          []LayeringEdge
	Templates         []Template
	Weights           Weights
	Thresholds        Thresholds
	AccessoryMode     AccessoryMode
	AllowCatalog      bool
	BeamWidth         int // W in §4.6, default 8
	AnchorShortlistK  int // default 40
	SlotShortlistK    int // default 20
}

// Validate checks structural invariants: a version is set, the layering
// graph is acyclic (§4.3 Layering order), and at least one template exists.
// The slots a template names are not checked.
func (rs RuleSet) Validate() error {
	if rs.Version == "" {
		return fmt.Errorf("ruleset: version is required")
	}
	if _, err := rs.topologicalOrder(); err != nil {
		return fmt.Errorf("ruleset: layering graph invalid: %w", err)
	}
	if len(rs.Templates) == 0 {
		return fmt.Errorf("ruleset: at least one template is required")
	}
	return nil
}

// topologicalOrder returns a topological ordering of the slot classes named
// by the layering graph, or an error if the graph has a cycle.
func (rs RuleSet) topologicalOrder() ([]model.Slot, error) {
	indeg := make(map[model.Slot]int)
	adj := make(map[model.Slot][]model.Slot)
	nodes := make(map[model.Slot]bool)

	for _, e := range rs.Layering {
		nodes[e.From] = true
		nodes[e.To] = true
		adj[e.From] = append(adj[e.From], e.To)
		indeg[e.To]++
	}

	var queue []model.Slot
	for n := range nodes {
		if indeg[n] == 0 {
			queue = append(queue, n)
		}
	}

	var order []model.Slot
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		for _, m := range adj[n] {
			indeg[m]--
			if indeg[m] == 0 {
				queue = append(queue, m)
			}
		}
	}

	if len(order) != len(nodes) {
		return nil, fmt.Errorf("cycle detected in layering graph")
	}
	return order, nil
}

// LayerRank returns each slot's position in the layering topological order,
// for the Layering-order hard constraint (§4.3): a committed set of slots
// is valid only if their ranks form a prefix-compatible subset (no slot
// appears before a slot the graph requires to precede it).
func (rs RuleSet) LayerRank() map[model.Slot]int {
	order, err := rs.topologicalOrder()
	rank := make(map[model.Slot]int)
	if err != nil {
		return rank
	}
	for i, s := range order {
		rank[s] = i
	}
	return rank
}

// TemplateFor selects the template whose dressiness range contains
// dressiness and whose occasion matches, per §4.6 step 1. Ties are broken
// by lower DressinessMax (tighter fit) then template ID, approximating
// "profile affinity, template id" when no affinity signal is supplied by
// the caller.
func (rs RuleSet) TemplateFor(occasion string, dressiness int) (Template, bool) {
	var best Template
	found := false
	for _, t := range rs.Templates {
		if !t.Matches(occasion, dressiness) {
			continue
		}
		if !found || t.DressinessMax < best.DressinessMax ||
			(t.DressinessMax == best.DressinessMax && t.ID < best.ID) {
			best = t
			found = true
		}
	}
	return best, found
}
