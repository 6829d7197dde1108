package model

import "sort"

// ComponentScore is one soft-scoring component's contribution (§4.4).
type ComponentScore struct {
	Name        string  `json:"name"`
	Weight      float64 `json:"weight"`      // ruleset weight, renormalized
	Score       float64 `json:"score"`       // raw score in [0,1]
	Confidence  float64 `json:"confidence"`  // min confidence of inputs
	Explanation string  `json:"explanation"`
}

// SlotDetail is per-slot explain detail (§12): the unary retrieval score the
// committed item scored in isolation, and the names of the named hard
// constraints it passed on commit.
type SlotDetail struct {
	ItemID            string   `json:"item_id"`
	UnaryScore        float64  `json:"unary_score"`
	PassedConstraints []string `json:"passed_constraints"`
}

// Bundle is a complete (or partial, if Partial=true) outfit: a mapping of
// slot to item plus aggregate scoring (§3).
type Bundle struct {
	Items      map[Slot]string   `json:"items"` // slot -> item_id
	GroupItems map[Slot]string   `json:"group_items,omitempty"` // slot -> item_id, committed atomically with an anchor group
	Score      float64           `json:"score"`
	Components []ComponentScore  `json:"components"`

	// SlotDetails carries the explain-time detail for every committed
	// slot: the unary retrieval score and the hard constraints passed.
	SlotDetails map[Slot]SlotDetail `json:"slot_details,omitempty"`

	TemplateID     string `json:"template_id"`
	RuleSetVersion string `json:"ruleset_version"`
	TieBreakToken  string `json:"tie_break_token"`

	Partial bool `json:"partial,omitempty"`
}

// AllItemIDs returns every item id in the bundle (Items plus GroupItems),
// sorted, for stable tie-break comparisons.
func (b Bundle) AllItemIDs() []string {
	ids := make([]string, 0, len(b.Items)+len(b.GroupItems))
	for _, id := range b.Items {
		ids = append(ids, id)
	}
	for _, id := range b.GroupItems {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
