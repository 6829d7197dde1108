// Package constraint implements the Hard-Constraint Engine (§4.3): pure,
// monotone predicates over a partial bundle. A constraint that fails on a
// partial must fail on every extension of that partial, which is what lets
// the beam search assembler prune early.
package constraint

import (
	"github.com/outfitforge/bundleengine/internal/model"
	"github.com/outfitforge/bundleengine/internal/ruleset"
)

// Code identifies which named constraint produced a Violation.
type Code string

const (
	CodeLayeringOrder       Code = "LAYERING_ORDER"
	CodeOnePieceExclusivity Code = "ONE_PIECE_EXCLUSIVITY"
	CodeStrictCoordIncomplete Code = "STRICT_COORD_INCOMPLETE"
	CodeStrictCoordConflict Code = "STRICT_COORD_CONFLICT"
	CodeFormalityBounds     Code = "FORMALITY_BOUNDS"
	CodeTemperatureSafety   Code = "TEMPERATURE_SAFETY"
	CodeCatalogCap          Code = "CATALOG_CAP"
	CodeBeltRule            Code = "BELT_RULE"
	CodeCoverage            Code = "COVERAGE"
)

// Violation reports a failed constraint: its code, the offending items, and
// a short human-readable reason.
type Violation struct {
	Code           Code
	OffendingItems []string
	Reason         string
}

// State is the partial-bundle view constraints evaluate over: the committed
// items (slot -> item, carrying their full attributes) plus the template
// being filled.
type State struct {
	Committed map[model.Slot]model.Item
	Template  ruleset.Template
}

// Items returns the committed items in a stable, item-id-sorted order.
func (s State) Items() []model.Item {
	out := make([]model.Item, 0, len(s.Committed))
	for _, it := range s.Committed {
		out = append(out, it)
	}
	sortItemsByID(out)
	return out
}

func sortItemsByID(items []model.Item) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j].ItemID < items[j-1].ItemID; j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}

// Checker evaluates one named hard constraint.
type Checker func(state State, rs ruleset.RuleSet, ctx model.Context, profile model.Profile) *Violation

// All returns the required §4.3 constraints in the order they should be
// checked (cheapest/most-discriminating first: structural checks before the
// coverage check, which only applies at completion).
func All() []Checker {
	return []Checker{
		CheckLayeringOrder,
		CheckOnePieceExclusivity,
		CheckStrictCoordIntegrity,
		CheckFormalityBounds,
		CheckTemperatureSafety,
		CheckCatalogCap,
		CheckBeltRule,
	}
}

// PassedNames names the constraints checked by CheckAll, in the same order
// as All(). Since CheckAll returns on the first violation, a nil result
// means the committed state passed every one of these, in this order —
// the explain-time "hard constraints it passed" list (§12).
func PassedNames() []string {
	return []string{
		string(CodeLayeringOrder),
		string(CodeOnePieceExclusivity),
		string(CodeStrictCoordConflict),
		string(CodeFormalityBounds),
		string(CodeTemperatureSafety),
		string(CodeCatalogCap),
		string(CodeBeltRule),
	}
}

// CheckAll runs every constraint except Coverage (which is completion-only,
// see CheckCoverage) and returns the first violation found, or nil.
func CheckAll(state State, rs ruleset.RuleSet, ctx model.Context, profile model.Profile) *Violation {
	for _, check := range All() {
		if v := check(state, rs, ctx, profile); v != nil {
			return v
		}
	}
	return nil
}

// CheckLayeringOrder verifies the committed slots form a subset consistent
// with a topological order of the layering graph: no slot may be committed
// if the graph declares a predecessor slot class that is not also
// committed. Monotone: once a required predecessor is missing, no future
// commit of the same slot set removes the violation (it can only be fixed
// by committing the predecessor, which is exactly the extension path the
// beam search continues to explore).
func CheckLayeringOrder(state State, rs ruleset.RuleSet, ctx model.Context, profile model.Profile) *Violation {
	predecessors := make(map[model.Slot][]model.Slot)
	for _, e := range rs.Layering {
		predecessors[e.To] = append(predecessors[e.To], e.From)
	}

	for slot := range state.Committed {
		for _, pred := range predecessors[slot] {
			if _, ok := state.Committed[pred]; !ok {
				return &Violation{
					Code:           CodeLayeringOrder,
					OffendingItems: []string{state.Committed[slot].ItemID},
					Reason:         "slot " + string(slot) + " committed before required predecessor " + string(pred),
				}
			}
		}
	}
	return nil
}

// CheckOnePieceExclusivity: if a one_piece item is committed, no top/mid/
// bottom item may also be committed.
func CheckOnePieceExclusivity(state State, rs ruleset.RuleSet, ctx model.Context, profile model.Profile) *Violation {
	onePiece, hasOnePiece := state.Committed[model.SlotOnePiece]
	if !hasOnePiece {
		return nil
	}
	for _, conflict := range []model.Slot{model.SlotTop, model.SlotMid, model.SlotBottom} {
		if it, ok := state.Committed[conflict]; ok {
			return &Violation{
				Code:           CodeOnePieceExclusivity,
				OffendingItems: []string{onePiece.ItemID, it.ItemID},
				Reason:         "one_piece item present alongside " + string(conflict),
			}
		}
	}
	return nil
}

// CheckStrictCoordIntegrity: once an item with set_cohesion_policy = strict
// is committed, no item from a different strict group may appear. It does
// not check that the strict group is complete; that is CheckCoverage's job.
func CheckStrictCoordIntegrity(state State, rs ruleset.RuleSet, ctx model.Context, profile model.Profile) *Violation {
	var strictGroup string

	for _, it := range state.Items() {
		if it.SetCohesionPolicy != model.CohesionStrict || it.GroupID == "" {
			continue
		}
		if strictGroup == "" {
			strictGroup = it.GroupID
		} else if it.GroupID != strictGroup {
			return &Violation{
				Code:           CodeStrictCoordConflict,
				OffendingItems: []string{it.ItemID},
				Reason:         "item from strict group " + it.GroupID + " conflicts with already-committed strict group " + strictGroup,
			}
		}
	}

	return nil // incompleteness of a strict group is a Coverage-time check; see CheckCoverage
}

// CheckFormalityBounds: every committed item's formality must fall within
// [target-tol_lo, target+tol_hi].
func CheckFormalityBounds(state State, rs ruleset.RuleSet, ctx model.Context, profile model.Profile) *Violation {
	target := ctx.EffectiveDressiness(profile)
	lo := target - rs.Thresholds.FormalityToleranceLow
	hi := target + rs.Thresholds.FormalityToleranceHigh
	for _, it := range state.Items() {
		if it.Formality < lo || it.Formality > hi {
			return &Violation{
				Code:           CodeFormalityBounds,
				OffendingItems: []string{it.ItemID},
				Reason:         "formality out of bounds for target dressiness",
			}
		}
	}
	return nil
}

// CheckTemperatureSafety: every committed item must cover the requested
// temperature band (its seasonality must include the band), unless the
// request context carries no temperature band.
func CheckTemperatureSafety(state State, rs ruleset.RuleSet, ctx model.Context, profile model.Profile) *Violation {
	if ctx.TemperatureBand == "" {
		return nil
	}
	for _, it := range state.Items() {
		if !it.HasSeasonality(ctx.TemperatureBand) {
			return &Violation{
				Code:           CodeTemperatureSafety,
				OffendingItems: []string{it.ItemID},
				Reason:         "item seasonality excludes temperature band " + string(ctx.TemperatureBand),
			}
		}
	}
	return nil
}

// CheckCatalogCap: at most one owner=catalog item when allow_catalog=true,
// zero otherwise.
func CheckCatalogCap(state State, rs ruleset.RuleSet, ctx model.Context, profile model.Profile) *Violation {
	var catalogItems []string
	for _, it := range state.Items() {
		if it.Owner == model.OwnerCatalog {
			catalogItems = append(catalogItems, it.ItemID)
		}
	}
	if len(catalogItems) == 0 {
		return nil
	}
	if !rs.AllowCatalog {
		return &Violation{Code: CodeCatalogCap, OffendingItems: catalogItems, Reason: "catalog items not allowed by ruleset"}
	}
	if len(catalogItems) > 1 {
		return &Violation{Code: CodeCatalogCap, OffendingItems: catalogItems, Reason: "more than one catalog item committed"}
	}
	return nil
}

// CheckBeltRule: if bottom-slot trousers have belt loops and target
// dressiness >= 4, a belt must be committed once the belt slot has been
// reached in the template's slot order (checked as a coverage-time rule so
// it doesn't falsely prune partials that simply haven't reached the belt
// slot yet).
func CheckBeltRule(state State, rs ruleset.RuleSet, ctx model.Context, profile model.Profile) *Violation {
	bottom, hasBottom := state.Committed[model.SlotBottom]
	if !hasBottom || !bottom.BeltLoops {
		return nil
	}
	target := ctx.EffectiveDressiness(profile)
	if target < 4 {
		return nil
	}
	if !state.Template.IsRequired(model.SlotBelt) {
		return nil
	}
	if _, committed := state.Committed[model.SlotBelt]; committed {
		return nil
	}
	beltReached := false
	for _, s := range state.Template.SlotOrder {
		if s == model.SlotBelt {
			beltReached = true
		}
	}
	if !beltReached {
		return nil
	}
	return &Violation{
		Code:           CodeBeltRule,
		OffendingItems: []string{bottom.ItemID},
		Reason:         "belt required for belt-looped trousers at this dressiness but not committed",
	}
}

// CheckCoverage is completion-only (§4.3): the minimum mandatory slots for
// the template must be filled, and any strict co-ord group must be
// complete. It is not in All()/CheckAll because it is not monotone in the
// same sense — a partial bundle is expected to be incomplete mid-search;
// it is only a violation once the assembler declares a beam terminal.
func CheckCoverage(state State, rs ruleset.RuleSet) *Violation {
	// A strict group's own incompleteness is more specific than, and takes
	// priority over, the generic required-slot check below: a strict group
	// present with a required slot unfilled is STRICT_COORD_INCOMPLETE
	// whether that slot is empty or filled from a different group.
	groupMembers := make(map[string][]model.Item)
	for _, it := range state.Items() {
		if it.GroupID != "" {
			groupMembers[it.GroupID] = append(groupMembers[it.GroupID], it)
		}
	}
	for groupID, members := range groupMembers {
		if members[0].SetCohesionPolicy != model.CohesionStrict {
			continue
		}
		committedSlots := make(map[model.Slot]bool)
		for _, m := range members {
			committedSlots[m.Slot] = true
		}
		for _, slot := range state.Template.AllSlots() {
			if !state.Template.IsRequired(slot) || committedSlots[slot] {
				continue
			}
			// A required slot filled by an ungrouped item is an independent
			// requirement this group has no claim over (e.g. a shirt beside
			// a strict jacket+trousers pair); only an empty slot, or one
			// filled from a different group, counts against this group.
			if occupant, filled := state.Committed[slot]; filled && occupant.GroupID == "" {
				continue
			}
			return &Violation{
				Code:           CodeStrictCoordIncomplete,
				OffendingItems: groupItemIDs(members),
				Reason:         "strict group " + groupID + " incomplete: required slot " + string(slot) + " not filled from the same group",
			}
		}
	}

	for _, slot := range state.Template.RequiredSlots {
		if _, ok := state.Committed[slot]; !ok {
			return &Violation{Code: CodeCoverage, Reason: "required slot " + string(slot) + " not filled"}
		}
	}
	if _, ok := state.Committed[state.Template.AnchorSlot]; !ok {
		return &Violation{Code: CodeCoverage, Reason: "anchor slot " + string(state.Template.AnchorSlot) + " not filled"}
	}
	return nil
}

func groupItemIDs(items []model.Item) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ItemID
	}
	return ids
}
