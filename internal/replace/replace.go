// Package replace implements the Replace Planner (§4.7): single-slot
// replacement with cohesion-policy-aware cascade planning.
package replace

import (
	"context"
	"sort"

	"github.com/outfitforge/bundleengine/internal/constraint"
	"github.com/outfitforge/bundleengine/internal/enginerr"
	"github.com/outfitforge/bundleengine/internal/index"
	"github.com/outfitforge/bundleengine/internal/model"
	"github.com/outfitforge/bundleengine/internal/retrieve"
	"github.com/outfitforge/bundleengine/internal/ruleset"
	"github.com/outfitforge/bundleengine/internal/scoring"
)

// Alternative is one ranked replacement candidate (§4.7 output shape).
type Alternative struct {
	ItemID          string
	NewScore        float64
	DeltaVsCurrent  float64
	RequiresCascade bool
	CascadePlan     []CascadeStep
	CoherenceReason string
}

// CascadeStep names a slot whose current occupant must also be replaced,
// and the proposed replacement item from the new group.
type CascadeStep struct {
	Slot   model.Slot
	ItemID string
}

// Request describes a single-slot replacement call.
type Request struct {
	UserID       string
	Bundle       model.Bundle
	Items        map[string]model.Item // every item referenced by Bundle, by id
	Slot         model.Slot
	RuleSet      ruleset.RuleSet
	Profile      model.Profile
	Context      model.Context
	AllowCatalog bool
	History      []string
	Cache        *retrieve.ShortlistCache

	// Locks lists slots the caller forbids touching. Plan does not read it:
	// only Slot is re-ranked, and a cascade plan lists every other member
	// of the current strict group whatever Locks holds.
	Locks []model.Slot
}

// Plan ranks alternatives for req.Slot per the current occupant's cohesion
// policy (§4.7).
func Plan(ctx context.Context, idx index.Query, req Request) ([]Alternative, error) {
	currentID, hasCurrent := req.Bundle.Items[req.Slot]
	var current model.Item
	if hasCurrent {
		current = req.Items[currentID]
	}

	fixed := fixedItems(req, req.Slot)

	candidates, err := retrieve.ShortlistCached(ctx, idx, req.Cache, retrieve.Request{
		UserID:       req.UserID,
		Slot:         req.Slot,
		RuleSet:      req.RuleSet,
		Profile:      req.Profile,
		Context:      req.Context,
		AllowCatalog: req.AllowCatalog,
		K:            req.RuleSet.SlotShortlistK,
	})
	if err != nil {
		return nil, enginerr.Wrap(enginerr.IndexError, "replace: shortlist retrieval failed", err)
	}

	switch {
	case hasCurrent && current.SetCohesionPolicy == model.CohesionStrict && current.GroupID != "":
		return planStrict(candidates, req, fixed, current)
	case hasCurrent && current.SetCohesionPolicy == model.CohesionPreferStrict && current.GroupID != "":
		return planPreferStrict(candidates, req, fixed, current)
	default:
		return planLoose(candidates, req, fixed)
	}
}

// fixedItems returns every bundle item except the target slot's occupant.
func fixedItems(req Request, exclude model.Slot) []model.Item {
	var out []model.Item
	for slot, id := range req.Bundle.Items {
		if slot == exclude {
			continue
		}
		if it, ok := req.Items[id]; ok {
			out = append(out, it)
		}
	}
	return out
}

// planStrict restricts alternatives to the current group only; anything
// else requires a full cascade.
func planStrict(candidates []retrieve.Candidate, req Request, fixed []model.Item, current model.Item) ([]Alternative, error) {
	var alts []Alternative
	for _, cand := range candidates {
		if cand.Item.GroupID == current.GroupID {
			alts = append(alts, rescore(cand.Item, req, fixed, false, nil, "same strict group"))
			continue
		}
		plan := cascadePlanFor(req, current, cand.Item)
		alts = append(alts, rescore(cand.Item, req, fixed, true, plan, "different strict group requires cascade"))
	}
	sortAlternatives(alts)
	return alts, nil
}

// planPreferStrict tries same-group alternatives first (no penalty), then
// allows other-group items with the ruleset-configured break penalty.
func planPreferStrict(candidates []retrieve.Candidate, req Request, fixed []model.Item, current model.Item) ([]Alternative, error) {
	var sameGroup, other []Alternative
	for _, cand := range candidates {
		if cand.Item.GroupID == current.GroupID {
			sameGroup = append(sameGroup, rescore(cand.Item, req, fixed, false, nil, "same group, preferred"))
			continue
		}
		alt := rescore(cand.Item, req, fixed, false, nil, "breaks prefer_strict group")
		alt.NewScore -= req.RuleSet.Thresholds.PreferStrictBreakPenalty
		alt.DeltaVsCurrent -= req.RuleSet.Thresholds.PreferStrictBreakPenalty
		other = append(other, alt)
	}
	sortAlternatives(sameGroup)
	sortAlternatives(other)
	return append(sameGroup, other...), nil
}

// planLoose ranks by unary score times rescored compatibility with fixed
// items (then item id); no cohesion restriction applies.
func planLoose(candidates []retrieve.Candidate, req Request, fixed []model.Item) ([]Alternative, error) {
	var alts []Alternative
	unary := make(map[string]float64, len(candidates))
	for _, cand := range candidates {
		alts = append(alts, rescore(cand.Item, req, fixed, false, nil, "loose replacement"))
		unary[cand.Item.ItemID] = cand.Unary
	}
	sort.Slice(alts, func(i, j int) bool {
		ki, kj := unary[alts[i].ItemID]*alts[i].NewScore, unary[alts[j].ItemID]*alts[j].NewScore
		if ki != kj {
			return ki > kj
		}
		return alts[i].ItemID < alts[j].ItemID
	})
	return alts, nil
}

// rescore commits candidate into the fixed set, checks hard constraints,
// and computes the bundle-level score delta vs the current occupant.
func rescore(candidate model.Item, req Request, fixed []model.Item, requiresCascade bool, plan []CascadeStep, reason string) Alternative {
	trial := append(append([]model.Item(nil), fixed...), candidate)

	committed := map[model.Slot]model.Item{req.Slot: candidate}
	for _, it := range fixed {
		committed[it.Slot] = it
	}
	state := constraint.State{Committed: committed, Template: templateFor(req)}
	if v := constraint.CheckAll(state, req.RuleSet, req.Context, req.Profile); v != nil {
		return Alternative{ItemID: candidate.ItemID, NewScore: 0, CoherenceReason: "hard constraint violated: " + string(v.Code)}
	}

	newScore, _ := scoring.Aggregate(trial, req.RuleSet, req.Profile, req.Context, req.History)

	return Alternative{
		ItemID:          candidate.ItemID,
		NewScore:        newScore,
		DeltaVsCurrent:  newScore - req.Bundle.Score,
		RequiresCascade: requiresCascade,
		CascadePlan:     plan,
		CoherenceReason: reason,
	}
}

// templateFor recovers a minimal template view for hard-constraint checks
// during replacement; replace operates on an already-complete bundle so
// only the layering graph and accessory/cap rules are load-bearing here.
func templateFor(req Request) ruleset.Template {
	for _, t := range req.RuleSet.Templates {
		if t.ID == req.Bundle.TemplateID {
			return t
		}
	}
	return ruleset.Template{}
}

// cascadePlanFor lists the other slots whose occupants belong to current's
// strict group and must be replaced with the matching member of
// replacement's group.
func cascadePlanFor(req Request, current model.Item, replacement model.Item) []CascadeStep {
	var plan []CascadeStep
	for slot, id := range req.Bundle.Items {
		it, ok := req.Items[id]
		if !ok || it.GroupID != current.GroupID || it.ItemID == current.ItemID {
			continue
		}
		plan = append(plan, CascadeStep{Slot: slot, ItemID: sameRoleMemberOf(replacement.GroupID, it, req)})
	}
	sort.Slice(plan, func(i, j int) bool { return plan[i].Slot < plan[j].Slot })
	return plan
}

// sameRoleMemberOf looks up the replacement group's member with the same
// set_role as old, among the items known to this request.
func sameRoleMemberOf(groupID string, old model.Item, req Request) string {
	for _, it := range req.Items {
		if it.GroupID == groupID && it.SetRole == old.SetRole {
			return it.ItemID
		}
	}
	return ""
}

func sortAlternatives(alts []Alternative) {
	sort.Slice(alts, func(i, j int) bool {
		if alts[i].NewScore != alts[j].NewScore {
			return alts[i].NewScore > alts[j].NewScore
		}
		return alts[i].ItemID < alts[j].ItemID
	})
}
