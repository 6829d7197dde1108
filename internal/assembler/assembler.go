// Package assembler implements the Beam Search Assembler (§4.6): template
// selection, anchor-first slot ordering, beam expansion pruned by hard
// constraints and ranked by running soft score, with per-partial scoring
// fanned out across goroutines via golang.org/x/sync/errgroup and merged
// by a deterministic composite key.
package assembler

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/outfitforge/bundleengine/internal/color"
	"github.com/outfitforge/bundleengine/internal/constraint"
	"github.com/outfitforge/bundleengine/internal/enginerr"
	"github.com/outfitforge/bundleengine/internal/index"
	"github.com/outfitforge/bundleengine/internal/model"
	"github.com/outfitforge/bundleengine/internal/retrieve"
	"github.com/outfitforge/bundleengine/internal/ruleset"
	"github.com/outfitforge/bundleengine/internal/scoring"
)

// partial is one beam entry: the committed state, its running aggregate
// score, per-component explanations, its catalog-item count, and the unary
// retrieval score of each committed slot.
type partial struct {
	state        constraint.State
	score        float64
	components   []model.ComponentScore
	catalogCount int
	unary        map[model.Slot]float64
}

// tieBreakToken is the lexicographically sorted tuple of committed item ids,
// used as the final leg of every comparator (§5 "all comparators include an
// item-id lexicographic tie-breaker").
func (p partial) tieBreakToken() string {
	ids := p.state.Items()
	idStrs := make([]string, len(ids))
	for i, it := range ids {
		idStrs[i] = it.ItemID
	}
	sort.Strings(idStrs)
	token := ""
	for _, id := range idStrs {
		token += id + "|"
	}
	return token
}

// Request bundles the assembler's inputs (§4.6).
type Request struct {
	UserID       string
	Profile      model.Profile
	Context      model.Context
	RuleSet      ruleset.RuleSet
	AllowCatalog bool
	History      []string
	Cache        *retrieve.ShortlistCache
}

// Result is a completed or partial bundle, shaped for the engine API.
type Result struct {
	Bundle  model.Bundle
	Partial bool
}

// violationRecord names the hard-constraint violation that most recently
// eliminated a candidate path during beam expansion, and the slot it was
// eliminated at (§7's NO_BUNDLE dominant-violation report).
type violationRecord struct {
	code string
	slot model.Slot
}

// Assemble runs the beam search described in §4.6, checking ctx's deadline
// between slot steps. On deadline expiry it returns the best terminal found
// so far with Partial=true, or a DEADLINE error if none exists yet.
func Assemble(ctx context.Context, idx index.Query, req Request) (Result, error) {
	template, ok := req.RuleSet.TemplateFor(req.Context.Occasion, req.Context.EffectiveDressiness(req.Profile))
	if !ok {
		return Result{}, enginerr.New(enginerr.NoTemplate, fmt.Sprintf("no template matches occasion %q at dressiness %d", req.Context.Occasion, req.Context.EffectiveDressiness(req.Profile)))
	}

	slotOrder := slotSequence(template)

	beam := []partial{{state: constraint.State{Committed: map[model.Slot]model.Item{}, Template: template}}}
	var bestTerminal *partial
	var lastViolation *violationRecord

	for _, slot := range slotOrder {
		if err := ctx.Err(); err != nil {
			if bestTerminal != nil {
				return Result{Bundle: toBundle(*bestTerminal, template, req.RuleSet, true), Partial: true}, nil
			}
			return Result{}, enginerr.Wrap(enginerr.Deadline, "deadline exceeded before a terminal bundle was found", err)
		}

		children, violation, err := expand(ctx, idx, req, template, beam, slot)
		if err != nil {
			return Result{}, err
		}
		if violation != nil {
			lastViolation = violation
		}
		if len(children) == 0 {
			if !template.IsRequired(slot) {
				// No candidates for an optional slot; beam carries forward
				// unchanged (equivalent to every parent's implicit skip child).
				continue
			}
			// A required slot with no surviving candidate at all empties
			// the beam; if any parent already committed an active
			// strict group, that group's incompleteness is the dominant,
			// more specific reason (§7), not a bare empty-shortlist gap.
			if v := dominantGapViolation(beam, slot); v != nil {
				lastViolation = v
			}
			beam = nil
			break
		}

		sortPartials(children)

		width := req.RuleSet.BeamWidth
		if width <= 0 {
			width = 8
		}
		if len(children) > width {
			children = children[:width]
		}
		beam = children

		for i := range beam {
			if v := constraint.CheckCoverage(beam[i].state, req.RuleSet); v == nil {
				if bestTerminal == nil || beam[i].score > bestTerminal.score {
					candidate := beam[i]
					bestTerminal = &candidate
				}
			}
		}
	}

	// Final completion pass: among terminal beams with coverage satisfied,
	// select the argmax with the §4.6 step-5 tie-break chain.
	var terminals []partial
	for _, p := range beam {
		if v := constraint.CheckCoverage(p.state, req.RuleSet); v == nil {
			terminals = append(terminals, p)
		}
	}
	if len(terminals) == 0 {
		if bestTerminal != nil {
			return Result{Bundle: toBundle(*bestTerminal, template, req.RuleSet, false)}, nil
		}
		const msg = "hard constraints pruned all candidate paths before a complete bundle was assembled"
		if lastViolation != nil {
			return Result{}, enginerr.NewNoBundle(msg, lastViolation.code, lastViolation.slot)
		}
		return Result{}, enginerr.New(enginerr.NoBundle, msg)
	}

	sortTerminals(terminals, req.RuleSet.Thresholds.NeutralChroma)
	return Result{Bundle: toBundle(terminals[0], template, req.RuleSet, false)}, nil
}

// slotSequence orders slots anchor-first, then the template's declared
// sequence, then any remaining required/optional slots not already listed
// (accessories sort last per §4.6 step 2, achieved by the ruleset author
// listing them last in SlotOrder — the assembler itself imposes no
// secondary accessory-detection heuristic).
func slotSequence(t ruleset.Template) []model.Slot {
	seen := map[model.Slot]bool{}
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

// excludedSlotsFor returns slots to suppress in retrieval when a one_piece
// item is already committed in any parent of the beam.
func excludedSlotsFor(p partial) []model.Slot {
	if _, hasOnePiece := p.state.Committed[model.SlotOnePiece]; hasOnePiece {
		return []model.Slot{model.SlotTop, model.SlotMid, model.SlotBottom}
	}
	return nil
}

// anchorGroupID returns the group_id a parent has already committed for a
// strict group, so retrieval for subsequent slots can filter to the same
// group. prefer_strict groups do not narrow retrieval.
func anchorGroupID(p partial, slot model.Slot) string {
	for _, it := range p.state.Items() {
		if it.SetCohesionPolicy == model.CohesionStrict && groupWantsSlot(it, slot) {
			return it.GroupID
		}
	}
	return ""
}

// groupWantsSlot is a conservative placeholder: in the absence of a
// slot-membership manifest per group, retrieval narrows by group_id only
// when the candidate's own declared slot would plausibly belong to the
// same co-ord (left permissive; the hard-constraint engine is the actual
// enforcement point for group integrity, this is solely a shortlist-size
// optimization).
func groupWantsSlot(it model.Item, slot model.Slot) bool {
	return true
}

// dominantGapViolation classifies a required slot left entirely
// unfillable: if any parent in beam already committed an active strict
// group, that group is missing one of its own members, which is the §7
// dominant reason rather than a generic empty shortlist.
func dominantGapViolation(beam []partial, slot model.Slot) *violationRecord {
	for _, p := range beam {
		if anchorGroupID(p, slot) != "" {
			return &violationRecord{code: string(constraint.CodeStrictCoordIncomplete), slot: slot}
		}
	}
	return nil
}

// expand fans the beam out into children for one slot, retrieving
// candidates per partial (in parallel), committing each, pruning hard
// constraint failures, and scoring the survivors.
func expand(ctx context.Context, idx index.Query, req Request, template ruleset.Template, beam []partial, slot model.Slot) ([]partial, *violationRecord, error) {
	type expansion struct {
		children  []partial
		violation *violationRecord
	}
	results := make([]expansion, len(beam))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range beam {
		i, p := i, p
		g.Go(func() error {
			k := req.RuleSet.SlotShortlistK
			if slot == template.AnchorSlot {
				k = req.RuleSet.AnchorShortlistK
			}
			candidates, err := retrieve.ShortlistCached(gctx, idx, req.Cache, retrieve.Request{
				UserID:       req.UserID,
				Slot:         slot,
				RuleSet:      req.RuleSet,
				Profile:      req.Profile,
				Context:      req.Context,
				AllowCatalog: req.AllowCatalog,
				K:            k,
				GroupID:      anchorGroupID(p, slot),
				ExcludeSlots: excludedSlotsFor(p),
			})
			if err != nil {
				return enginerr.Wrap(enginerr.IndexError, "shortlist retrieval failed", err)
			}

			var children []partial
			var lastViolation *violationRecord
			if !template.IsRequired(slot) {
				children = append(children, p) // implicit skip child
			}
			for _, cand := range candidates {
				if _, already := p.state.Committed[slot]; already {
					continue
				}
				child := commitItem(p, slot, cand.Item, cand.Unary)
				if v := constraint.CheckAll(child.state, req.RuleSet, req.Context, req.Profile); v != nil {
					lastViolation = &violationRecord{code: string(v.Code), slot: slot}
					continue
				}
				child.score, child.components = scoring.Aggregate(itemsOf(child.state), req.RuleSet, req.Profile, req.Context, req.History)
				children = append(children, child)
			}
			results[i] = expansion{children: children, violation: lastViolation}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var all []partial
	var lastViolation *violationRecord
	for _, r := range results {
		all = append(all, r.children...)
		if r.violation != nil {
			lastViolation = r.violation
		}
	}
	return all, lastViolation, nil
}

func commitItem(p partial, slot model.Slot, item model.Item, unaryScore float64) partial {
	committed := make(map[model.Slot]model.Item, len(p.state.Committed)+1)
	for k, v := range p.state.Committed {
		committed[k] = v
	}
	committed[slot] = item

	unary := make(map[model.Slot]float64, len(p.unary)+1)
	for k, v := range p.unary {
		unary[k] = v
	}
	unary[slot] = unaryScore

	catalogCount := p.catalogCount
	if item.Owner == model.OwnerCatalog {
		catalogCount++
	}

	return partial{
		state:        constraint.State{Committed: committed, Template: p.state.Template},
		catalogCount: catalogCount,
		unary:        unary,
	}
}

func itemsOf(state constraint.State) []model.Item {
	return state.Items()
}

// sortPartials orders beam children by (running_score desc, tie_break_token
// asc), the composite key used after every expansion round (§4.6 step 4,
// §5 deterministic merge).
func sortPartials(children []partial) {
	sort.Slice(children, func(i, j int) bool {
		if children[i].score != children[j].score {
			return children[i].score > children[j].score
		}
		return children[i].tieBreakToken() < children[j].tieBreakToken()
	})
}

// sortTerminals applies the §4.6 step-5 completion tie-break chain: higher
// score, then fewer catalog items, then lower mean ΔE among near-face
// items, then lexicographic item-id tuple.
func sortTerminals(terminals []partial, neutralChroma float64) {
	sort.Slice(terminals, func(i, j int) bool {
		a, b := terminals[i], terminals[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.catalogCount != b.catalogCount {
			return a.catalogCount < b.catalogCount
		}
		if da, db := meanNearFaceDeltaE(a), meanNearFaceDeltaE(b); da != db {
			return da < db
		}
		return a.tieBreakToken() < b.tieBreakToken()
	})
}

func meanNearFaceDeltaE(p partial) float64 {
	var colors []model.Item
	for _, it := range p.state.Items() {
		if it.Color == nil {
			continue
		}
		switch it.Slot {
		case model.SlotTop, model.SlotOuter, model.SlotHeadwear, model.SlotJewelry:
			colors = append(colors, it)
		}
	}
	if len(colors) < 2 {
		return 0
	}
	var sum float64
	var pairs int
	for i := 0; i < len(colors); i++ {
		for j := i + 1; j < len(colors); j++ {
			sum += color.DeltaE2000(*colors[i].Color, *colors[j].Color)
			pairs++
		}
	}
	if pairs == 0 {
		return 0
	}
	return sum / float64(pairs)
}

func toBundle(p partial, template ruleset.Template, rs ruleset.RuleSet, partialFlag bool) model.Bundle {
	items := make(map[model.Slot]string, len(p.state.Committed))
	details := make(map[model.Slot]model.SlotDetail, len(p.state.Committed))
	for slot, it := range p.state.Committed {
		items[slot] = it.ItemID
		details[slot] = model.SlotDetail{
			ItemID:            it.ItemID,
			UnaryScore:        p.unary[slot],
			PassedConstraints: constraint.PassedNames(),
		}
	}
	return model.Bundle{
		Items:          items,
		Score:          p.score,
		Components:     p.components,
		SlotDetails:    details,
		TemplateID:     template.ID,
		RuleSetVersion: rs.Version,
		TieBreakToken:  p.tieBreakToken(),
		Partial:        partialFlag,
	}
}
