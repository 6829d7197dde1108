// Package engine is the bundle assembly engine's top-level public API
// (§6 outward interfaces): generate, replace, and explain. It wires the
// retriever, hard-constraint engine, scoring engine, beam search assembler,
// and replace planner together behind request-scoped hclog logging, a
// bounded inflight-request counter, and tagged enginerr results.
package engine

import (
	"context"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"

	"github.com/outfitforge/bundleengine/internal/assembler"
	"github.com/outfitforge/bundleengine/internal/config"
	"github.com/outfitforge/bundleengine/internal/enginerr"
	"github.com/outfitforge/bundleengine/internal/index"
	"github.com/outfitforge/bundleengine/internal/model"
	"github.com/outfitforge/bundleengine/internal/registry"
	"github.com/outfitforge/bundleengine/internal/replace"
	"github.com/outfitforge/bundleengine/internal/retrieve"
	"github.com/outfitforge/bundleengine/internal/ruleset"
)

// ProfileProvider is the §6 inward collaborator: snapshot(user_id) -> Profile.
type ProfileProvider interface {
	Snapshot(userID string) (model.Profile, error)
}

// WearHistoryProvider is the §6 inward collaborator for novelty scoring:
// recent(user_id, N) -> [item_id], most recent first.
type WearHistoryProvider interface {
	Recent(userID string, n int) ([]string, error)
}

// Clock is the §6 inward collaborator used for recency/determinism.
type Clock interface {
	Now() int64
}

// Engine is the assembled, request-serving bundle engine.
type Engine struct {
	Index        index.Query
	RuleSets     ruleset.Provider
	Profiles     ProfileProvider
	History      WearHistoryProvider
	Registry     *registry.Registry
	Logger       hclog.Logger
	Cache        *retrieve.ShortlistCache
	MaxInflight  int64

	inflight atomic.Int64
}

// New builds an Engine. logger is request-scoped per call via
// logger.With(...); no package-level logger singleton is used. maxInflight
// and cacheSize of zero or less fall back to config.Default()'s values.
func New(idx index.Query, rulesets ruleset.Provider, profiles ProfileProvider, history WearHistoryProvider, reg *registry.Registry, logger hclog.Logger, maxInflight int, cacheSize int) *Engine {
	defaults := config.Default()
	if maxInflight <= 0 {
		maxInflight = defaults.MaxInflightRequests
	}
	if cacheSize <= 0 {
		cacheSize = defaults.ShortlistCacheSize
	}
	return &Engine{
		Index:       idx,
		RuleSets:    rulesets,
		Profiles:    profiles,
		History:     history,
		Registry:    reg,
		Logger:      logger,
		Cache:       retrieve.NewShortlistCache(cacheSize),
		MaxInflight: int64(maxInflight),
	}
}

// BundleResult is generate's outward result (§6).
type BundleResult struct {
	Bundle model.Bundle
}

// acquire enforces the §5 backpressure bound; release must be deferred by
// every caller that acquires successfully.
func (e *Engine) acquire() (release func(), err error) {
	if e.inflight.Add(1) > e.MaxInflight {
		e.inflight.Add(-1)
		return nil, enginerr.New(enginerr.Busy, "too many requests in flight")
	}
	return func() { e.inflight.Add(-1) }, nil
}

// InvalidateWardrobe drops every cached shortlist for userID (§5: a
// wardrobe mutation invalidates that user's cached shortlists).
func (e *Engine) InvalidateWardrobe(userID string) {
	if e.Cache != nil {
		e.Cache.InvalidateUser(userID)
	}
}

// InvalidateRuleSet drops the entire shortlist cache (§5: a ruleset publish
// invalidates every cached shortlist, since formality bounds and seasonality
// filters may have changed for every user).
func (e *Engine) InvalidateRuleSet() {
	if e.Cache != nil {
		e.Cache.InvalidateAll()
	}
}

// Generate implements the §6 generate(user_id, context, allow_catalog,
// deadline) -> BundleResult | Error outward operation.
func (e *Engine) Generate(ctx context.Context, userID string, reqCtx model.Context, allowCatalog bool) (BundleResult, error) {
	release, err := e.acquire()
	if err != nil {
		return BundleResult{}, err
	}
	defer release()

	log := e.Logger.With("op", "generate", "user_id", userID, "occasion", reqCtx.Occasion)

	if reqCtx.Occasion == "" {
		return BundleResult{}, enginerr.New(enginerr.InvalidInput, "context.occasion is required")
	}

	profile, err := e.Profiles.Snapshot(userID)
	if err != nil {
		return BundleResult{}, enginerr.Wrap(enginerr.IndexError, "profile snapshot failed", err)
	}
	if profile.BaselineDressiness < 1 || profile.BaselineDressiness > 5 {
		if reqCtx.TargetDressiness < 1 || reqCtx.TargetDressiness > 5 {
			return BundleResult{}, enginerr.New(enginerr.InvalidInput, "no valid dressiness target (profile baseline and context override both unset)")
		}
	}

	rs, err := e.RuleSets.Current()
	if err != nil {
		return BundleResult{}, enginerr.Wrap(enginerr.Internal, "ruleset snapshot failed", err)
	}

	var history []string
	if e.History != nil {
		history, err = e.History.Recent(userID, rs.Thresholds.NoveltyWindow)
		if err != nil {
			log.Warn("wear history lookup failed, continuing with zero novelty penalty", "error", err)
			history = nil
		}
	}

	log.Debug("starting beam search assembly", "ruleset_version", rs.Version, "allow_catalog", allowCatalog)

	result, err := assembler.Assemble(ctx, e.Index, assembler.Request{
		UserID:       userID,
		Profile:      profile,
		Context:      reqCtx,
		RuleSet:      rs,
		AllowCatalog: allowCatalog,
		History:      history,
		Cache:        e.Cache,
	})
	if err != nil {
		if enginerr.KindOf(err) == enginerr.Deadline {
			log.Warn("deadline exceeded during assembly", "error", err)
		}
		return BundleResult{}, err
	}

	if result.Partial {
		log.Warn("returning partial bundle due to deadline", "template_id", result.Bundle.TemplateID)
	}

	return BundleResult{Bundle: result.Bundle}, nil
}

// AlternativesResult is replace's outward result (§6).
type AlternativesResult struct {
	Alternatives []replace.Alternative
}

// Replace implements the §6 replace(user_id, bundle_id|bundle, slot, locks,
// deadline) -> AlternativesResult | Error outward operation.
func (e *Engine) Replace(ctx context.Context, userID string, bundle model.Bundle, items map[string]model.Item, slot model.Slot, reqCtx model.Context, allowCatalog bool) (AlternativesResult, error) {
	release, err := e.acquire()
	if err != nil {
		return AlternativesResult{}, err
	}
	defer release()

	log := e.Logger.With("op", "replace", "user_id", userID, "slot", slot)

	profile, err := e.Profiles.Snapshot(userID)
	if err != nil {
		return AlternativesResult{}, enginerr.Wrap(enginerr.IndexError, "profile snapshot failed", err)
	}

	rs, err := e.RuleSets.Current()
	if err != nil {
		return AlternativesResult{}, enginerr.Wrap(enginerr.Internal, "ruleset snapshot failed", err)
	}

	var history []string
	if e.History != nil {
		history, _ = e.History.Recent(userID, rs.Thresholds.NoveltyWindow)
	}

	log.Debug("ranking replacement alternatives", "ruleset_version", rs.Version)

	alts, err := replace.Plan(ctx, e.Index, replace.Request{
		UserID:       userID,
		Bundle:       bundle,
		Items:        items,
		Slot:         slot,
		RuleSet:      rs,
		Profile:      profile,
		Context:      reqCtx,
		AllowCatalog: allowCatalog,
		History:      history,
		Cache:        e.Cache,
	})
	if err != nil {
		return AlternativesResult{}, err
	}
	return AlternativesResult{Alternatives: alts}, nil
}

// SlotExplanation is explain's per-slot detail (§12): the committed item,
// its unary retrieval score, and the hard constraints it passed.
type SlotExplanation struct {
	Slot              model.Slot
	ItemID            string
	UnaryScore        float64
	PassedConstraints []string
}

// ExplainResult is explain's outward result (§6): per-slot and
// per-component explanations.
type ExplainResult struct {
	Slots      []SlotExplanation
	Components []model.ComponentScore
	Score      float64
}

// Explain implements the §6 explain(bundle) -> per-slot & per-component
// explanations outward operation. It is pure: it only reads the bundle's
// already-computed components, never re-scores.
func (e *Engine) Explain(bundle model.Bundle) ExplainResult {
	slots := make([]SlotExplanation, 0, len(bundle.Items))
	for slot, id := range bundle.Items {
		detail := bundle.SlotDetails[slot]
		slots = append(slots, SlotExplanation{
			Slot:              slot,
			ItemID:            id,
			UnaryScore:        detail.UnaryScore,
			PassedConstraints: detail.PassedConstraints,
		})
	}
	return ExplainResult{
		Slots:      slots,
		Components: bundle.Components,
		Score:      bundle.Score,
	}
}
