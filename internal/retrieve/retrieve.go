// Package retrieve implements the Candidate Retriever (§4.5): per-slot
// filtered, ranked shortlists drawn from the Candidate Index, queried in
// parallel across wardrobe and catalog owners via golang.org/x/sync/errgroup
// the way the example pack's fan-out stages do.
package retrieve

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/outfitforge/bundleengine/internal/index"
	"github.com/outfitforge/bundleengine/internal/model"
	"github.com/outfitforge/bundleengine/internal/ruleset"
)

// Candidate is one retrieved item plus its unary score, the retriever's own
// scoring signal ahead of the assembler's full soft-scoring pass.
type Candidate struct {
	Item  model.Item
	Unary float64
}

// ownerRank orders wardrobe ahead of catalog items at equal unary score
// (§4.5 merge order).
func ownerRank(o model.Owner) int {
	if o == model.OwnerCatalog {
		return 1
	}
	return 0
}

// Request describes one slot's shortlist query.
type Request struct {
	UserID       string
	Slot         model.Slot
	RuleSet      ruleset.RuleSet
	Profile      model.Profile
	Context      model.Context
	AllowCatalog bool
	K            int // shortlist size; caller supplies ruleset.AnchorShortlistK or SlotShortlistK

	// GroupID, when set, excludes items of any other co-ord group, while
	// ungrouped items still pass (used
	// once an anchor group is committed and the assembler needs the rest
	// of its members).
	GroupID string

	// ExcludeSlots suppresses these slot classes (one-piece exclusivity).
	ExcludeSlots []model.Slot
}

// Shortlist queries the index for req.Slot, optionally fanning out across
// wardrobe and catalog in parallel, and returns candidates ranked by
// (-unary, owner_rank, item_id) truncated to req.K.
func Shortlist(ctx context.Context, idx index.Query, req Request) ([]Candidate, error) {
	filter := index.Filter{
		Slot:            req.Slot,
		SeasonalityBand: req.Context.TemperatureBand,
		FormalityMin:    req.Context.EffectiveDressiness(req.Profile) - req.RuleSet.Thresholds.FormalityToleranceLow,
		FormalityMax:    req.Context.EffectiveDressiness(req.Profile) + req.RuleSet.Thresholds.FormalityToleranceHigh,
		ForbiddenTags:   req.Profile.Guardrails.Forbidden,
		GroupID:         req.GroupID,
		ExcludeSlots:    req.ExcludeSlots,
	}

	var wardrobeItems, catalogItems []model.Item

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		page, err := idx.Search(gctx, req.UserID, model.OwnerWardrobe, filter, 0, "")
		if err != nil {
			return fmt.Errorf("retrieve: wardrobe search: %w", err)
		}
		wardrobeItems = page.Items
		return nil
	})
	if req.AllowCatalog {
		g.Go(func() error {
			page, err := idx.Search(gctx, req.UserID, model.OwnerCatalog, filter, 0, "")
			if err != nil {
				return fmt.Errorf("retrieve: catalog search: %w", err)
			}
			catalogItems = page.Items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	target := req.Context.EffectiveDressiness(req.Profile)
	candidates := make([]Candidate, 0, len(wardrobeItems)+len(catalogItems))
	for _, it := range wardrobeItems {
		candidates = append(candidates, Candidate{Item: it, Unary: unaryScore(it, target, req.Profile, req.Context)})
	}
	for _, it := range catalogItems {
		candidates = append(candidates, Candidate{Item: it, Unary: unaryScore(it, target, req.Profile, req.Context)})
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Unary != b.Unary {
			return a.Unary > b.Unary
		}
		if ra, rb := ownerRank(a.Item.Owner), ownerRank(b.Item.Owner); ra != rb {
			return ra < rb
		}
		return a.Item.ItemID < b.Item.ItemID
	})

	k := req.K
	if k <= 0 || k > len(candidates) {
		k = len(candidates)
	}
	return candidates[:k], nil
}

// ShortlistCached wraps Shortlist with the §5 process-wide LRU described by
// ShortlistCache: a cache hit skips the index query entirely. Caching only
// applies to group-unscoped, unexcluded queries — a cache of nil, or a
// request with GroupID or ExcludeSlots set, bypasses the cache and queries
// directly, since a group-filtered or slot-excluded shortlist (narrowed per
// beam node) is not safe to share across callers.
func ShortlistCached(ctx context.Context, idx index.Query, cache *ShortlistCache, req Request) ([]Candidate, error) {
	if cache == nil || req.GroupID != "" || len(req.ExcludeSlots) > 0 {
		return Shortlist(ctx, idx, req)
	}

	key := CacheKey{
		UserID:         req.UserID,
		Slot:           string(req.Slot),
		RuleSetVersion: req.RuleSet.Version,
		ContextHash:    contextHash(req),
	}
	if cached, ok := cache.Get(key); ok {
		return cached, nil
	}

	candidates, err := Shortlist(ctx, idx, req)
	if err != nil {
		return nil, err
	}
	cache.Put(key, candidates)
	return candidates, nil
}

// contextHash derives a deterministic cache-key fragment from the fields of
// req that affect the shortlist result.
func contextHash(req Request) string {
	return fmt.Sprintf("%s|%d|%s|%v|%d",
		req.Context.Occasion,
		req.Context.EffectiveDressiness(req.Profile),
		req.Context.TemperatureBand,
		req.AllowCatalog,
		req.K,
	)
}

// unaryScore is the retriever's own ranking signal (§4.5): formality
// closeness + temperature fit + style tag match + 0.1*confidence.
func unaryScore(it model.Item, targetDressiness int, profile model.Profile, ctx model.Context) float64 {
	formalityCloseness := 1 - absInt(it.Formality-targetDressiness)/4.0
	if formalityCloseness < 0 {
		formalityCloseness = 0
	}

	temperatureFit := 0.0
	if ctx.TemperatureBand == "" || it.HasSeasonality(ctx.TemperatureBand) {
		temperatureFit = 1.0
	}

	styleMatch := jaccard(it.StyleTags, profile.StyleSignature)

	confidence := it.MinConfidence(registeredFields(it)...)

	return formalityCloseness + temperatureFit + styleMatch + 0.1*confidence
}

// registeredFields lists the fields whose confidence matters for an item's
// unary score: whichever optional attributes are actually populated.
func registeredFields(it model.Item) []string {
	var fields []string
	if it.Color != nil {
		fields = append(fields, "color")
	}
	if it.Pattern != "" {
		fields = append(fields, "pattern")
	}
	if len(it.StyleTags) > 0 {
		fields = append(fields, "style_tags")
	}
	return fields
}

func absInt(v int) float64 {
	if v < 0 {
		return float64(-v)
	}
	return float64(v)
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]bool, len(a))
	for _, v := range a {
		setA[v] = true
	}
	setB := make(map[string]bool, len(b))
	for _, v := range b {
		setB[v] = true
	}
	intersection := 0
	union := len(setB)
	for v := range setA {
		if setB[v] {
			intersection++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
