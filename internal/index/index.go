// Package index implements the Candidate Index (§2 module 4): a read-only,
// per-user denormalized view over item docs with filterable facets. It is
// the engine's in-process stand-in for the §6 IndexQuery collaborator; a
// host backed by a real search index wires its own implementation of the
// Query interface instead.
package index

import (
	"context"
	"sort"

	"github.com/outfitforge/bundleengine/internal/model"
)

// Filter narrows a candidate search to a single slot's applicable items.
type Filter struct {
	Slot model.Slot

	// SeasonalityBand, if non-empty, requires the item's seasonality to
	// include this band.
	SeasonalityBand model.Season

	// FormalityMin/Max bound the item's formality, inclusive. Zero means
	// unbounded on that side.
	FormalityMin int
	FormalityMax int

	// ForbiddenTags excludes any item carrying one of these style tags.
	ForbiddenTags []string

	// GroupID, if set, excludes items belonging to a *different* co-ord
	// group, but never excludes ungrouped items: the filter narrows toward
	// a committed group's remaining members without hiding standalone
	// candidates for slots the group does not touch.
	GroupID string

	// ExcludeSlots excludes items whose slot is any of these classes (used
	// to suppress top/bottom/mid once a one_piece item is committed).
	ExcludeSlots []model.Slot
}

func (f Filter) matches(it model.Item) bool {
	if f.Slot != "" && it.Slot != f.Slot {
		return false
	}
	for _, s := range f.ExcludeSlots {
		if it.Slot == s {
			return false
		}
	}
	if f.SeasonalityBand != "" && !it.HasSeasonality(f.SeasonalityBand) {
		return false
	}
	if f.FormalityMin > 0 && it.Formality < f.FormalityMin {
		return false
	}
	if f.FormalityMax > 0 && it.Formality > f.FormalityMax {
		return false
	}
	if f.GroupID != "" && it.GroupID != "" && it.GroupID != f.GroupID {
		return false
	}
	for _, forbidden := range f.ForbiddenTags {
		for _, tag := range it.StyleTags {
			if tag == forbidden {
				return false
			}
		}
	}
	return true
}

// Page is one page of a search result: items plus an opaque cursor for the
// next page, empty when exhausted.
type Page struct {
	Items      []model.Item
	NextCursor string
}

// Query is the §6 IndexQuery collaborator: search(owner, filters, limit,
// cursor) -> (items, next_cursor), with stable order under equal keys.
type Query interface {
	Search(ctx context.Context, userID string, owner model.Owner, filter Filter, limit int, cursor string) (Page, error)
}

// Snapshot is an in-memory Query implementation: a denormalized, per-user
// item view captured at request start (snapshot semantics, §9). Items are
// held sorted by item_id so pagination and iteration order are stable
// regardless of how the snapshot was populated.
type Snapshot struct {
	wardrobe map[string][]model.Item // user_id -> items, sorted by item_id
	catalog  []model.Item            // shared catalog, sorted by item_id
}

// NewSnapshot builds an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{wardrobe: make(map[string][]model.Item)}
}

// LoadWardrobe replaces the wardrobe item set for a user.
func (s *Snapshot) LoadWardrobe(userID string, items []model.Item) {
	sorted := append([]model.Item(nil), items...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ItemID < sorted[j].ItemID })
	s.wardrobe[userID] = sorted
}

// LoadCatalog replaces the shared catalog item set.
func (s *Snapshot) LoadCatalog(items []model.Item) {
	sorted := append([]model.Item(nil), items...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ItemID < sorted[j].ItemID })
	s.catalog = sorted
}

// Search implements Query. cursor, when non-empty, is the last item_id
// returned by the previous page; pages continue strictly after it.
func (s *Snapshot) Search(ctx context.Context, userID string, owner model.Owner, filter Filter, limit int, cursor string) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}

	var source []model.Item
	switch owner {
	case model.OwnerWardrobe:
		source = s.wardrobe[userID]
	case model.OwnerCatalog:
		source = s.catalog
	}

	var matched []model.Item
	for _, it := range source {
		if cursor != "" && it.ItemID <= cursor {
			continue
		}
		if filter.matches(it) {
			matched = append(matched, it)
		}
	}

	if limit <= 0 || limit >= len(matched) {
		return Page{Items: matched}, nil
	}

	page := matched[:limit]
	return Page{Items: page, NextCursor: page[len(page)-1].ItemID}, nil
}
