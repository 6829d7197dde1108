package index

import (
	"context"
	"testing"

	"github.com/outfitforge/bundleengine/internal/model"
)

func item(id string, slot model.Slot, formality int, tags ...string) model.Item {
	return model.Item{ItemID: id, Owner: model.OwnerWardrobe, Slot: slot, Formality: formality, StyleTags: tags}
}

func TestSnapshotSearchFiltersBySlot(t *testing.T) {
	snap := NewSnapshot()
	snap.LoadWardrobe("u1", []model.Item{
		item("shirt-1", model.SlotTop, 3),
		item("trouser-1", model.SlotBottom, 3),
		item("shirt-2", model.SlotTop, 4),
	})

	page, err := snap.Search(context.Background(), "u1", model.OwnerWardrobe, Filter{Slot: model.SlotTop}, 0, "")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("len(page.Items) = %d, want 2", len(page.Items))
	}
	for _, it := range page.Items {
		if it.Slot != model.SlotTop {
			t.Errorf("got item in slot %q, want %q", it.Slot, model.SlotTop)
		}
	}
}

func TestSnapshotSearchFormalityBounds(t *testing.T) {
	snap := NewSnapshot()
	snap.LoadCatalog([]model.Item{
		item("a", model.SlotTop, 1),
		item("b", model.SlotTop, 3),
		item("c", model.SlotTop, 5),
	})

	page, err := snap.Search(context.Background(), "", model.OwnerCatalog, Filter{FormalityMin: 2, FormalityMax: 4}, 0, "")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ItemID != "b" {
		t.Fatalf("page.Items = %v, want only item b", page.Items)
	}
}

func TestSnapshotSearchForbiddenTags(t *testing.T) {
	snap := NewSnapshot()
	snap.LoadCatalog([]model.Item{
		item("a", model.SlotTop, 3, "neon"),
		item("b", model.SlotTop, 3, "classic"),
	})

	page, err := snap.Search(context.Background(), "", model.OwnerCatalog, Filter{ForbiddenTags: []string{"neon"}}, 0, "")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ItemID != "b" {
		t.Fatalf("page.Items = %v, want only item b", page.Items)
	}
}

func TestSnapshotSearchPaginationIsStable(t *testing.T) {
	snap := NewSnapshot()
	snap.LoadCatalog([]model.Item{
		item("c", model.SlotTop, 3),
		item("a", model.SlotTop, 3),
		item("b", model.SlotTop, 3),
	})

	first, err := snap.Search(context.Background(), "", model.OwnerCatalog, Filter{Slot: model.SlotTop}, 2, "")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(first.Items) != 2 || first.Items[0].ItemID != "a" || first.Items[1].ItemID != "b" {
		t.Fatalf("first page = %v, want [a b]", first.Items)
	}
	if first.NextCursor != "b" {
		t.Fatalf("NextCursor = %q, want %q", first.NextCursor, "b")
	}

	second, err := snap.Search(context.Background(), "", model.OwnerCatalog, Filter{Slot: model.SlotTop}, 2, first.NextCursor)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(second.Items) != 1 || second.Items[0].ItemID != "c" {
		t.Fatalf("second page = %v, want [c]", second.Items)
	}
	if second.NextCursor != "" {
		t.Fatalf("NextCursor = %q, want empty (exhausted)", second.NextCursor)
	}
}

func TestSnapshotSearchDeadlineExceeded(t *testing.T) {
	snap := NewSnapshot()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := snap.Search(ctx, "u1", model.OwnerWardrobe, Filter{}, 0, ""); err == nil {
		t.Error("Search() with a canceled context should return an error")
	}
}

func TestSnapshotSearchExcludesSlots(t *testing.T) {
	snap := NewSnapshot()
	snap.LoadWardrobe("u1", []model.Item{
		item("top-1", model.SlotTop, 3),
		item("bottom-1", model.SlotBottom, 3),
	})

	page, err := snap.Search(context.Background(), "u1", model.OwnerWardrobe, Filter{ExcludeSlots: []model.Slot{model.SlotTop}}, 0, "")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ItemID != "bottom-1" {
		t.Fatalf("page.Items = %v, want only bottom-1", page.Items)
	}
}
