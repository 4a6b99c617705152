package core

import (
	"testing"

	"pkt.systems/tabwell/schema"
)

func regWithTabs(ids ...schema.TabID) *registry {
	r := newRegistry()
	for _, id := range ids {
		r.register(&tab{ID: id, Profile: "work"})
	}
	return r
}

func assertOrder(t *testing.T, r *registry, want ...schema.TabID) {
	t.Helper()
	if len(r.order) != len(want) {
		t.Fatalf("order length %d, want %d: %v", len(r.order), len(want), r.order)
	}
	for i, id := range want {
		if r.order[i] != id {
			t.Fatalf("order[%d] = %q, want %q (order %v)", i, r.order[i], id, r.order)
		}
	}
}

func TestRegistryRegisterIdempotentOrder(t *testing.T) {
	r := regWithTabs("a", "b")
	r.register(&tab{ID: "a", Profile: "work", Title: "updated"})
	assertOrder(t, r, "a", "b")
	if r.get("a").Title != "updated" {
		t.Fatalf("expected record replacement")
	}
}

func TestRegistryRemoveClearsActive(t *testing.T) {
	r := regWithTabs("a", "b", "c")
	r.active = "b"
	removed := r.remove("b")
	if removed == nil || removed.ID != "b" {
		t.Fatalf("unexpected removed tab: %+v", removed)
	}
	if r.active != "" {
		t.Fatalf("expected active cleared, got %q", r.active)
	}
	assertOrder(t, r, "a", "c")
	if r.remove("missing") != nil {
		t.Fatalf("expected nil for unknown id")
	}
}

func TestRegistryReorderFiltersUnknownIDs(t *testing.T) {
	r := regWithTabs("a", "b", "c")
	r.reorder([]schema.TabID{"c", "ghost", "a", "c"})
	assertOrder(t, r, "c", "a", "b")
}

func TestRegistryReorderKeepsMissingAtTail(t *testing.T) {
	r := regWithTabs("a", "b", "c", "d")
	r.reorder([]schema.TabID{"d", "b"})
	assertOrder(t, r, "d", "b", "a", "c")
}

func TestRegistryMoveAfter(t *testing.T) {
	r := regWithTabs("a", "b", "c")
	r.moveAfter("a", "b")
	assertOrder(t, r, "b", "a", "c")
	r.moveAfter("c", "ghost")
	assertOrder(t, r, "b", "a", "c")
	r.moveAfter("b", "c")
	assertOrder(t, r, "a", "c", "b")
}

func TestRegistryProfileIndex(t *testing.T) {
	r := newRegistry()
	r.register(&tab{ID: "w1", Profile: "work"})
	r.register(&tab{ID: "p1", Profile: "personal"})
	r.register(&tab{ID: "w2", Profile: "work"})
	if idx := r.profileIndexOf("w2"); idx != 1 {
		t.Fatalf("expected profile index 1, got %d", idx)
	}
	if idx := r.profileIndexOf("p1"); idx != 0 {
		t.Fatalf("expected profile index 0, got %d", idx)
	}
	if idx := r.profileIndexOf("ghost"); idx != -1 {
		t.Fatalf("expected -1 for unknown id, got %d", idx)
	}
	tabs := r.tabsForProfile("work")
	if len(tabs) != 2 || tabs[0].ID != "w1" || tabs[1].ID != "w2" {
		t.Fatalf("unexpected profile tabs: %v", tabs)
	}
}

func TestRegistryDetach(t *testing.T) {
	r := newRegistry()
	surface := &fakeSurface{}
	r.register(&tab{ID: "a", Profile: "work", surface: surface})
	if got := r.detach("a"); got != surface {
		t.Fatalf("expected surface back from detach")
	}
	if r.get("a").loaded() {
		t.Fatalf("expected tab unloaded after detach")
	}
	if r.detach("a") != nil {
		t.Fatalf("expected nil on second detach")
	}
}
