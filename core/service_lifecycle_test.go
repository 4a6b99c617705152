package core

import (
	"context"
	"errors"
	"testing"

	"pkt.systems/tabwell/schema"
)

func TestLoadTabIdempotent(t *testing.T) {
	svc, factory, _ := newTestService(t, schema.Settings{})
	resp, err := svc.CreateTab(context.Background(), schema.CreateTabRequest{ProfileID: "work"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	loaded, err := svc.LoadTab(context.Background(), schema.LoadTabRequest{TabID: resp.Tab.ID})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !loaded.Tab.Loaded {
		t.Fatalf("expected loaded tab")
	}
	if factory.created() != 1 {
		t.Fatalf("expected load on loaded tab to be a no-op, %d surfaces", factory.created())
	}
}

func TestUnloadTabIdempotent(t *testing.T) {
	svc, factory, sink := newTestService(t, schema.Settings{})
	resp, err := svc.CreateTab(context.Background(), schema.CreateTabRequest{ProfileID: "work"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	unloaded, err := svc.UnloadTab(context.Background(), schema.UnloadTabRequest{TabID: resp.Tab.ID})
	if err != nil {
		t.Fatalf("unload: %v", err)
	}
	if unloaded.Tab.Loaded || !unloaded.Tab.Suspended {
		t.Fatalf("expected suspended unloaded tab, got %+v", unloaded.Tab)
	}
	if factory.openSurfaces() != 0 {
		t.Fatalf("expected surface destroyed, %d open", factory.openSurfaces())
	}
	surface := factory.surfaces[0]
	if surface.visible {
		t.Fatalf("expected active surface detached from window before close")
	}

	list, _ := svc.ListTabs(context.Background(), schema.ListTabsRequest{})
	if list.ActiveTab != "" {
		t.Fatalf("expected no active tab after unloading it, got %q", list.ActiveTab)
	}

	events := len(sink.eventsOfType(schema.TabEventUpdated))
	if _, err := svc.UnloadTab(context.Background(), schema.UnloadTabRequest{TabID: resp.Tab.ID}); err != nil {
		t.Fatalf("second unload: %v", err)
	}
	if got := len(sink.eventsOfType(schema.TabEventUpdated)); got != events {
		t.Fatalf("expected idempotent unload to emit nothing, %d new events", got-events)
	}
	if surface.closeCount != 1 {
		t.Fatalf("expected one close, got %d", surface.closeCount)
	}
}

func TestSwitchLoadsSuspendedTab(t *testing.T) {
	svc, factory, sink := newTestService(t, schema.Settings{})
	a, _ := svc.CreateTab(context.Background(), schema.CreateTabRequest{ProfileID: "work"})
	b, _ := svc.CreateTab(context.Background(), schema.CreateTabRequest{ProfileID: "work"})
	if _, err := svc.UnloadTab(context.Background(), schema.UnloadTabRequest{TabID: a.Tab.ID}); err != nil {
		t.Fatalf("unload: %v", err)
	}
	created := factory.created()
	resp, err := svc.SwitchTab(context.Background(), schema.SwitchTabRequest{TabID: a.Tab.ID})
	if err != nil {
		t.Fatalf("switch: %v", err)
	}
	if !resp.Tab.Active || !resp.Tab.Loaded || resp.Tab.Suspended {
		t.Fatalf("unexpected tab state: %+v", resp.Tab)
	}
	if factory.created() != created+1 {
		t.Fatalf("expected a fresh surface for the suspended tab")
	}
	if len(sink.eventsOfType(schema.TabEventLoading)) == 0 {
		t.Fatalf("expected a loading event before the switch")
	}
	// b stays loaded in the background, just hidden.
	list, _ := svc.ListTabs(context.Background(), schema.ListTabsRequest{})
	for _, tab := range list.Tabs {
		if tab.ID == b.Tab.ID && !tab.Loaded {
			t.Fatalf("expected previous tab to stay loaded")
		}
	}
}

func TestSwitchToActiveTabIsNoop(t *testing.T) {
	svc, factory, _ := newTestService(t, schema.Settings{})
	resp, _ := svc.CreateTab(context.Background(), schema.CreateTabRequest{ProfileID: "work"})
	surface := factory.surfaces[0]
	attachedBefore := surface.visible
	again, err := svc.SwitchTab(context.Background(), schema.SwitchTabRequest{TabID: resp.Tab.ID})
	if err != nil {
		t.Fatalf("switch: %v", err)
	}
	if !again.Tab.Active {
		t.Fatalf("expected tab to stay active")
	}
	if surface.visible != attachedBefore {
		t.Fatalf("expected no window churn on redundant switch")
	}
}

func TestSwitchAttachFailureClearsActive(t *testing.T) {
	svc, factory, _ := newTestService(t, schema.Settings{})
	factory.attachErr = errAttachRefused
	resp, err := svc.CreateTab(context.Background(), schema.CreateTabRequest{ProfileID: "work"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = svc.SwitchTab(context.Background(), schema.SwitchTabRequest{TabID: resp.Tab.ID})
	if !errors.Is(err, schema.ErrSurfaceUnavailable) {
		t.Fatalf("expected ErrSurfaceUnavailable, got %v", err)
	}
	list, _ := svc.ListTabs(context.Background(), schema.ListTabsRequest{})
	if list.ActiveTab != "" {
		t.Fatalf("expected no active tab after failed attach, got %q", list.ActiveTab)
	}
}

func TestUnknownTabErrors(t *testing.T) {
	svc, _, _ := newTestService(t, schema.Settings{})
	svc.CreateTab(context.Background(), schema.CreateTabRequest{ProfileID: "work"})
	ctx := context.Background()
	if _, err := svc.LoadTab(ctx, schema.LoadTabRequest{TabID: "ghost"}); !errors.Is(err, schema.ErrTabNotFound) {
		t.Fatalf("load: expected ErrTabNotFound, got %v", err)
	}
	if _, err := svc.UnloadTab(ctx, schema.UnloadTabRequest{TabID: "ghost"}); !errors.Is(err, schema.ErrTabNotFound) {
		t.Fatalf("unload: expected ErrTabNotFound, got %v", err)
	}
	if _, err := svc.SwitchTab(ctx, schema.SwitchTabRequest{TabID: "ghost"}); !errors.Is(err, schema.ErrTabNotFound) {
		t.Fatalf("switch: expected ErrTabNotFound, got %v", err)
	}
	if _, err := svc.CloseTab(ctx, schema.CloseTabRequest{TabID: "ghost"}); !errors.Is(err, schema.ErrTabNotFound) {
		t.Fatalf("close: expected ErrTabNotFound, got %v", err)
	}
	if _, err := svc.DuplicateTab(ctx, schema.DuplicateTabRequest{TabID: "ghost"}); !errors.Is(err, schema.ErrTabNotFound) {
		t.Fatalf("duplicate: expected ErrTabNotFound, got %v", err)
	}
}

func TestNavigationCallbacks(t *testing.T) {
	svc, _, sink := newTestService(t, schema.Settings{})
	resp, _ := svc.CreateTab(context.Background(), schema.CreateTabRequest{ProfileID: "work"})

	svc.TitleChanged(resp.Tab.ID, "Example Domain")
	svc.URLChanged(resp.Tab.ID, "https://work.example/landed")

	list, _ := svc.ListTabs(context.Background(), schema.ListTabsRequest{})
	if list.Tabs[0].Title != "Example Domain" || list.Tabs[0].URL != "https://work.example/landed" {
		t.Fatalf("unexpected tab after callbacks: %+v", list.Tabs[0])
	}

	// Repeated values and unknown ids are silent no-ops.
	events := len(sink.eventsOfType(schema.TabEventUpdated))
	svc.TitleChanged(resp.Tab.ID, "Example Domain")
	svc.TitleChanged("ghost", "whatever")
	if got := len(sink.eventsOfType(schema.TabEventUpdated)); got != events {
		t.Fatalf("expected no events for no-op callbacks, got %d new", got-events)
	}
}

func TestShutdownClosesAllSurfaces(t *testing.T) {
	svc, factory, _ := newTestService(t, schema.Settings{})
	svc.CreateTab(context.Background(), schema.CreateTabRequest{ProfileID: "work"})
	svc.CreateTab(context.Background(), schema.CreateTabRequest{ProfileID: "personal", Background: true})
	if err := svc.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if factory.openSurfaces() != 0 {
		t.Fatalf("expected all surfaces closed, %d open", factory.openSurfaces())
	}
}
