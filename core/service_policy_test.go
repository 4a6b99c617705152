package core

import (
	"context"
	"errors"
	"testing"

	"pkt.systems/tabwell/schema"
)

func TestSwitchAwaySuspendsProfile(t *testing.T) {
	svc, factory, _ := newTestService(t, schema.Settings{ProfileSwitchBehavior: schema.SwitchSuspend})
	a, _ := svc.CreateTab(context.Background(), schema.CreateTabRequest{ProfileID: "work"})
	b, _ := svc.CreateTab(context.Background(), schema.CreateTabRequest{ProfileID: "work"})
	c, err := svc.CreateTab(context.Background(), schema.CreateTabRequest{ProfileID: "personal"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	list, _ := svc.ListTabs(context.Background(), schema.ListTabsRequest{})
	if list.ActiveTab != c.Tab.ID {
		t.Fatalf("expected personal tab active, got %q", list.ActiveTab)
	}
	for _, tab := range list.Tabs {
		switch tab.ID {
		case a.Tab.ID, b.Tab.ID:
			if tab.Loaded || !tab.Suspended {
				t.Fatalf("expected abandoned profile suspended, got %+v", tab)
			}
		case c.Tab.ID:
			if !tab.Loaded {
				t.Fatalf("expected target tab loaded, got %+v", tab)
			}
		}
	}
	if factory.openSurfaces() != 1 {
		t.Fatalf("expected only the active surface open, %d open", factory.openSurfaces())
	}
}

func TestSwitchAwayClosesProfile(t *testing.T) {
	svc, _, _ := newTestService(t, schema.Settings{ProfileSwitchBehavior: schema.SwitchClose})
	svc.CreateTab(context.Background(), schema.CreateTabRequest{ProfileID: "work"})
	svc.CreateTab(context.Background(), schema.CreateTabRequest{ProfileID: "work", URL: "https://work.example/report"})
	c, _ := svc.CreateTab(context.Background(), schema.CreateTabRequest{ProfileID: "personal"})

	list, _ := svc.ListTabs(context.Background(), schema.ListTabsRequest{})
	if len(list.Tabs) != 1 || list.Tabs[0].ID != c.Tab.ID {
		t.Fatalf("expected only the personal tab to survive, got %d tabs", len(list.Tabs))
	}

	// Closed work tabs land in the reopen ring, most recent first.
	reopened, err := svc.ReopenClosedTab(context.Background(), schema.ReopenClosedTabRequest{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Tab.ProfileID != "work" || reopened.Tab.URL != "https://work.example/report" {
		t.Fatalf("unexpected reopened tab: %+v", reopened.Tab)
	}
}

func TestSwitchAwayKeepLeavesTabsLoaded(t *testing.T) {
	svc, factory, _ := newTestService(t, schema.Settings{})
	svc.CreateTab(context.Background(), schema.CreateTabRequest{ProfileID: "work"})
	svc.CreateTab(context.Background(), schema.CreateTabRequest{ProfileID: "personal"})
	if factory.openSurfaces() != 2 {
		t.Fatalf("expected both surfaces open, %d open", factory.openSurfaces())
	}
}

func TestApplySettingsBehaviorChangeSparesActiveProfile(t *testing.T) {
	svc, _, _ := newTestService(t, schema.Settings{})
	a, _ := svc.CreateTab(context.Background(), schema.CreateTabRequest{ProfileID: "work"})
	p, _ := svc.CreateTab(context.Background(), schema.CreateTabRequest{ProfileID: "personal", Background: true})

	resp, err := svc.ApplySettings(context.Background(), schema.ApplySettingsRequest{
		Settings: schema.Settings{ProfileSwitchBehavior: schema.SwitchSuspend},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if resp.Settings.ProfileSwitchBehavior != schema.SwitchSuspend {
		t.Fatalf("unexpected settings: %+v", resp.Settings)
	}

	list, _ := svc.ListTabs(context.Background(), schema.ListTabsRequest{})
	for _, tab := range list.Tabs {
		switch tab.ID {
		case a.Tab.ID:
			if !tab.Loaded {
				t.Fatalf("expected active profile untouched, got %+v", tab)
			}
		case p.Tab.ID:
			if tab.Loaded {
				t.Fatalf("expected background profile suspended, got %+v", tab)
			}
		}
	}
}

func TestApplySettingsSameBehaviorIsQuiet(t *testing.T) {
	svc, factory, _ := newTestService(t, schema.Settings{ProfileSwitchBehavior: schema.SwitchSuspend})
	svc.CreateTab(context.Background(), schema.CreateTabRequest{ProfileID: "work"})
	svc.CreateTab(context.Background(), schema.CreateTabRequest{ProfileID: "personal", Background: true})

	_, err := svc.ApplySettings(context.Background(), schema.ApplySettingsRequest{
		Settings: schema.Settings{ProfileSwitchBehavior: schema.SwitchSuspend, AutoSuspendMinutes: 5},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if factory.openSurfaces() != 2 {
		t.Fatalf("expected no suspension when the behavior is unchanged, %d open", factory.openSurfaces())
	}
}

func TestApplySettingsRejectsUnknownBehavior(t *testing.T) {
	svc, _, _ := newTestService(t, schema.Settings{})
	_, err := svc.ApplySettings(context.Background(), schema.ApplySettingsRequest{
		Settings: schema.Settings{ProfileSwitchBehavior: "banish"},
	})
	if !errors.Is(err, schema.ErrInvalidBehavior) {
		t.Fatalf("expected ErrInvalidBehavior, got %v", err)
	}
	_, err = svc.ApplySettings(context.Background(), schema.ApplySettingsRequest{
		Settings: schema.Settings{TabLoadingStrategy: "psychic"},
	})
	if !errors.Is(err, schema.ErrInvalidStrategy) {
		t.Fatalf("expected ErrInvalidStrategy, got %v", err)
	}
}
