package core

import (
	"context"

	"pkt.systems/tabwell/schema"
)

// Service is the transport-agnostic API for managing tab lifecycle: creating,
// loading, suspending, switching, and closing tabs across profiles.
type Service interface {
	CreateTab(ctx context.Context, req schema.CreateTabRequest) (schema.CreateTabResponse, error)
	LoadTab(ctx context.Context, req schema.LoadTabRequest) (schema.LoadTabResponse, error)
	UnloadTab(ctx context.Context, req schema.UnloadTabRequest) (schema.UnloadTabResponse, error)
	SwitchTab(ctx context.Context, req schema.SwitchTabRequest) (schema.SwitchTabResponse, error)
	CloseTab(ctx context.Context, req schema.CloseTabRequest) (schema.CloseTabResponse, error)
	ReopenClosedTab(ctx context.Context, req schema.ReopenClosedTabRequest) (schema.ReopenClosedTabResponse, error)
	DuplicateTab(ctx context.Context, req schema.DuplicateTabRequest) (schema.DuplicateTabResponse, error)
	ReorderTabs(ctx context.Context, req schema.ReorderTabsRequest) (schema.ReorderTabsResponse, error)
	ListTabs(ctx context.Context, req schema.ListTabsRequest) (schema.ListTabsResponse, error)
	ApplySettings(ctx context.Context, req schema.ApplySettingsRequest) (schema.ApplySettingsResponse, error)
	SetWindowGeometry(ctx context.Context, req schema.SetWindowGeometryRequest) (schema.SetWindowGeometryResponse, error)

	// RestoreSession applies the configured loading strategy to the tabs
	// restored from the persisted snapshot and tells the UI which tab to
	// focus. Called once after the shell window is ready.
	RestoreSession(ctx context.Context) error

	// SweepIdle unloads tabs whose idle time exceeds the configured
	// threshold. Driven by the Sweeper; safe to call at any time.
	SweepIdle(ctx context.Context)

	// TitleChanged and URLChanged are the render engine's asynchronous
	// navigation callbacks. Unknown ids are ignored.
	TitleChanged(tabID schema.TabID, title string)
	URLChanged(tabID schema.TabID, url string)

	// Shutdown destroys all surfaces and writes a final session snapshot.
	Shutdown(ctx context.Context) error
}
