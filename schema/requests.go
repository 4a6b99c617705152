package schema

// Tab lifecycle.

// CreateTabRequest describes a request to create a tab.
type CreateTabRequest struct {
	ProfileID ProfileID
	// URL is optional; the profile's default URL is used when empty.
	URL string
	// ParentID records the tab that opened this one, if any.
	ParentID TabID
	// Background suppresses activation of the new tab.
	Background bool
}

// CreateTabResponse reports the created tab.
type CreateTabResponse struct {
	Tab TabSnapshot
}

// LoadTabRequest describes a request to load a tab's surface.
type LoadTabRequest struct {
	TabID TabID
}

// LoadTabResponse reports the loaded tab snapshot.
type LoadTabResponse struct {
	Tab TabSnapshot
}

// UnloadTabRequest describes a request to reclaim a tab's surface.
type UnloadTabRequest struct {
	TabID TabID
}

// UnloadTabResponse reports the unloaded tab snapshot.
type UnloadTabResponse struct {
	Tab TabSnapshot
}

// SwitchTabRequest describes a request to make a tab active.
type SwitchTabRequest struct {
	TabID TabID
}

// SwitchTabResponse reports the activated tab snapshot.
type SwitchTabResponse struct {
	Tab TabSnapshot
}

// CloseTabRequest describes a request to close a tab.
type CloseTabRequest struct {
	TabID TabID
}

// CloseTabResponse reports the closed tab and its replacement, if one
// was activated.
type CloseTabResponse struct {
	Tab      TabSnapshot
	Replaced TabID
}

// ReopenClosedTabRequest pops the most recently closed tab.
type ReopenClosedTabRequest struct{}

// ReopenClosedTabResponse reports the recreated tab.
type ReopenClosedTabResponse struct {
	Tab TabSnapshot
}

// DuplicateTabRequest describes a request to duplicate a tab.
type DuplicateTabRequest struct {
	TabID TabID
}

// DuplicateTabResponse reports the duplicate tab snapshot.
type DuplicateTabResponse struct {
	Tab TabSnapshot
}

// ReorderTabsRequest replaces the display order. Unknown ids are dropped;
// live ids missing from Order keep their relative position at the tail.
type ReorderTabsRequest struct {
	Order []TabID
}

// ReorderTabsResponse reports the resulting order.
type ReorderTabsResponse struct {
	Order []TabID
}

// ListTabsRequest describes a request to list tabs.
type ListTabsRequest struct {
	// ProfileID filters to one profile; empty lists every tab.
	ProfileID ProfileID
	// WithMemory includes render memory for loaded tabs.
	WithMemory bool
}

// ListTabsResponse reports tabs in display order plus active context.
type ListTabsResponse struct {
	Tabs      []TabSnapshot
	ActiveTab TabID
}

// ApplySettingsRequest swaps the lifecycle settings at runtime.
type ApplySettingsRequest struct {
	Settings Settings
}

// ApplySettingsResponse reports the normalized settings now in force.
type ApplySettingsResponse struct {
	Settings Settings
}

// SetWindowGeometryRequest persists shell window placement.
type SetWindowGeometryRequest struct {
	Geometry WindowGeometry
}

// SetWindowGeometryResponse acknowledges the update.
type SetWindowGeometryResponse struct{}
