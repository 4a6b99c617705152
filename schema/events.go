package schema

// TabEventType describes tab lifecycle or state changes emitted to the UI.
type TabEventType string

const (
	// TabEventCreated indicates a tab was created.
	TabEventCreated TabEventType = "created"
	// TabEventUpdated indicates tab metadata or load state changed.
	TabEventUpdated TabEventType = "updated"
	// TabEventLoading indicates a surface is being created for the tab.
	TabEventLoading TabEventType = "loading"
	// TabEventClosed indicates a tab was removed from the registry.
	TabEventClosed TabEventType = "closed"
	// TabEventRestoreActive asks the UI to focus the given tab after a
	// profile switch or session restore.
	TabEventRestoreActive TabEventType = "restore-active"
)

// TabEvent represents a change to a tab or the tab list.
type TabEvent struct {
	Type      TabEventType
	Tab       TabSnapshot
	ActiveTab TabID
}
