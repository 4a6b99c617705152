package schema

// TabSnapshot is a read-only view of tab state for transports.
type TabSnapshot struct {
	ID          TabID
	ProfileID   ProfileID
	URL         string
	Title       string
	Loaded      bool
	Suspended   bool
	Active      bool
	MemoryBytes int64
}

// ClosedTab records enough of a closed tab to reopen it later.
type ClosedTab struct {
	ProfileID ProfileID
	URL       string
	Title     string
}

// WindowGeometry is the shell window placement persisted with the session.
type WindowGeometry struct {
	X         int
	Y         int
	Width     int
	Height    int
	Maximized bool
}
