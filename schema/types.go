package schema

// TabID identifies a tab for the tab's whole lifetime, loaded or not.
type TabID string

// ProfileID identifies a profile (an isolated storage partition).
type ProfileID string

// PartitionKey names the storage partition handed to the render engine.
type PartitionKey string

// SwitchBehavior selects what happens to a profile's tabs when the user
// switches away from it.
type SwitchBehavior string

const (
	// SwitchKeep leaves the previous profile's tabs untouched.
	SwitchKeep SwitchBehavior = "keep"
	// SwitchSuspend unloads every loaded tab of the previous profile.
	SwitchSuspend SwitchBehavior = "suspend"
	// SwitchClose closes every tab of the previous profile.
	SwitchClose SwitchBehavior = "close"
)

// LoadStrategy selects how restored tabs acquire render surfaces.
type LoadStrategy string

const (
	// LoadLazy restores tabs as metadata only; surfaces are created on first switch.
	LoadLazy LoadStrategy = "lazy"
	// LoadEager loads every restored tab at startup.
	LoadEager LoadStrategy = "eager"
)

// ProfileRef describes one configured profile.
type ProfileRef struct {
	ID         ProfileID
	Name       string
	DefaultURL string
}

// Partition derives the storage partition key for a profile.
func (p ProfileRef) Partition() PartitionKey {
	return PartitionKey("persist:" + string(p.ID))
}
