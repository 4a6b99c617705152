package core

import (
	"time"

	"pkt.systems/tabwell/schema"
)

// tab tracks the state of a single browsing session. A tab with a nil surface
// is unloaded and consumes no rendering resources.
type tab struct {
	ID      schema.TabID
	Profile schema.ProfileID
	// Parent is the tab that opened this one, used as the first choice when
	// picking a replacement after close. May point at a tab that no longer
	// exists.
	Parent     schema.TabID
	URL        string
	Title      string
	Suspended  bool
	LastActive time.Time
	surface    Surface
}

func (t *tab) loaded() bool {
	return t.surface != nil
}

// Snapshot returns a transport-friendly view of the tab.
func (t *tab) Snapshot(active bool) schema.TabSnapshot {
	return schema.TabSnapshot{
		ID:        t.ID,
		ProfileID: t.Profile,
		URL:       t.URL,
		Title:     t.Title,
		Loaded:    t.loaded(),
		Suspended: t.Suspended,
		Active:    active,
	}
}
