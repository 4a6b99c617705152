package core

import "pkt.systems/tabwell/schema"

// registry is the authoritative in-memory tab aggregate: the tab map, the
// global display order, and the active tab. It is not safe for concurrent
// use; the owning service serializes access behind its mutex.
type registry struct {
	tabs   map[schema.TabID]*tab
	order  []schema.TabID
	active schema.TabID
}

func newRegistry() *registry {
	return &registry{tabs: make(map[schema.TabID]*tab)}
}

func (r *registry) get(id schema.TabID) *tab {
	return r.tabs[id]
}

func (r *registry) len() int {
	return len(r.tabs)
}

// register inserts the tab and appends it to the order. Re-registering an id
// already present updates the record without duplicating the order entry.
func (r *registry) register(t *tab) {
	_, present := r.tabs[t.ID]
	r.tabs[t.ID] = t
	if !present {
		r.order = append(r.order, t.ID)
	}
}

// attach flips the tab to loaded and hands it surface ownership.
func (r *registry) attach(id schema.TabID, surface Surface) bool {
	t := r.tabs[id]
	if t == nil {
		return false
	}
	t.surface = surface
	return true
}

// detach flips the tab to unloaded and returns the surface for the caller to
// destroy. Returns nil when the tab is missing or already unloaded.
func (r *registry) detach(id schema.TabID) Surface {
	t := r.tabs[id]
	if t == nil || t.surface == nil {
		return nil
	}
	surface := t.surface
	t.surface = nil
	return surface
}

// remove deletes the tab and its order entry. Clears the active marker if it
// pointed at the removed tab. Returns the removed record, or nil.
func (r *registry) remove(id schema.TabID) *tab {
	t := r.tabs[id]
	if t == nil {
		return nil
	}
	delete(r.tabs, id)
	for i, current := range r.order {
		if current == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.active == id {
		r.active = ""
	}
	return t
}

// tabsForProfile filters the global order down to one profile, preserving
// relative order. This is the ordering contract the UI renders.
func (r *registry) tabsForProfile(profileID schema.ProfileID) []*tab {
	var tabs []*tab
	for _, id := range r.order {
		t := r.tabs[id]
		if t == nil || t.Profile != profileID {
			continue
		}
		tabs = append(tabs, t)
	}
	return tabs
}

// reorder replaces the order with newOrder filtered to ids that still exist.
// Live ids missing from newOrder keep their previous relative order at the
// tail, so the order always covers exactly the registered tabs. Reordering
// can never create or destroy tabs.
func (r *registry) reorder(newOrder []schema.TabID) {
	next := make([]schema.TabID, 0, len(r.tabs))
	seen := make(map[schema.TabID]bool, len(r.tabs))
	for _, id := range newOrder {
		if _, ok := r.tabs[id]; !ok || seen[id] {
			continue
		}
		seen[id] = true
		next = append(next, id)
	}
	for _, id := range r.order {
		if seen[id] {
			continue
		}
		if _, ok := r.tabs[id]; !ok {
			continue
		}
		seen[id] = true
		next = append(next, id)
	}
	r.order = next
}

// moveAfter repositions id immediately after anchor. No-op when either id is
// unknown or they are equal.
func (r *registry) moveAfter(id, anchor schema.TabID) {
	if id == anchor {
		return
	}
	if _, ok := r.tabs[id]; !ok {
		return
	}
	anchorIdx := -1
	trimmed := make([]schema.TabID, 0, len(r.order))
	for _, current := range r.order {
		if current == id {
			continue
		}
		trimmed = append(trimmed, current)
	}
	for i, current := range trimmed {
		if current == anchor {
			anchorIdx = i
			break
		}
	}
	if anchorIdx == -1 {
		r.order = append(trimmed, id)
		return
	}
	next := make([]schema.TabID, 0, len(trimmed)+1)
	next = append(next, trimmed[:anchorIdx+1]...)
	next = append(next, id)
	next = append(next, trimmed[anchorIdx+1:]...)
	r.order = next
}

// profileIndexOf returns the tab's index within its profile's filtered order,
// or -1 when absent.
func (r *registry) profileIndexOf(id schema.TabID) int {
	t := r.tabs[id]
	if t == nil {
		return -1
	}
	idx := 0
	for _, current := range r.order {
		other := r.tabs[current]
		if other == nil || other.Profile != t.Profile {
			continue
		}
		if current == id {
			return idx
		}
		idx++
	}
	return -1
}

func (r *registry) orderCopy() []schema.TabID {
	return append([]schema.TabID(nil), r.order...)
}
