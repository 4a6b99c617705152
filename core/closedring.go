package core

import "pkt.systems/tabwell/schema"

// closedRing is the bounded buffer behind "reopen closed tab". Push evicts
// the oldest entry once full; pop returns the most recent first.
type closedRing struct {
	max     int
	entries []schema.ClosedTab
}

func newClosedRing(max int) *closedRing {
	if max <= 0 {
		max = schema.DefaultClosedTabMax
	}
	return &closedRing{max: max}
}

func (r *closedRing) push(entry schema.ClosedTab) {
	r.entries = append(r.entries, entry)
	if len(r.entries) > r.max {
		r.entries = r.entries[len(r.entries)-r.max:]
	}
}

func (r *closedRing) pop() (schema.ClosedTab, bool) {
	if len(r.entries) == 0 {
		return schema.ClosedTab{}, false
	}
	entry := r.entries[len(r.entries)-1]
	r.entries = r.entries[:len(r.entries)-1]
	return entry, true
}

func (r *closedRing) len() int {
	return len(r.entries)
}
