package core

import "pkt.systems/tabwell/schema"

// EventSink receives tab lifecycle events from the core service.
type EventSink interface {
	OnTabEvent(event schema.TabEvent)
}
