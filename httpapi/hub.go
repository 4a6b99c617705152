package httpapi

import (
	"context"
	"sync"
	"time"

	"pkt.systems/tabwell/internal/logx"
	"pkt.systems/tabwell/schema"
)

// StreamEvent is sent to SSE clients.
type StreamEvent struct {
	Seq       uint64              `json:"seq"`
	Type      string              `json:"type"`
	TabEvent  string              `json:"tab_event,omitempty"`
	Tab       *schema.TabSnapshot `json:"tab,omitempty"`
	ActiveTab schema.TabID        `json:"active_tab,omitempty"`
	Snapshot  *SnapshotPayload    `json:"snapshot,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

// SnapshotPayload seeds client state on connect.
type SnapshotPayload struct {
	Tabs      []schema.TabSnapshot  `json:"tabs"`
	ActiveTab schema.TabID          `json:"active_tab"`
	Window    schema.WindowGeometry `json:"window"`
}

// Hub broadcasts tab events to SSE subscribers and keeps a replay history.
type Hub struct {
	mu          sync.Mutex
	seq         uint64
	history     []StreamEvent
	subs        map[chan StreamEvent]struct{}
	historySize int
}

// NewHub constructs a hub with the given history size.
func NewHub(historySize int) *Hub {
	if historySize <= 0 {
		historySize = 1000
	}
	return &Hub{
		subs:        make(map[chan StreamEvent]struct{}),
		historySize: historySize,
	}
}

// OnTabEvent implements core.EventSink.
func (h *Hub) OnTabEvent(event schema.TabEvent) {
	log := logx.WithTab(context.Background(), event.Tab.ID)
	log.Trace("hub tab event", "type", event.Type, "active", event.ActiveTab)
	tab := event.Tab
	h.publish(StreamEvent{
		Type:      "tab",
		TabEvent:  string(event.Type),
		Tab:       &tab,
		ActiveTab: event.ActiveTab,
		Timestamp: time.Now(),
	})
}

// Subscribe registers a subscriber and returns the channel, an unsubscribe
// func, and the current sequence number.
func (h *Hub) Subscribe() (<-chan StreamEvent, func(), uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan StreamEvent, 256)
	h.subs[ch] = struct{}{}
	seq := h.seq
	unsub := func() {
		h.mu.Lock()
		delete(h.subs, ch)
		close(ch)
		h.mu.Unlock()
	}
	return ch, unsub, seq
}

// Replay returns events after the provided seq.
func (h *Hub) Replay(after uint64) []StreamEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	events := make([]StreamEvent, 0, len(h.history))
	for _, event := range h.history {
		if event.Seq > after {
			events = append(events, event)
		}
	}
	return events
}

func (h *Hub) publish(event StreamEvent) {
	h.mu.Lock()
	h.seq++
	event.Seq = h.seq
	h.history = append(h.history, event)
	if len(h.history) > h.historySize {
		h.history = h.history[len(h.history)-h.historySize:]
	}
	subs := make([]chan StreamEvent, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	dropped := 0
	for _, sub := range subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		var tabID schema.TabID
		if event.Tab != nil {
			tabID = event.Tab.ID
		}
		logx.WithTab(context.Background(), tabID).Warn("hub event dropped", "type", event.Type, "dropped", dropped)
	}
}
