package httpapi

import (
	"testing"
	"time"

	"pkt.systems/tabwell/schema"
)

func TestHubPublishAndReplay(t *testing.T) {
	hub := NewHub(10)
	ch, unsub, seq := hub.Subscribe()
	defer unsub()
	if seq != 0 {
		t.Fatalf("expected seq 0, got %d", seq)
	}

	hub.OnTabEvent(schema.TabEvent{Type: schema.TabEventCreated, Tab: schema.TabSnapshot{ID: "tab1"}})

	select {
	case event := <-ch:
		if event.Seq != 1 || event.TabEvent != "created" || event.Tab == nil || event.Tab.ID != "tab1" {
			t.Fatalf("unexpected event: %+v", event)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for event")
	}

	hub.OnTabEvent(schema.TabEvent{Type: schema.TabEventClosed, Tab: schema.TabSnapshot{ID: "tab1"}})
	replay := hub.Replay(1)
	if len(replay) != 1 || replay[0].TabEvent != "closed" {
		t.Fatalf("unexpected replay: %+v", replay)
	}
}

func TestHubHistoryBounded(t *testing.T) {
	hub := NewHub(3)
	for i := 0; i < 10; i++ {
		hub.OnTabEvent(schema.TabEvent{Type: schema.TabEventUpdated, Tab: schema.TabSnapshot{ID: "tab1"}})
	}
	replay := hub.Replay(0)
	if len(replay) != 3 {
		t.Fatalf("expected history of 3, got %d", len(replay))
	}
	if replay[0].Seq != 8 {
		t.Fatalf("expected oldest seq 8, got %d", replay[0].Seq)
	}
}
