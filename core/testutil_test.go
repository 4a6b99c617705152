package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pkt.systems/tabwell/schema"
)

type fakeSurface struct {
	mu         sync.Mutex
	partition  schema.PartitionKey
	navigated  []string
	visible    bool
	closed     bool
	attachErr  error
	memory     int64
	memoryErr  error
	closeCount int
}

func (f *fakeSurface) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navigated = append(f.navigated, url)
	return nil
}

func (f *fakeSurface) AttachToWindow(ctx context.Context, bounds Bounds) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attachErr != nil {
		return f.attachErr
	}
	f.visible = true
	return nil
}

func (f *fakeSurface) DetachFromWindow(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visible = false
	return nil
}

func (f *fakeSurface) MemoryBytes(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.memoryErr != nil {
		return 0, f.memoryErr
	}
	return f.memory, nil
}

func (f *fakeSurface) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.closeCount++
	return nil
}

func (f *fakeSurface) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeFactory struct {
	mu        sync.Mutex
	surfaces  []*fakeSurface
	createErr error
	attachErr error
	memory    int64
}

func (f *fakeFactory) Create(ctx context.Context, req CreateSurfaceRequest) (Surface, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	surface := &fakeSurface{
		partition: req.Partition,
		attachErr: f.attachErr,
		memory:    f.memory,
	}
	f.surfaces = append(f.surfaces, surface)
	return surface, nil
}

func (f *fakeFactory) created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.surfaces)
}

func (f *fakeFactory) openSurfaces() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	open := 0
	for _, surface := range f.surfaces {
		if !surface.isClosed() {
			open++
		}
	}
	return open
}

type recordingSink struct {
	mu     sync.Mutex
	events []schema.TabEvent
}

func (r *recordingSink) OnTabEvent(event schema.TabEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) eventsOfType(eventType schema.TabEventType) []schema.TabEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []schema.TabEvent
	for _, event := range r.events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

var errAttachRefused = errors.New("attach refused")

func testConfig(t *testing.T) schema.ServiceConfig {
	t.Helper()
	return schema.ServiceConfig{
		StateDir: t.TempDir(),
		Profiles: []schema.ProfileRef{
			{ID: "work", Name: "Work", DefaultURL: "https://work.example/start"},
			{ID: "personal", Name: "Personal", DefaultURL: "https://home.example"},
		},
		DefaultProfile: "work",
	}
}

func newTestService(t *testing.T, settings schema.Settings) (Service, *fakeFactory, *recordingSink) {
	t.Helper()
	return newTestServiceWithConfig(t, testConfig(t), settings)
}

func newTestServiceWithConfig(t *testing.T, cfg schema.ServiceConfig, settings schema.Settings) (Service, *fakeFactory, *recordingSink) {
	t.Helper()
	factory := &fakeFactory{}
	sink := &recordingSink{}
	svc, err := NewService(cfg, settings, ServiceDeps{
		Surfaces:  factory,
		EventSink: sink,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, factory, sink
}

// withFrozenClock pins the service clock and returns an advance func.
func withFrozenClock(t *testing.T, start time.Time) func(time.Duration) {
	t.Helper()
	current := start
	mu := &sync.Mutex{}
	timeNow = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}
	t.Cleanup(func() { timeNow = time.Now })
	return func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(d)
	}
}
