package tabwell

import (
	"context"
	"testing"

	"pkt.systems/tabwell/core"
	"pkt.systems/tabwell/schema"
)

type nullSurface struct{}

func (nullSurface) Navigate(ctx context.Context, url string) error             { return nil }
func (nullSurface) AttachToWindow(ctx context.Context, bounds core.Bounds) error { return nil }
func (nullSurface) DetachFromWindow(ctx context.Context) error                 { return nil }
func (nullSurface) MemoryBytes(ctx context.Context) (int64, error)             { return 0, nil }
func (nullSurface) Close(ctx context.Context) error                            { return nil }

type nullFactory struct{}

func (nullFactory) Create(ctx context.Context, req core.CreateSurfaceRequest) (core.Surface, error) {
	return nullSurface{}, nil
}

func testServerConfig(t *testing.T) ServerConfig {
	t.Helper()
	return ServerConfig{
		Service: schema.ServiceConfig{
			StateDir:       t.TempDir(),
			Profiles:       []schema.ProfileRef{{ID: "work", DefaultURL: "https://work.example"}},
			DefaultProfile: "work",
		},
	}
}

func TestNewRequiresSurfaceFactory(t *testing.T) {
	_, err := New(testServerConfig(t), ServerDeps{})
	if err == nil {
		t.Fatalf("expected error without surface factory")
	}
}

func TestServerStartStop(t *testing.T) {
	server, err := New(testServerConfig(t), ServerDeps{
		ServiceDeps: core.ServiceDeps{Surfaces: nullFactory{}},
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := server.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := server.Start(context.Background()); err == nil {
		t.Fatalf("expected second start to fail")
	}

	// Startup opens the initial tab when there is no prior session.
	service := Service(server)
	if service == nil {
		t.Fatalf("expected service accessor")
	}
	list, err := service.ListTabs(context.Background(), schema.ListTabsRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list.Tabs) != 1 || list.Tabs[0].ProfileID != "work" {
		t.Fatalf("unexpected initial tabs: %+v", list.Tabs)
	}

	if Events(server) == nil {
		t.Fatalf("expected event bus accessor")
	}
	if err := server.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := server.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}
}
