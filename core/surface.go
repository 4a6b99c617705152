package core

import (
	"context"

	"pkt.systems/tabwell/schema"
)

// Bounds places a surface within the shell window. The zero value means
// "fill the content area"; the implementation decides what that is.
type Bounds struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Surface is a live browsing context bound to a storage partition. A surface
// is exclusively owned by the tab it was created for; once detached or closed
// no other component may touch it.
type Surface interface {
	Navigate(ctx context.Context, url string) error
	AttachToWindow(ctx context.Context, bounds Bounds) error
	DetachFromWindow(ctx context.Context) error
	MemoryBytes(ctx context.Context) (int64, error)
	Close(ctx context.Context) error
}

// SurfaceEvents carries the asynchronous navigation callbacks for a surface.
// Callbacks identify the tab by id only; the receiver looks the tab up again
// and treats a missing id as a no-op, so late callbacks for a closed tab are
// harmless.
type SurfaceEvents struct {
	TabID          schema.TabID
	OnTitleChanged func(tabID schema.TabID, title string)
	OnURLChanged   func(tabID schema.TabID, url string)
}

// CreateSurfaceRequest asks the render engine for a new surface.
type CreateSurfaceRequest struct {
	Partition schema.PartitionKey
	Events    SurfaceEvents
}

// SurfaceFactory creates render surfaces. Implementations wrap the actual
// render engine; the core never talks to the engine directly.
type SurfaceFactory interface {
	Create(ctx context.Context, req CreateSurfaceRequest) (Surface, error)
}
