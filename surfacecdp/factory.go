// Package surfacecdp renders tab surfaces with a Chromium engine driven
// over the DevTools protocol. Each storage partition gets its own browser
// process with an isolated user data directory, so cookies and local
// storage never leak between profiles.
package surfacecdp

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chromedp/chromedp"
	"pkt.systems/pslog"

	"pkt.systems/tabwell/core"
	"pkt.systems/tabwell/schema"
)

var _ core.SurfaceFactory = (*Factory)(nil)

// Options configures the factory.
type Options struct {
	// StateDir is the root for per-partition user data directories.
	StateDir string
	// Headless runs the engine without a visible browser window.
	Headless bool
	// Logger receives surface lifecycle logs.
	Logger pslog.Logger
}

// Factory creates chromedp-backed surfaces. One exec allocator (browser
// process) is kept per partition and shared by all surfaces in it.
type Factory struct {
	opts   Options
	log    pslog.Logger
	mu     sync.Mutex
	allocs map[schema.PartitionKey]*allocator
}

type allocator struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewFactory constructs a Factory.
func NewFactory(opts Options) *Factory {
	logger := opts.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Factory{
		opts:   opts,
		log:    logger,
		allocs: make(map[schema.PartitionKey]*allocator),
	}
}

// Create starts a surface in the partition's browser process, launching the
// process on first use.
func (f *Factory) Create(ctx context.Context, req core.CreateSurfaceRequest) (core.Surface, error) {
	alloc, err := f.allocatorFor(req.Partition)
	if err != nil {
		return nil, err
	}
	return newSurface(ctx, alloc.ctx, req, f.log)
}

func (f *Factory) allocatorFor(partition schema.PartitionKey) (*allocator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if alloc, ok := f.allocs[partition]; ok {
		return alloc, nil
	}
	dataDir := filepath.Join(f.opts.StateDir, "partitions", partitionDirName(partition))
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, err
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", f.opts.Headless),
		chromedp.Flag("disable-gpu", f.opts.Headless),
		chromedp.UserDataDir(dataDir),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	alloc := &allocator{ctx: allocCtx, cancel: cancel}
	f.allocs[partition] = alloc
	f.log.Info("partition browser starting", "partition", partition, "data_dir", dataDir)
	return alloc, nil
}

// Shutdown stops every partition browser process.
func (f *Factory) Shutdown() {
	f.mu.Lock()
	allocs := f.allocs
	f.allocs = make(map[schema.PartitionKey]*allocator)
	f.mu.Unlock()
	for partition, alloc := range allocs {
		alloc.cancel()
		f.log.Debug("partition browser stopped", "partition", partition)
	}
}

// partitionDirName maps a partition key to a filesystem-safe directory name.
func partitionDirName(partition schema.PartitionKey) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, string(partition))
	if name == "" {
		name = "default"
	}
	return name
}
