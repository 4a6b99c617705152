package surfacecdp

import (
	"context"
	"errors"
	"sync"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/performance"
	"github.com/chromedp/chromedp"
	"pkt.systems/pslog"

	"pkt.systems/tabwell/core"
)

var _ core.Surface = (*surface)(nil)

var errSurfaceClosed = errors.New("surface closed")

// surface wraps a single DevTools target. The embedded context lives for the
// whole surface; chromedp tears the target down when it is cancelled.
type surface struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    pslog.Logger

	mu     sync.Mutex
	closed bool
}

func newSurface(ctx context.Context, allocCtx context.Context, req core.CreateSurfaceRequest, logger pslog.Logger) (*surface, error) {
	tabCtx, cancel := chromedp.NewContext(allocCtx)
	s := &surface{
		ctx:    tabCtx,
		cancel: cancel,
		log:    logger.With("tab", req.Events.TabID),
	}

	events := req.Events
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		switch ev := ev.(type) {
		case *page.EventFrameNavigated:
			if ev.Frame.ParentID != "" {
				return
			}
			if events.OnURLChanged != nil {
				events.OnURLChanged(events.TabID, ev.Frame.URL)
			}
		case *page.EventLoadEventFired:
			if events.OnTitleChanged == nil {
				return
			}
			// Title is not part of the load event; fetch it off the
			// listener goroutine, chromedp.Run would deadlock here.
			go func() {
				var title string
				if err := chromedp.Run(tabCtx, chromedp.Title(&title)); err != nil {
					return
				}
				events.OnTitleChanged(events.TabID, title)
			}()
		}
	})

	// Starts the target and enables the metrics domain for MemoryBytes.
	if err := chromedp.Run(tabCtx, performance.Enable()); err != nil {
		cancel()
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

func (s *surface) Navigate(ctx context.Context, url string) error {
	if err := s.alive(ctx); err != nil {
		return err
	}
	return chromedp.Run(s.ctx, chromedp.Navigate(url))
}

func (s *surface) AttachToWindow(ctx context.Context, bounds core.Bounds) error {
	if err := s.alive(ctx); err != nil {
		return err
	}
	actions := []chromedp.Action{page.BringToFront()}
	if bounds.Width > 0 && bounds.Height > 0 {
		actions = append(actions, chromedp.EmulateViewport(int64(bounds.Width), int64(bounds.Height)))
	}
	return chromedp.Run(s.ctx, actions...)
}

func (s *surface) DetachFromWindow(ctx context.Context) error {
	// Background targets keep running; the replacement surface's
	// BringToFront hides this one. Nothing to tear down.
	return s.alive(ctx)
}

func (s *surface) MemoryBytes(ctx context.Context) (int64, error) {
	if err := s.alive(ctx); err != nil {
		return 0, err
	}
	var metrics []*performance.Metric
	err := chromedp.Run(s.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		metrics, err = performance.GetMetrics().Do(ctx)
		return err
	}))
	if err != nil {
		return 0, err
	}
	for _, metric := range metrics {
		if metric.Name == "JSHeapUsedSize" {
			return int64(metric.Value), nil
		}
	}
	return 0, nil
}

func (s *surface) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	s.log.Debug("surface closed")
	return nil
}

func (s *surface) alive(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return errSurfaceClosed
	}
	return nil
}
