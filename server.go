package tabwell

import (
	"context"
	"errors"
	"sync"

	"pkt.systems/pslog"

	"pkt.systems/tabwell/core"
	"pkt.systems/tabwell/httpapi"
	"pkt.systems/tabwell/internal/eventbus"
	"pkt.systems/tabwell/schema"
)

// Server composes the lifecycle core, the inactivity sweeper, and the
// control API.
type Server interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error
}

// ServerConfig configures the compositor.
type ServerConfig struct {
	Service    schema.ServiceConfig
	Settings   schema.Settings
	HTTP       httpapi.Config
	HubHistory int
}

// ServerDeps captures dependencies required to build the server.
type ServerDeps struct {
	ServiceDeps core.ServiceDeps
}

// ServerOption toggles compositor components.
type ServerOption func(*serverOptions)

type serverOptions struct {
	enableHTTP    bool
	enableSweeper bool
}

// WithHTTP enables the control API server.
func WithHTTP() ServerOption {
	return func(o *serverOptions) { o.enableHTTP = true }
}

// WithSweeper enables the inactivity sweeper.
func WithSweeper() ServerOption {
	return func(o *serverOptions) { o.enableSweeper = true }
}

// New constructs a composable tabwell server.
func New(cfg ServerConfig, deps ServerDeps, opts ...ServerOption) (Server, error) {
	options := serverOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if deps.ServiceDeps.Surfaces == nil {
		return nil, errors.New("surface factory dependency is required")
	}
	normalized, err := schema.NormalizeServiceConfig(cfg.Service)
	if err != nil {
		return nil, err
	}
	cfg.Service = normalized

	serviceDeps := deps.ServiceDeps
	bus := eventbus.New(serviceDeps.Logger)
	var hub *httpapi.Hub
	if options.enableHTTP {
		hub = httpapi.NewHub(cfg.HubHistory)
	}

	sinks := make([]core.EventSink, 0, 3)
	if serviceDeps.EventSink != nil {
		sinks = append(sinks, serviceDeps.EventSink)
	}
	sinks = append(sinks, bus)
	if hub != nil {
		sinks = append(sinks, hub)
	}
	if len(sinks) == 1 {
		serviceDeps.EventSink = sinks[0]
	} else {
		serviceDeps.EventSink = eventFanout{sinks: sinks}
	}

	service, err := core.NewService(cfg.Service, cfg.Settings, serviceDeps)
	if err != nil {
		return nil, err
	}

	var httpSrv *httpapi.Server
	if options.enableHTTP {
		httpSrv = httpapi.NewServer(cfg.HTTP, service, hub)
	}
	var sweeper *core.Sweeper
	if options.enableSweeper {
		sweeper = core.NewSweeper(service, cfg.Service.SweepInterval, serviceDeps.Logger)
	}

	return &compositeServer{
		cfg:     cfg,
		options: options,
		service: service,
		bus:     bus,
		httpSrv: httpSrv,
		sweeper: sweeper,
	}, nil
}

// Service exposes the composed lifecycle service, mainly for embedding
// shells that talk to the core directly instead of over HTTP.
func Service(s Server) core.Service {
	if cs, ok := s.(*compositeServer); ok {
		return cs.service
	}
	return nil
}

// Events exposes the in-process event bus of a composed server.
func Events(s Server) *eventbus.Bus {
	if cs, ok := s.(*compositeServer); ok {
		return cs.bus
	}
	return nil
}

type compositeServer struct {
	cfg     ServerConfig
	options serverOptions
	service core.Service
	bus     *eventbus.Bus
	httpSrv *httpapi.Server
	sweeper *core.Sweeper
	logger  pslog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	errCh   chan error
	started bool
}

func (s *compositeServer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		pslog.Ctx(ctx).Warn("server start rejected", "reason", "already started")
		return errors.New("server already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.errCh = make(chan error, 2)
	s.started = true
	s.logger = pslog.Ctx(s.ctx)
	s.mu.Unlock()

	log := s.logger
	log.Info(
		"server start",
		"http", s.options.enableHTTP,
		"sweeper", s.options.enableSweeper,
		"http_addr", s.cfg.HTTP.Addr,
		"profiles", len(s.cfg.Service.Profiles),
	)

	if err := s.service.RestoreSession(s.ctx); err != nil {
		log.Error("session restore failed", "err", err)
		s.cancel()
		return err
	}

	if s.options.enableSweeper && s.sweeper != nil {
		go s.sweeper.Run(s.ctx)
	}
	if s.options.enableHTTP && s.httpSrv != nil {
		go func() {
			if err := httpapi.ListenAndServe(s.ctx, s.cfg.HTTP.Addr, s.httpSrv.Handler()); err != nil {
				log.Error("http server failed", "err", err)
				s.errCh <- err
			}
		}()
	}
	return nil
}

func (s *compositeServer) Wait() error {
	s.mu.Lock()
	ctx := s.ctx
	errCh := s.errCh
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("server not started")
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			pslog.Ctx(ctx).Error("server stopped", "err", err)
			_ = s.Stop(context.Background())
			return err
		}
		return nil
	}
}

func (s *compositeServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	started := s.started
	log := s.logger
	s.mu.Unlock()
	if !started {
		return nil
	}
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	log.Info("server stop requested")
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.service.Shutdown(ctx); err != nil {
		log.Warn("server core shutdown failed", "err", err)
	} else {
		log.Info("server core shutdown ok")
	}
	if cancel != nil {
		cancel()
	}
	log.Info("server stopped")
	return nil
}
