package core

import (
	"context"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/tabwell/internal/logx"
	"pkt.systems/tabwell/schema"
)

// SweepIdle unloads every loaded, non-active tab whose idle time meets the
// configured threshold. The active tab is exempt unconditionally; the active
// tab's whole profile is exempt only when the exclusion flag is set. The
// sweep keeps no state of its own, so delayed ticks self-correct: a tab idle
// for twice the threshold is still unloaded exactly once.
func (s *service) SweepIdle(ctx context.Context) {
	log := logx.Ctx(ctx)
	type victim struct {
		surface Surface
		event   schema.TabEvent
	}
	s.mu.Lock()
	settings := s.settings
	if !settings.AutoSuspendEnabled {
		s.mu.Unlock()
		return
	}
	threshold := settings.IdleThreshold()
	now := timeNow()
	exempt := schema.ProfileID("")
	if settings.ExcludeActiveProfile && s.reg.active != "" {
		if at := s.reg.get(s.reg.active); at != nil {
			exempt = at.Profile
		}
	}
	var victims []victim
	for _, id := range s.reg.order {
		t := s.reg.get(id)
		if t == nil || !t.loaded() || id == s.reg.active {
			continue
		}
		if exempt != "" && t.Profile == exempt {
			continue
		}
		if now.Sub(t.LastActive) < threshold {
			continue
		}
		surface := s.reg.detach(id)
		t.Suspended = true
		victims = append(victims, victim{
			surface: surface,
			event: schema.TabEvent{
				Type:      schema.TabEventUpdated,
				Tab:       t.Snapshot(false),
				ActiveTab: s.reg.active,
			},
		})
	}
	s.mu.Unlock()

	for _, v := range victims {
		if err := v.surface.Close(ctx); err != nil {
			log.Warn("service surface close failed", "tab", v.event.Tab.ID, "err", err)
		}
		s.emitTabEvent(v.event)
	}
	if len(victims) > 0 {
		log.Info("service idle tabs suspended", "count", len(victims), "threshold", threshold)
	}
}

// Sweeper drives SweepIdle on a fixed wall-clock period.
type Sweeper struct {
	service  Service
	interval time.Duration
	logger   pslog.Logger
}

// NewSweeper constructs a sweeper. A non-positive interval falls back to the
// default sweep period.
func NewSweeper(service Service, interval time.Duration, logger pslog.Logger) *Sweeper {
	if interval <= 0 {
		interval = schema.DefaultSweepInterval
	}
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Sweeper{service: service, interval: interval, logger: logger}
}

// Run ticks until the context is canceled.
func (w *Sweeper) Run(ctx context.Context) {
	w.logger.Debug("sweeper started", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("sweeper stopped")
			return
		case <-ticker.C:
			w.service.SweepIdle(ctx)
		}
	}
}
