package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/tabwell/internal/logx"
	"pkt.systems/tabwell/internal/persist"
	"pkt.systems/tabwell/schema"
)

// service implements the lifecycle engine. All registry mutations run behind
// one mutex; surface creation and destruction happen outside it, with tabs
// re-looked-up by id afterwards.
type service struct {
	cfg      schema.ServiceConfig
	profiles map[schema.ProfileID]schema.ProfileRef
	surfaces SurfaceFactory
	sink     EventSink
	store    *persist.Store
	logger   pslog.Logger

	mu                  sync.Mutex
	settings            schema.Settings
	reg                 *registry
	closed              *closedRing
	lastActiveByProfile map[schema.ProfileID]schema.TabID
	window              schema.WindowGeometry
	pendingActive       schema.TabID
}

var timeNow = time.Now

// NewService constructs the core service and restores tab metadata from the
// persisted session snapshot. Surfaces are not created here; RestoreSession
// applies the loading strategy once the shell window is ready.
func NewService(cfg schema.ServiceConfig, settings schema.Settings, deps ServiceDeps) (Service, error) {
	normalized, err := schema.NormalizeServiceConfig(cfg)
	if err != nil {
		return nil, err
	}
	cfg = normalized
	settings, err = schema.NormalizeSettings(settings)
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	var store *persist.Store
	if cfg.StateDir != "" {
		store, err = persist.NewStoreWithLogger(cfg.StateDir, logger)
		if err != nil {
			return nil, err
		}
	}
	profiles := make(map[schema.ProfileID]schema.ProfileRef, len(cfg.Profiles))
	for _, profile := range cfg.Profiles {
		profiles[profile.ID] = profile
	}
	s := &service{
		cfg:                 cfg,
		profiles:            profiles,
		surfaces:            deps.Surfaces,
		sink:                deps.EventSink,
		store:               store,
		logger:              logger,
		settings:            settings,
		reg:                 newRegistry(),
		closed:              newClosedRing(cfg.ClosedTabMax),
		lastActiveByProfile: make(map[schema.ProfileID]schema.TabID),
	}
	s.restoreMetadata()
	return s, nil
}

// restoreMetadata rebuilds the registry from the last good snapshot. Every
// restored tab starts unloaded; tabs of unconfigured profiles are dropped.
func (s *service) restoreMetadata() {
	if s.store == nil {
		return
	}
	snapshot, ok, err := s.store.Load()
	if err != nil || !ok {
		if err != nil {
			s.logger.Warn("service session load failed", "err", err)
		}
		return
	}
	for _, record := range snapshot.Tabs {
		if _, known := s.profiles[record.ProfileID]; !known {
			s.logger.Warn("service restored tab dropped", "tab", record.ID, "profile", record.ProfileID, "reason", "unknown profile")
			continue
		}
		s.reg.register(&tab{
			ID:        record.ID,
			Profile:   record.ProfileID,
			Parent:    record.Parent,
			URL:       record.URL,
			Title:     record.Title,
			Suspended: true,
		})
	}
	s.reg.reorder(snapshot.Order)
	for profileID, tabID := range snapshot.LastActiveByProfile {
		if s.reg.get(tabID) != nil {
			s.lastActiveByProfile[profileID] = tabID
		}
	}
	if s.reg.get(snapshot.ActiveTab) != nil {
		s.pendingActive = snapshot.ActiveTab
	}
	s.window = snapshot.Window
	s.logger.Debug("service session restored", "tabs", s.reg.len())
}

func (s *service) CreateTab(ctx context.Context, req schema.CreateTabRequest) (schema.CreateTabResponse, error) {
	profile, ok := s.profiles[req.ProfileID]
	if !ok {
		return schema.CreateTabResponse{}, fmt.Errorf("%w: %s", schema.ErrProfileNotFound, req.ProfileID)
	}
	url := req.URL
	if url == "" {
		url = profile.DefaultURL
	}
	now := timeNow()
	tabID := schema.TabID(newTabID(now))
	log := logx.WithProfileTab(ctx, profile.ID, tabID)
	log.Info("service tab create start", "url", url, "background", req.Background)

	surface, err := s.createSurface(ctx, profile, tabID, url)
	if err != nil {
		log.Warn("service tab create failed", "err", err)
		return schema.CreateTabResponse{}, err
	}

	t := &tab{
		ID:         tabID,
		Profile:    profile.ID,
		Parent:     req.ParentID,
		URL:        url,
		LastActive: now,
		surface:    surface,
	}
	s.mu.Lock()
	s.reg.register(t)
	event := schema.TabEvent{
		Type:      schema.TabEventCreated,
		Tab:       t.Snapshot(false),
		ActiveTab: s.reg.active,
	}
	s.mu.Unlock()
	s.emitTabEvent(event)
	s.persist(log)

	if !req.Background {
		if _, err := s.SwitchTab(ctx, schema.SwitchTabRequest{TabID: tabID}); err != nil {
			log.Warn("service tab activate failed", "err", err)
		}
	}
	log.Info("service tab created")
	return schema.CreateTabResponse{Tab: s.snapshotOf(tabID)}, nil
}

func (s *service) LoadTab(ctx context.Context, req schema.LoadTabRequest) (schema.LoadTabResponse, error) {
	s.mu.Lock()
	t := s.reg.get(req.TabID)
	if t == nil {
		s.mu.Unlock()
		logx.WithTab(ctx, req.TabID).Warn("service tab load failed", "err", schema.ErrTabNotFound)
		return schema.LoadTabResponse{}, schema.ErrTabNotFound
	}
	if t.loaded() {
		snap := t.Snapshot(s.reg.active == t.ID)
		s.mu.Unlock()
		return schema.LoadTabResponse{Tab: snap}, nil
	}
	profile := s.profiles[t.Profile]
	url := t.URL
	s.mu.Unlock()
	log := logx.WithProfileTab(ctx, profile.ID, req.TabID)

	surface, err := s.createSurface(ctx, profile, req.TabID, url)
	if err != nil {
		log.Warn("service tab load failed", "err", err)
		return schema.LoadTabResponse{}, err
	}

	s.mu.Lock()
	t = s.reg.get(req.TabID)
	if t == nil {
		s.mu.Unlock()
		_ = surface.Close(ctx)
		return schema.LoadTabResponse{}, schema.ErrTabNotFound
	}
	if t.loaded() {
		snap := t.Snapshot(s.reg.active == t.ID)
		s.mu.Unlock()
		_ = surface.Close(ctx)
		return schema.LoadTabResponse{Tab: snap}, nil
	}
	s.reg.attach(t.ID, surface)
	t.Suspended = false
	t.LastActive = timeNow()
	event := schema.TabEvent{
		Type:      schema.TabEventUpdated,
		Tab:       t.Snapshot(s.reg.active == t.ID),
		ActiveTab: s.reg.active,
	}
	s.mu.Unlock()
	s.emitTabEvent(event)
	log.Info("service tab loaded")
	return schema.LoadTabResponse{Tab: event.Tab}, nil
}

func (s *service) UnloadTab(ctx context.Context, req schema.UnloadTabRequest) (schema.UnloadTabResponse, error) {
	log := logx.WithTab(ctx, req.TabID)
	s.mu.Lock()
	t := s.reg.get(req.TabID)
	if t == nil {
		s.mu.Unlock()
		log.Warn("service tab unload failed", "err", schema.ErrTabNotFound)
		return schema.UnloadTabResponse{}, schema.ErrTabNotFound
	}
	if !t.loaded() {
		snap := t.Snapshot(s.reg.active == t.ID)
		s.mu.Unlock()
		return schema.UnloadTabResponse{Tab: snap}, nil
	}
	wasActive := s.reg.active == t.ID
	surface := s.reg.detach(t.ID)
	if wasActive {
		s.reg.active = ""
	}
	t.Suspended = true
	event := schema.TabEvent{
		Type:      schema.TabEventUpdated,
		Tab:       t.Snapshot(false),
		ActiveTab: s.reg.active,
	}
	s.mu.Unlock()

	if wasActive {
		if err := surface.DetachFromWindow(ctx); err != nil {
			log.Warn("service surface detach failed", "err", err)
		}
	}
	if err := surface.Close(ctx); err != nil {
		log.Warn("service surface close failed", "err", err)
	}
	s.emitTabEvent(event)
	log.Info("service tab unloaded", "was_active", wasActive)
	return schema.UnloadTabResponse{Tab: event.Tab}, nil
}

func (s *service) SwitchTab(ctx context.Context, req schema.SwitchTabRequest) (schema.SwitchTabResponse, error) {
	log := logx.WithTab(ctx, req.TabID)
	s.mu.Lock()
	t := s.reg.get(req.TabID)
	if t == nil {
		s.mu.Unlock()
		log.Warn("service tab switch failed", "err", schema.ErrTabNotFound)
		return schema.SwitchTabResponse{}, schema.ErrTabNotFound
	}
	if s.reg.active == t.ID && t.loaded() {
		t.LastActive = timeNow()
		snap := t.Snapshot(true)
		s.mu.Unlock()
		return schema.SwitchTabResponse{Tab: snap}, nil
	}
	needLoad := !t.loaded()
	var loadingEvent *schema.TabEvent
	if needLoad {
		event := schema.TabEvent{
			Type:      schema.TabEventLoading,
			Tab:       t.Snapshot(false),
			ActiveTab: s.reg.active,
		}
		loadingEvent = &event
	}
	s.mu.Unlock()

	if loadingEvent != nil {
		s.emitTabEvent(*loadingEvent)
	}
	if needLoad {
		if _, err := s.LoadTab(ctx, schema.LoadTabRequest{TabID: req.TabID}); err != nil {
			return schema.SwitchTabResponse{}, err
		}
	}

	s.mu.Lock()
	t = s.reg.get(req.TabID)
	if t == nil {
		s.mu.Unlock()
		return schema.SwitchTabResponse{}, schema.ErrTabNotFound
	}
	if !t.loaded() {
		s.mu.Unlock()
		return schema.SwitchTabResponse{}, schema.ErrSurfaceUnavailable
	}
	surface := t.surface
	prevID := s.reg.active
	var prevSurface Surface
	var fromProfile schema.ProfileID
	if prevID != "" && prevID != t.ID {
		if prev := s.reg.get(prevID); prev != nil {
			prevSurface = prev.surface
			fromProfile = prev.Profile
		}
	}
	s.mu.Unlock()

	// The previous tab stays loaded in the background, only hidden.
	if prevSurface != nil {
		if err := prevSurface.DetachFromWindow(ctx); err != nil {
			log.Warn("service surface detach failed", "tab", prevID, "err", err)
		}
	}
	if err := surface.AttachToWindow(ctx, Bounds{}); err != nil {
		s.mu.Lock()
		s.reg.active = ""
		s.mu.Unlock()
		log.Warn("service tab switch failed", "err", err)
		return schema.SwitchTabResponse{}, fmt.Errorf("%w: %v", schema.ErrSurfaceUnavailable, err)
	}

	s.mu.Lock()
	t = s.reg.get(req.TabID)
	if t == nil {
		s.mu.Unlock()
		return schema.SwitchTabResponse{}, schema.ErrTabNotFound
	}
	s.reg.active = t.ID
	t.LastActive = timeNow()
	t.Suspended = false
	s.lastActiveByProfile[t.Profile] = t.ID
	event := schema.TabEvent{
		Type:      schema.TabEventUpdated,
		Tab:       t.Snapshot(true),
		ActiveTab: t.ID,
	}
	s.mu.Unlock()
	s.emitTabEvent(event)
	s.persist(log)
	if fromProfile != "" && fromProfile != event.Tab.ProfileID {
		s.applySwitchPolicy(ctx, fromProfile)
	}
	log.Info("service tab activated")
	return schema.SwitchTabResponse{Tab: event.Tab}, nil
}

func (s *service) CloseTab(ctx context.Context, req schema.CloseTabRequest) (schema.CloseTabResponse, error) {
	log := logx.WithTab(ctx, req.TabID)
	s.mu.Lock()
	t := s.reg.get(req.TabID)
	if t == nil {
		s.mu.Unlock()
		log.Warn("service tab close failed", "err", schema.ErrTabNotFound)
		return schema.CloseTabResponse{}, schema.ErrTabNotFound
	}
	if s.reg.len() == 1 {
		s.mu.Unlock()
		log.Warn("service tab close refused", "err", schema.ErrLastTab)
		return schema.CloseTabResponse{}, schema.ErrLastTab
	}
	// The last-tab guard protects only the profile currently in view.
	scope := schema.ProfileID("")
	if s.reg.active != "" {
		if at := s.reg.get(s.reg.active); at != nil {
			scope = at.Profile
		}
	}
	if scope != "" && t.Profile == scope && len(s.reg.tabsForProfile(scope)) <= 1 {
		s.mu.Unlock()
		log.Warn("service tab close refused", "err", schema.ErrLastTab)
		return schema.CloseTabResponse{}, schema.ErrLastTab
	}

	wasActive := s.reg.active == t.ID
	profileIdx := s.reg.profileIndexOf(t.ID)
	parent := t.Parent
	surface := s.reg.detach(t.ID)
	removed := s.reg.remove(t.ID)
	s.closed.push(schema.ClosedTab{ProfileID: removed.Profile, URL: removed.URL, Title: removed.Title})
	if s.lastActiveByProfile[removed.Profile] == removed.ID {
		delete(s.lastActiveByProfile, removed.Profile)
	}

	replacement := schema.TabID("")
	if wasActive {
		if parent != "" {
			if p := s.reg.get(parent); p != nil && p.Profile == removed.Profile {
				replacement = parent
			}
		}
		if replacement == "" {
			profTabs := s.reg.tabsForProfile(removed.Profile)
			if len(profTabs) > 0 {
				if profileIdx >= len(profTabs) {
					replacement = profTabs[len(profTabs)-1].ID
				} else {
					replacement = profTabs[profileIdx].ID
				}
			}
		}
	}
	event := schema.TabEvent{
		Type:      schema.TabEventClosed,
		Tab:       removed.Snapshot(false),
		ActiveTab: s.reg.active,
	}
	s.mu.Unlock()

	if surface != nil {
		if wasActive {
			if err := surface.DetachFromWindow(ctx); err != nil {
				log.Warn("service surface detach failed", "err", err)
			}
		}
		if err := surface.Close(ctx); err != nil {
			log.Warn("service surface close failed", "err", err)
		}
	}
	s.emitTabEvent(event)
	s.persist(log)
	if replacement != "" {
		if _, err := s.SwitchTab(ctx, schema.SwitchTabRequest{TabID: replacement}); err != nil {
			log.Warn("service replacement activate failed", "replacement", replacement, "err", err)
			replacement = ""
		}
	}
	log.Info("service tab closed", "replacement", replacement)
	return schema.CloseTabResponse{Tab: event.Tab, Replaced: replacement}, nil
}

func (s *service) ReopenClosedTab(ctx context.Context, _ schema.ReopenClosedTabRequest) (schema.ReopenClosedTabResponse, error) {
	s.mu.Lock()
	entry, ok := s.closed.pop()
	s.mu.Unlock()
	if !ok {
		return schema.ReopenClosedTabResponse{}, schema.ErrNoClosedTabs
	}
	resp, err := s.CreateTab(ctx, schema.CreateTabRequest{ProfileID: entry.ProfileID, URL: entry.URL})
	if err != nil {
		s.mu.Lock()
		s.closed.push(entry)
		s.mu.Unlock()
		return schema.ReopenClosedTabResponse{}, err
	}
	return schema.ReopenClosedTabResponse{Tab: resp.Tab}, nil
}

func (s *service) DuplicateTab(ctx context.Context, req schema.DuplicateTabRequest) (schema.DuplicateTabResponse, error) {
	s.mu.Lock()
	src := s.reg.get(req.TabID)
	if src == nil {
		s.mu.Unlock()
		return schema.DuplicateTabResponse{}, schema.ErrTabNotFound
	}
	profileID := src.Profile
	url := src.URL
	s.mu.Unlock()

	resp, err := s.CreateTab(ctx, schema.CreateTabRequest{ProfileID: profileID, URL: url, ParentID: req.TabID})
	if err != nil {
		return schema.DuplicateTabResponse{}, err
	}
	// Duplicates stay visually adjacent to their source.
	s.mu.Lock()
	s.reg.moveAfter(resp.Tab.ID, req.TabID)
	s.mu.Unlock()
	s.persist(logx.WithTab(ctx, resp.Tab.ID))
	return schema.DuplicateTabResponse{Tab: s.snapshotOf(resp.Tab.ID)}, nil
}

func (s *service) ReorderTabs(ctx context.Context, req schema.ReorderTabsRequest) (schema.ReorderTabsResponse, error) {
	log := logx.Ctx(ctx)
	s.mu.Lock()
	s.reg.reorder(req.Order)
	order := s.reg.orderCopy()
	s.mu.Unlock()
	s.persist(log)
	log.Debug("service tabs reordered", "count", len(order))
	return schema.ReorderTabsResponse{Order: order}, nil
}

func (s *service) ListTabs(ctx context.Context, req schema.ListTabsRequest) (schema.ListTabsResponse, error) {
	s.mu.Lock()
	tabs := make([]schema.TabSnapshot, 0, s.reg.len())
	var surfaces map[schema.TabID]Surface
	if req.WithMemory {
		surfaces = make(map[schema.TabID]Surface)
	}
	for _, id := range s.reg.order {
		t := s.reg.get(id)
		if t == nil {
			continue
		}
		if req.ProfileID != "" && t.Profile != req.ProfileID {
			continue
		}
		tabs = append(tabs, t.Snapshot(id == s.reg.active))
		if req.WithMemory && t.loaded() {
			surfaces[id] = t.surface
		}
	}
	active := s.reg.active
	s.mu.Unlock()

	if req.WithMemory {
		for i := range tabs {
			surface := surfaces[tabs[i].ID]
			if surface == nil {
				continue
			}
			bytes, err := surface.MemoryBytes(ctx)
			if err != nil {
				logx.WithTab(ctx, tabs[i].ID).Trace("service memory query failed", "err", err)
				continue
			}
			tabs[i].MemoryBytes = bytes
		}
	}
	logx.Ctx(ctx).Trace("service tabs listed", "count", len(tabs), "active", active)
	return schema.ListTabsResponse{Tabs: tabs, ActiveTab: active}, nil
}

func (s *service) SetWindowGeometry(ctx context.Context, req schema.SetWindowGeometryRequest) (schema.SetWindowGeometryResponse, error) {
	s.mu.Lock()
	s.window = req.Geometry
	s.mu.Unlock()
	s.persist(logx.Ctx(ctx))
	return schema.SetWindowGeometryResponse{}, nil
}

// TitleChanged is the render engine's asynchronous title callback. Missing
// ids are a harmless no-op: the tab may already be closed.
func (s *service) TitleChanged(tabID schema.TabID, title string) {
	s.navigationUpdate(tabID, func(t *tab) bool {
		if t.Title == title {
			return false
		}
		t.Title = title
		return true
	})
}

// URLChanged is the render engine's asynchronous URL callback.
func (s *service) URLChanged(tabID schema.TabID, url string) {
	s.navigationUpdate(tabID, func(t *tab) bool {
		if t.URL == url {
			return false
		}
		t.URL = url
		return true
	})
}

func (s *service) navigationUpdate(tabID schema.TabID, apply func(*tab) bool) {
	s.mu.Lock()
	t := s.reg.get(tabID)
	if t == nil || !apply(t) {
		s.mu.Unlock()
		return
	}
	event := schema.TabEvent{
		Type:      schema.TabEventUpdated,
		Tab:       t.Snapshot(s.reg.active == t.ID),
		ActiveTab: s.reg.active,
	}
	s.mu.Unlock()
	s.emitTabEvent(event)
	s.persist(s.logger.With("tab", tabID))
}

func (s *service) RestoreSession(ctx context.Context) error {
	log := logx.Ctx(ctx)
	s.mu.Lock()
	strategy := s.settings.TabLoadingStrategy
	order := s.reg.orderCopy()
	focus := s.pendingActive
	if focus == "" && len(order) > 0 {
		focus = order[0]
	}
	s.mu.Unlock()

	if len(order) == 0 {
		log.Info("service session empty; creating initial tab", "profile", s.cfg.DefaultProfile)
		_, err := s.CreateTab(ctx, schema.CreateTabRequest{ProfileID: s.cfg.DefaultProfile})
		return err
	}
	if strategy == schema.LoadEager {
		for _, id := range order {
			if _, err := s.LoadTab(ctx, schema.LoadTabRequest{TabID: id}); err != nil {
				logx.WithTab(ctx, id).Warn("service eager load failed", "err", err)
			}
		}
	}
	if focus != "" {
		event := schema.TabEvent{
			Type: schema.TabEventRestoreActive,
			Tab:  s.snapshotOf(focus),
		}
		s.emitTabEvent(event)
	}
	log.Info("service session restore complete", "tabs", len(order), "strategy", strategy, "focus", focus)
	return nil
}

func (s *service) Shutdown(ctx context.Context) error {
	log := logx.Ctx(ctx)
	s.mu.Lock()
	// Snapshot before tearing down so the active tab survives the restart.
	snapshot := s.sessionSnapshotLocked()
	var surfaces []Surface
	for _, id := range s.reg.order {
		if surface := s.reg.detach(id); surface != nil {
			surfaces = append(surfaces, surface)
		}
	}
	s.reg.active = ""
	s.mu.Unlock()
	for _, surface := range surfaces {
		if err := surface.Close(ctx); err != nil {
			log.Warn("service surface close failed", "err", err)
		}
	}
	if s.store != nil {
		if err := s.store.Save(snapshot); err != nil {
			log.Warn("service persist failed", "err", err)
		}
	}
	log.Info("service shut down", "surfaces_closed", len(surfaces))
	return nil
}

func (s *service) createSurface(ctx context.Context, profile schema.ProfileRef, tabID schema.TabID, url string) (Surface, error) {
	if s.surfaces == nil {
		return nil, schema.ErrSurfaceUnavailable
	}
	surface, err := s.surfaces.Create(ctx, CreateSurfaceRequest{
		Partition: profile.Partition(),
		Events: SurfaceEvents{
			TabID:          tabID,
			OnTitleChanged: s.TitleChanged,
			OnURLChanged:   s.URLChanged,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", schema.ErrSurfaceUnavailable, err)
	}
	if url != "" {
		// Navigation is initiated here and completes asynchronously;
		// progress comes back through the surface events.
		if err := surface.Navigate(ctx, url); err != nil {
			logx.WithTab(ctx, tabID).Warn("service navigate failed", "url", url, "err", err)
		}
	}
	return surface, nil
}

func (s *service) snapshotOf(tabID schema.TabID) schema.TabSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.reg.get(tabID)
	if t == nil {
		return schema.TabSnapshot{}
	}
	return t.Snapshot(s.reg.active == t.ID)
}

func (s *service) emitTabEvent(event schema.TabEvent) {
	if s.sink == nil {
		return
	}
	s.sink.OnTabEvent(event)
}

func (s *service) persist(log pslog.Logger) {
	if s.store == nil {
		return
	}
	s.mu.Lock()
	snapshot := s.sessionSnapshotLocked()
	s.mu.Unlock()
	if err := s.store.Save(snapshot); err != nil {
		if log != nil {
			log.Warn("service persist failed", "err", err)
		}
		return
	}
	if log != nil {
		log.Trace("service session persisted", "tabs", len(snapshot.Tabs))
	}
}

func (s *service) sessionSnapshotLocked() persist.SessionSnapshot {
	tabs := make([]persist.TabRecord, 0, s.reg.len())
	for _, id := range s.reg.order {
		t := s.reg.get(id)
		if t == nil {
			continue
		}
		tabs = append(tabs, persist.TabRecord{
			ID:        t.ID,
			ProfileID: t.Profile,
			Parent:    t.Parent,
			URL:       t.URL,
			Title:     t.Title,
		})
	}
	lastActive := make(map[schema.ProfileID]schema.TabID, len(s.lastActiveByProfile))
	for profileID, tabID := range s.lastActiveByProfile {
		lastActive[profileID] = tabID
	}
	return persist.SessionSnapshot{
		Order:               s.reg.orderCopy(),
		Tabs:                tabs,
		ActiveTab:           s.reg.active,
		LastActiveByProfile: lastActive,
		Window:              s.window,
	}
}
