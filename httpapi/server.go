package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pkt.systems/tabwell/core"
	"pkt.systems/tabwell/internal/logx"
	"pkt.systems/tabwell/schema"
)

// Server serves the control API. It is the shell UI's only way into the
// lifecycle core.
type Server struct {
	cfg     Config
	service core.Service
	hub     *Hub
}

// NewServer constructs an HTTP server.
func NewServer(cfg Config, service core.Service, hub *Hub) *Server {
	return &Server{
		cfg:     cfg,
		service: service,
		hub:     hub,
	}
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tabs", s.handleTabs)
	mux.HandleFunc("/api/tabs/switch", s.handleSwitch)
	mux.HandleFunc("/api/tabs/load", s.handleLoad)
	mux.HandleFunc("/api/tabs/unload", s.handleUnload)
	mux.HandleFunc("/api/tabs/close", s.handleClose)
	mux.HandleFunc("/api/tabs/duplicate", s.handleDuplicate)
	mux.HandleFunc("/api/tabs/reopen", s.handleReopen)
	mux.HandleFunc("/api/tabs/order", s.handleOrder)
	mux.HandleFunc("/api/settings", s.handleSettings)
	mux.HandleFunc("/api/window", s.handleWindow)
	mux.HandleFunc("/api/stream", s.handleStream)
	return withRequestLogging(mux)
}

func (s *Server) handleTabs(w http.ResponseWriter, r *http.Request) {
	log := logx.Ctx(r.Context())
	switch r.Method {
	case http.MethodGet:
		resp, err := s.service.ListTabs(r.Context(), schema.ListTabsRequest{
			ProfileID:  schema.ProfileID(r.URL.Query().Get("profile")),
			WithMemory: r.URL.Query().Get("memory") == "1",
		})
		if err != nil {
			log.Warn("http tabs list failed", "err", err)
			writeError(w, statusForError(err), err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
		log.Info("http tabs list ok", "count", len(resp.Tabs))
	case http.MethodPost:
		var payload struct {
			Profile    string `json:"profile"`
			URL        string `json:"url"`
			Parent     string `json:"parent"`
			Background bool   `json:"background"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			log.Warn("http tabs decode failed", "err", err)
			writeError(w, http.StatusBadRequest, err)
			return
		}
		resp, err := s.service.CreateTab(r.Context(), schema.CreateTabRequest{
			ProfileID:  schema.ProfileID(payload.Profile),
			URL:        payload.URL,
			ParentID:   schema.TabID(payload.Parent),
			Background: payload.Background,
		})
		if err != nil {
			log.Warn("http tabs create failed", "err", err)
			writeError(w, statusForError(err), err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
		log.Info("http tabs create ok", "tab", resp.Tab.ID, "profile", resp.Tab.ProfileID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleSwitch(w http.ResponseWriter, r *http.Request) {
	s.tabAction(w, r, "switch", func(ctx context.Context, tabID schema.TabID) (any, error) {
		return s.service.SwitchTab(ctx, schema.SwitchTabRequest{TabID: tabID})
	})
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	s.tabAction(w, r, "load", func(ctx context.Context, tabID schema.TabID) (any, error) {
		return s.service.LoadTab(ctx, schema.LoadTabRequest{TabID: tabID})
	})
}

func (s *Server) handleUnload(w http.ResponseWriter, r *http.Request) {
	s.tabAction(w, r, "unload", func(ctx context.Context, tabID schema.TabID) (any, error) {
		return s.service.UnloadTab(ctx, schema.UnloadTabRequest{TabID: tabID})
	})
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	s.tabAction(w, r, "close", func(ctx context.Context, tabID schema.TabID) (any, error) {
		return s.service.CloseTab(ctx, schema.CloseTabRequest{TabID: tabID})
	})
}

func (s *Server) handleDuplicate(w http.ResponseWriter, r *http.Request) {
	s.tabAction(w, r, "duplicate", func(ctx context.Context, tabID schema.TabID) (any, error) {
		return s.service.DuplicateTab(ctx, schema.DuplicateTabRequest{TabID: tabID})
	})
}

func (s *Server) tabAction(w http.ResponseWriter, r *http.Request, name string, action func(context.Context, schema.TabID) (any, error)) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.Ctx(r.Context())
	var payload struct {
		TabID string `json:"tab_id"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("http "+name+" decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tabID := schema.TabID(payload.TabID)
	log = logx.WithTab(r.Context(), tabID)
	resp, err := action(r.Context(), tabID)
	if err != nil {
		log.Warn("http "+name+" failed", "err", err)
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
	log.Info("http " + name + " ok")
}

func (s *Server) handleReopen(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.Ctx(r.Context())
	resp, err := s.service.ReopenClosedTab(r.Context(), schema.ReopenClosedTabRequest{})
	if err != nil {
		log.Warn("http reopen failed", "err", err)
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
	log.Info("http reopen ok", "tab", resp.Tab.ID)
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.Ctx(r.Context())
	var payload struct {
		Order []string `json:"order"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("http order decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	order := make([]schema.TabID, 0, len(payload.Order))
	for _, id := range payload.Order {
		order = append(order, schema.TabID(id))
	}
	resp, err := s.service.ReorderTabs(r.Context(), schema.ReorderTabsRequest{Order: order})
	if err != nil {
		log.Warn("http order failed", "err", err)
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
	log.Info("http order ok", "count", len(resp.Order))
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.Ctx(r.Context())
	var payload struct {
		AutoSuspendEnabled   bool   `json:"auto_suspend_enabled"`
		AutoSuspendMinutes   int    `json:"auto_suspend_minutes"`
		ExcludeActiveProfile bool   `json:"exclude_active_profile"`
		SwitchBehavior       string `json:"switch_behavior"`
		LoadStrategy         string `json:"load_strategy"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("http settings decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := s.service.ApplySettings(r.Context(), schema.ApplySettingsRequest{
		Settings: schema.Settings{
			AutoSuspendEnabled:    payload.AutoSuspendEnabled,
			AutoSuspendMinutes:    payload.AutoSuspendMinutes,
			ExcludeActiveProfile:  payload.ExcludeActiveProfile,
			ProfileSwitchBehavior: schema.SwitchBehavior(payload.SwitchBehavior),
			TabLoadingStrategy:    schema.LoadStrategy(payload.LoadStrategy),
		},
	})
	if err != nil {
		log.Warn("http settings failed", "err", err)
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
	log.Info("http settings ok", "behavior", resp.Settings.ProfileSwitchBehavior, "strategy", resp.Settings.TabLoadingStrategy)
}

func (s *Server) handleWindow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log := logx.Ctx(r.Context())
	var payload schema.WindowGeometry
	if err := decodeJSON(r.Body, &payload); err != nil {
		log.Warn("http window decode failed", "err", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := s.service.SetWindowGeometry(r.Context(), schema.SetWindowGeometryRequest{Geometry: payload})
	if err != nil {
		log.Warn("http window failed", "err", err)
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
	log.Debug("http window ok")
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("stream unsupported"))
		return
	}
	log := logx.Ctx(r.Context())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	lastID := parseUint(r.Header.Get("Last-Event-ID"))

	snapshot := s.buildSnapshot(r.Context())
	_ = writeSSEvent(w, StreamEvent{
		Type:      "snapshot",
		Snapshot:  &snapshot,
		Timestamp: time.Now(),
	})
	flusher.Flush()

	replayCount := 0
	if lastID > 0 {
		replay := s.hub.Replay(lastID)
		replayCount = len(replay)
		for _, event := range replay {
			_ = writeSSEvent(w, event)
		}
		flusher.Flush()
	}

	ch, unsubscribe, _ := s.hub.Subscribe()
	defer unsubscribe()

	notify := r.Context().Done()
	log.Info("http stream opened", "last_id", lastID, "replay", replayCount, "tabs", len(snapshot.Tabs))
	for {
		select {
		case <-notify:
			log.Info("http stream closed")
			return
		case event := <-ch:
			_ = writeSSEvent(w, event)
			flusher.Flush()
		}
	}
}

func (s *Server) buildSnapshot(ctx context.Context) SnapshotPayload {
	resp, err := s.service.ListTabs(ctx, schema.ListTabsRequest{})
	if err != nil {
		return SnapshotPayload{}
	}
	return SnapshotPayload{
		Tabs:      resp.Tabs,
		ActiveTab: resp.ActiveTab,
	}
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, schema.ErrTabNotFound),
		errors.Is(err, schema.ErrProfileNotFound),
		errors.Is(err, schema.ErrNoClosedTabs):
		return http.StatusNotFound
	case errors.Is(err, schema.ErrLastTab):
		return http.StatusConflict
	case errors.Is(err, schema.ErrInvalidRequest),
		errors.Is(err, schema.ErrInvalidBehavior),
		errors.Is(err, schema.ErrInvalidStrategy):
		return http.StatusBadRequest
	case errors.Is(err, schema.ErrSurfaceUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(body io.Reader, target any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeSSEvent(w http.ResponseWriter, event StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if event.Seq > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", event.Seq)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", strings.TrimSpace(string(data)))
	return nil
}

func parseUint(value string) uint64 {
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}
