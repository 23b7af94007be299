// Package control exposes the daemon's HTTP surface: liveness and readiness
// probes, call status, the stored call log, a simulated hook switch, and a
// live event stream over WebSocket.
//
// Nothing here sits on the audio path. The control server is for the
// operator, the dashboard, and the test harness.
package control

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/retrophonic/rotaryd/internal/call"
	"github.com/retrophonic/rotaryd/internal/events"
)

// StatusSource reports the active call, if any.
type StatusSource interface {
	Current() (call.Snapshot, bool)
}

// HistorySource lists stored call records.
type HistorySource interface {
	List(limit int) ([]call.Record, error)
}

// HookSetter drives the simulated hook switch.
type HookSetter interface {
	Set(offHook bool)
}

// Server is the control HTTP server.
type Server struct {
	port     int
	machine  StatusSource
	history  HistorySource // nil when history is disabled
	hook     HookSetter    // nil unless the manual hook source is configured
	bus      *events.Bus
	ready    atomic.Bool
	started  time.Time
	backends map[string]string
	server   *http.Server
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// Options wires the server's dependencies.
type Options struct {
	Port     int
	Machine  StatusSource
	History  HistorySource
	Hook     HookSetter
	Bus      *events.Bus
	Backends map[string]string
	Logger   *slog.Logger
}

// New creates the control server.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		port:     opts.Port,
		machine:  opts.Machine,
		history:  opts.History,
		hook:     opts.Hook,
		bus:      opts.Bus,
		started:  time.Now(),
		backends: opts.Backends,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: logger,
	}
}

// SetReady marks the daemon as ready: config validated, workers probed.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// status is the GET /status response body.
type status struct {
	Ready    bool              `json:"ready"`
	Uptime   string            `json:"uptime"`
	Backends map[string]string `json:"backends"`
	Call     *call.Snapshot    `json:"call,omitempty"`
}

// ListenAndServe runs the server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /calls", s.handleCalls)
	mux.HandleFunc("POST /hook", s.handleHook)
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.log.Info("control server listening", "port", s.port)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("control server: %w", err)
	}
	return nil
}

// handleHealthz reports liveness.
//
// @Summary  Liveness probe
// @Tags     health
// @Produce  json
// @Success  200  {object}  map[string]string
// @Router   /healthz [get]
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz reports readiness: all workers answered their health probe.
//
// @Summary  Readiness probe
// @Tags     health
// @Produce  json
// @Success  200  {object}  map[string]string
// @Failure  503  {object}  map[string]string
// @Router   /readyz [get]
func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	if !s.ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStatus reports the daemon and active-call state.
//
// @Summary  Daemon status and active call
// @Tags     status
// @Produce  json
// @Success  200  {object}  control.status
// @Router   /status [get]
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	st := status{
		Ready:    s.ready.Load(),
		Uptime:   time.Since(s.started).Round(time.Second).String(),
		Backends: s.backends,
	}
	if snap, ok := s.machine.Current(); ok {
		st.Call = &snap
	}
	writeJSON(w, http.StatusOK, st)
}

// handleCalls lists stored call records, newest first.
//
// @Summary  Stored call history
// @Tags     status
// @Produce  json
// @Param    limit  query     int  false  "Maximum records to return (default 20)"
// @Success  200  {array}   call.Record
// @Failure  404  {string}  string  "History disabled"
// @Failure  500  {string}  string
// @Router   /calls [get]
func (s *Server) handleCalls(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, "call history disabled", http.StatusNotFound)
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	recs, err := s.history.List(limit)
	if err != nil {
		s.log.Error("listing call history failed", "error", err)
		http.Error(w, "listing calls: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if recs == nil {
		recs = []call.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// hookRequest is the POST /hook body.
type hookRequest struct {
	OffHook bool `json:"off_hook"`
}

// handleHook drives the simulated hook switch.
//
// @Summary  Set the simulated hook switch state
// @Tags     hook
// @Accept   json
// @Produce  json
// @Param    state  body      control.hookRequest  true  "Desired handset state"
// @Success  200  {object}  map[string]bool
// @Failure  400  {string}  string
// @Failure  404  {string}  string  "Hook source is not manual"
// @Router   /hook [post]
func (s *Server) handleHook(w http.ResponseWriter, r *http.Request) {
	if s.hook == nil {
		http.Error(w, "hook source is not manual", http.StatusNotFound)
		return
	}
	var req hookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.hook.Set(req.OffHook)
	writeJSON(w, http.StatusOK, map[string]bool{"off_hook": req.OffHook})
}

// handleEvents streams call events over a WebSocket.
//
// @Summary  Live call event stream
// @Tags     events
// @Success  101  {string}  string  "Switching protocols"
// @Router   /events [get]
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sub, cancel := s.bus.Subscribe(32)
	defer cancel()

	// Reads are only needed to notice the peer going away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for ev := range sub {
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
