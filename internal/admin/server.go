package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"uavnet-sim/internal/config"
	"uavnet-sim/internal/metrics"
	"uavnet-sim/internal/sim"
	"uavnet-sim/internal/telemetry"

	"github.com/gorilla/websocket"
)

// Source is the running simulation the server reports on.
type Source interface {
	RunID() string
	Config() *config.Config
	Metrics() metrics.Summary
	Nodes() []telemetry.NodeStateRow
}

var upgrader = websocket.Upgrader{
	// The stream is read-only; any origin may watch.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server exposes a running simulation over HTTP: JSON snapshots of the
// metrics, nodes and configuration, and a websocket stream of hub messages.
type Server struct {
	Sim Source
	Hub *sim.EventHub
	log *slog.Logger
	mux *http.ServeMux
}

// NewServer exposes src over HTTP. hub may be nil, which disables /ws/events.
func NewServer(src Source, hub *sim.EventHub, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Server{Sim: src, Hub: hub, log: log.With("component", "admin"), mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/metrics", s.handleMetrics)
	s.mux.HandleFunc("/nodes", s.handleNodes)
	s.mux.HandleFunc("/config", s.handleConfig)
	s.mux.HandleFunc("/ws/events", s.handleEvents)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

// Start serves on addr until ctx is done.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("admin server shutdown failed", "err", err)
		}
	}()
	s.log.Info("admin server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("failed to encode response", "path", r.URL.Path, "err", err)
	}
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, struct {
		RunID string `json:"run_id"`
		metrics.Summary
	}{s.Sim.RunID(), s.Sim.Metrics()})
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, s.Sim.Nodes())
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, s.Sim.Config())
}

// handleEvents upgrades to a websocket and pushes hub messages until the
// client goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.Hub == nil {
		http.Error(w, "event stream disabled", http.StatusNotFound)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	ch := s.Hub.Subscribe()
	defer s.Hub.Unsubscribe(ch)

	// A read loop is needed to notice the peer closing.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case m := <-ch:
			if err := conn.WriteJSON(m); err != nil {
				s.log.Debug("websocket write failed", "err", err)
				return
			}
		case <-gone:
			return
		case <-r.Context().Done():
			return
		}
	}
}
