// Package web provides an HTTP status and configuration server for the
// freezerd daemon.
package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"

	"github.com/freezerx/freezerd/internal/configstore"
	"github.com/freezerx/freezerd/internal/engine"
	"github.com/freezerx/freezerd/internal/status"
)

// ConfigFunc receives a validated replacement configuration. The daemon
// persists it and applies it on the next control tick.
type ConfigFunc func(engine.Config) error

// Server serves the status page and config endpoint over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	applyCfg   ConfigFunc
}

// New creates a Server that reads state from the given tracker and hands
// accepted config updates to applyCfg.
func New(addr string, tracker *status.Tracker, applyCfg ConfigFunc) *Server {
	s := &Server{tracker: tracker, applyCfg: applyCfg}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/config", s.handleConfig)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// ConfigPayload is the wire form of the control parameters. Updates
// replace the whole set; partial updates are rejected by validation when
// the omitted zero values fall outside their bounds.
type ConfigPayload struct {
	TargetTemperature   float32 `json:"target_temperature"`
	HysteresisSeconds   int16   `json:"hysteresis_seconds"`
	DeadTimeMinutes     int16   `json:"dead_time_minutes"`
	MaxRunTimeMinutes   int16   `json:"max_runtime_minutes"`
	OverheatTemperature float32 `json:"overheat_temperature"`
	StartupDelayMinutes int16   `json:"startup_delay_minutes"`
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		snap := s.tracker.Snapshot()
		p := ConfigPayload{
			TargetTemperature:   snap.Control.TargetTemperature,
			HysteresisSeconds:   snap.Control.HysteresisSeconds,
			DeadTimeMinutes:     snap.Control.DeadTimeMinutes,
			MaxRunTimeMinutes:   snap.Control.MaxRunTimeMinutes,
			OverheatTemperature: snap.Control.OverheatTemperature,
			StartupDelayMinutes: snap.Control.StartupDelayMinutes,
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(p)

	case http.MethodPost:
		var p ConfigPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
			return
		}
		cfg := engine.Config{
			TargetTemperature:   p.TargetTemperature,
			HysteresisSeconds:   p.HysteresisSeconds,
			DeadTimeMinutes:     p.DeadTimeMinutes,
			MaxRunTimeMinutes:   p.MaxRunTimeMinutes,
			OverheatTemperature: p.OverheatTemperature,
			StartupDelayMinutes: p.StartupDelayMinutes,
		}
		if err := configstore.Validate(cfg); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		if err := s.applyCfg(cfg); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusAccepted)

	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
