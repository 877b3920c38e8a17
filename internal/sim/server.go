// Package sim is a stand-in GridNinja backend for local development:
// it serves the same telemetry surface (websocket, SSE, poll, history)
// the production control plane exposes, fed by a synthetic twin.
package sim

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/DaeVac/GridNinja/internal/api"
	"github.com/DaeVac/GridNinja/internal/telemetry"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server serves the fake backend endpoints.
type Server struct {
	mux  *http.ServeMux
	twin *Twin
	log  zerolog.Logger
	tick time.Duration

	mu      sync.RWMutex
	latest  *telemetry.Point
	history []telemetry.Point

	clientsMu sync.Mutex
	clients   map[chan []byte]struct{}

	// Publish, when set, receives every generated point as JSON. Used
	// for the optional MQTT fan-out.
	Publish func([]byte)

	stop chan struct{}
	once sync.Once
}

// New builds a simulator server generating one point per tick.
func New(twin *Twin, tick time.Duration, log zerolog.Logger) *Server {
	if tick <= 0 {
		tick = time.Second
	}
	s := &Server{
		mux:     http.NewServeMux(),
		twin:    twin,
		log:     log,
		tick:    tick,
		clients: make(map[chan []byte]struct{}),
		stop:    make(chan struct{}),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/ws/telemetry", s.handleWS)
	s.mux.HandleFunc("/telemetry/stream", s.handleStream)
	s.mux.HandleFunc("/telemetry/latest", s.handleLatest)
	s.mux.HandleFunc("/telemetry/timeseries", s.handleTimeseries)
	s.mux.HandleFunc("/kpi/summary", s.handleKpiSummary)
	s.mux.HandleFunc("/demo/scenario/", s.handleScenario)
	s.mux.HandleFunc("/demo/reset", s.handleReset)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Run generates points until Stop. Blocks; callers usually `go Run()`.
func (s *Server) Run() {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.step()
		}
	}
}

// Stop ends the generator loop.
func (s *Server) Stop() {
	s.once.Do(func() { close(s.stop) })
}

func (s *Server) step() {
	p := s.twin.Next()

	s.mu.Lock()
	s.latest = &p
	s.history = append(s.history, p)
	if len(s.history) > 3600 {
		s.history = s.history[len(s.history)-3600:]
	}
	s.mu.Unlock()

	payload, err := json.Marshal(p)
	if err != nil {
		return
	}
	s.broadcast(payload)
	if s.Publish != nil {
		s.Publish(payload)
	}
}

func (s *Server) broadcast(payload []byte) {
	s.clientsMu.Lock()
	for ch := range s.clients {
		select {
		case ch <- payload:
		default: // slow consumer: drop rather than stall the twin
		}
	}
	s.clientsMu.Unlock()
}

func (s *Server) subscribe() chan []byte {
	ch := make(chan []byte, 16)
	s.clientsMu.Lock()
	s.clients[ch] = struct{}{}
	s.clientsMu.Unlock()
	return ch
}

func (s *Server) unsubscribe(ch chan []byte) {
	s.clientsMu.Lock()
	delete(s.clients, ch)
	s.clientsMu.Unlock()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"status": "ok",
		"ts":     time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	ch := s.subscribe()
	defer s.unsubscribe(ch)

	// Drain client frames so pings and closes are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-s.stop:
			return
		case payload := <-ch:
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.subscribe()
	defer s.unsubscribe(ch)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.stop:
			return
		case payload := <-ch:
			w.Write([]byte("data: "))
			w.Write(payload)
			w.Write([]byte("\n\n"))
			flusher.Flush()
		}
	}
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	latest := s.latest
	s.mu.RUnlock()
	if latest == nil {
		http.Error(w, "no telemetry yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, latest)
}

func (s *Server) handleTimeseries(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	out := make([]telemetry.Point, len(s.history))
	copy(out, s.history)
	s.mu.RUnlock()
	writeJSON(w, out)
}

// handleKpiSummary fakes the control plane's KPI aggregation from the
// generated history: every high-stress point counts as one prevented
// unsafe action. The numbers are synthetic but the shape is the real
// KpiSummary, so dashboard proxy routes work against the simulator.
func (s *Server) handleKpiSummary(w http.ResponseWriter, r *http.Request) {
	windowS := 900
	if v := r.URL.Query().Get("window_s"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 60 || n > 3600 {
			http.Error(w, "window_s must be in [60, 3600]", http.StatusUnprocessableEntity)
			return
		}
		windowS = n
	}

	// One point per tick, so the window maps to a point count.
	perWindow := int(float64(windowS) / s.tick.Seconds())
	if perWindow < 1 {
		perWindow = 1
	}

	s.mu.RLock()
	recent := s.history
	if len(recent) > perWindow {
		recent = recent[len(recent)-perWindow:]
	}
	var stressed int
	for _, p := range recent {
		if p.StressScore > 0.5 {
			stressed++
		}
	}
	total := len(recent)
	s.mu.RUnlock()

	var blockedRate float64
	if total > 0 {
		blockedRate = round1(float64(stressed) / float64(total) * 100)
	}
	topRules := []string{}
	byComponent := map[string]int{}
	byRule := map[string]int{}
	if stressed > 0 {
		topRules = []string{"THERMAL_LIMIT", "FREQ_DEVIATION"}
		byComponent["THERMAL"] = stressed
		byRule["THERMAL_LIMIT"] = stressed
	}

	writeJSON(w, api.KpiSummary{
		WindowS:                     windowS,
		UnsafeActionsPreventedTotal: stressed,
		BlockedDecisionsUnique:      stressed,
		BlockedRatePct:              blockedRate,
		TopBlockedRules:             topRules,
		MoneySavedUsd:               round1(float64(stressed) * 12.5),
		CO2AvoidedKg:                round1(float64(stressed) * 3.2),
		SlaPenaltyUsd:               0,
		JobsCompletedOnTimePct:      round1(100 - blockedRate/10),
		UnsafePreventedByComponent:  byComponent,
		UnsafePreventedByRule:       byRule,
	})
}

func (s *Server) handleScenario(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	name := r.URL.Path[len("/demo/scenario/"):]
	if name == "" {
		http.Error(w, "scenario name required", http.StatusBadRequest)
		return
	}
	s.twin.StartScenario(name)
	writeJSON(w, map[string]string{"scenario_id": name, "status": "running"})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.twin.Reset()
	writeJSON(w, map[string]string{"status": "reset"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
