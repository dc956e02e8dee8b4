// Package viz exposes the engine to visualization clients: a JSON HTTP
// API for request/response access and a websocket hub for the event
// stream and low-latency intents (filtering, selection, viewport).
package viz

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/clubgraph/clubgraph/internal/engine"
	"github.com/clubgraph/clubgraph/internal/export"
	"github.com/clubgraph/clubgraph/internal/filter"
	"github.com/clubgraph/clubgraph/internal/observability"
	"github.com/clubgraph/clubgraph/internal/render"
)

// Config holds visualization server configuration.
type Config struct {
	ListenAddr string // e.g. ":9090"
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{ListenAddr: ":9090"}
}

// Server is the visualization HTTP server.
type Server struct {
	config *Config
	engine *engine.Engine
	hub    *Hub
	logger *slog.Logger
	server *http.Server
}

// NewServer creates a visualization server over the engine. The hub is
// owned by the server and closed with it.
func NewServer(config *Config, eng *engine.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		config: config,
		engine: eng,
		hub:    NewHub(eng, logger),
		logger: logger,
	}

	mux := http.NewServeMux()

	// API routes
	mux.HandleFunc("/api/graph", s.handleGraph)
	mux.HandleFunc("/api/graph/full", s.handleGraphFull)
	mux.HandleFunc("/api/analysis", s.handleAnalysis)
	mux.HandleFunc("/api/path", s.handlePath)
	mux.HandleFunc("/api/recommendations", s.handleRecommendations)
	mux.HandleFunc("/api/filters", s.handleFilters)
	mux.HandleFunc("/api/selection", s.handleSelection)
	mux.HandleFunc("/api/history/undo", s.handleUndo)
	mux.HandleFunc("/api/history/redo", s.handleRedo)
	mux.HandleFunc("/api/performance", s.handlePerformance)
	mux.HandleFunc("/api/viewport", s.handleViewport)
	mux.HandleFunc("/api/export", s.handleExport)
	mux.HandleFunc("/api/reload", s.handleReload)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.Handle("/metrics", observability.Metrics().Handler())
	mux.HandleFunc("/ws", s.hub.HandleWebSocket)

	// Wrap with CORS and logging middleware
	handler := corsMiddleware(loggingMiddleware(mux))

	s.server = &http.Server{
		Addr:         config.ListenAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the server's root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins serving. Blocks until Stop or a listener error.
func (s *Server) Start() error {
	s.logger.Info("starting visualization server", "addr", s.config.ListenAddr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("visualization server error: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server and disconnects all clients.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping visualization server")
	s.hub.Close()
	return s.server.Shutdown(ctx)
}

// handleGraph handles GET /api/graph (the filtered view).
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	respondJSON(w, s.engine.Snapshot())
}

// handleGraphFull handles GET /api/graph/full (the unfiltered graph).
func (s *Server) handleGraphFull(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	respondJSON(w, s.engine.FullSnapshot())
}

// handleAnalysis handles GET /api/analysis.
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	respondJSON(w, s.engine.Analyze(r.Context()))
}

// handlePath handles GET /api/path?source={id}&target={id}.
func (s *Server) handlePath(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	source, err := intParam(r, "source")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	target, err := intParam(r, "target")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	respondJSON(w, s.engine.FindPath(r.Context(), source, target))
}

// handleRecommendations handles GET /api/recommendations?club={id}&limit={n}.
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	club, err := intParam(r, "club")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit := 5
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	respondJSON(w, s.engine.Recommend(r.Context(), club, limit))
}

// handleFilters handles GET (current criteria), POST/PUT (apply) and
// DELETE (clear) on /api/filters.
func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		respondJSON(w, s.engine.Criteria())
	case http.MethodPost, http.MethodPut:
		var criteria filter.Criteria
		if err := json.NewDecoder(r.Body).Decode(&criteria); err != nil {
			http.Error(w, "Invalid criteria: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.engine.ApplyFilters(r.Context(), criteria); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		respondJSON(w, s.engine.Snapshot().Meta)
	case http.MethodDelete:
		if err := s.engine.ClearFilters(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		respondJSON(w, s.engine.Snapshot().Meta)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSelection handles GET (current selection) and POST (replace)
// on /api/selection.
func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		respondJSON(w, s.engine.Selection())
	case http.MethodPost:
		var body struct {
			Nodes []int `json:"nodes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid selection: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.engine.SelectNodes(body.Nodes); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		respondJSON(w, s.engine.Selection())
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleUndo handles POST /api/history/undo.
func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	respondJSON(w, historyStatus{Applied: s.engine.Undo(), CanUndo: s.engine.CanUndo(), CanRedo: s.engine.CanRedo()})
}

// handleRedo handles POST /api/history/redo.
func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	respondJSON(w, historyStatus{Applied: s.engine.Redo(), CanUndo: s.engine.CanUndo(), CanRedo: s.engine.CanRedo()})
}

type historyStatus struct {
	Applied bool `json:"applied"`
	CanUndo bool `json:"can_undo"`
	CanRedo bool `json:"can_redo"`
}

// handlePerformance handles GET (current settings) and POST (set mode)
// on /api/performance.
func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		respondJSON(w, performanceStatus{
			Settings: s.engine.PerformanceSettings(),
			FPS:      s.engine.FPS(),
		})
	case http.MethodPost:
		var body struct {
			Mode    string `json:"mode"`
			Auto    bool   `json:"auto"`
			Culling *bool  `json:"culling,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request: "+err.Error(), http.StatusBadRequest)
			return
		}
		if body.Culling != nil {
			s.engine.SetViewportCulling(*body.Culling)
		}
		switch {
		case body.Auto:
			s.engine.SetAutoPerformanceMode()
		case body.Mode != "":
			if err := s.engine.SetPerformanceMode(body.Mode); err != nil {
				http.Error(w, err.Error(), http.StatusUnprocessableEntity)
				return
			}
		}
		respondJSON(w, performanceStatus{
			Settings: s.engine.PerformanceSettings(),
			FPS:      s.engine.FPS(),
		})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type performanceStatus struct {
	Settings render.Settings `json:"settings"`
	FPS      float64         `json:"fps"`
}

// handleViewport handles POST /api/viewport.
func (s *Server) handleViewport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var vp render.Viewport
	if err := json.NewDecoder(r.Body).Decode(&vp); err != nil {
		http.Error(w, "Invalid viewport: "+err.Error(), http.StatusBadRequest)
		return
	}
	stats, culled := s.engine.ViewportChanged(vp)
	respondJSON(w, viewportStatus{Culled: culled, Stats: stats})
}

type viewportStatus struct {
	Culled bool             `json:"culled"`
	Stats  render.CullStats `json:"stats"`
}

// handleExport handles GET /api/export?format={json|csv|gexf|graphml|dot}.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	data, err := s.engine.Export(r.Context(), format)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeFor(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "graph."+string(format)))
	w.Write(data)
}

func contentTypeFor(f export.Format) string {
	switch f {
	case export.FormatJSON:
		return "application/json"
	case export.FormatCSV:
		return "text/csv"
	case export.FormatGEXF, export.FormatGraphML:
		return "application/xml"
	default:
		return "text/plain; charset=utf-8"
	}
}

// handleReload handles POST /api/reload?refresh={true|false}.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	forceRefresh := r.URL.Query().Get("refresh") == "true"
	if err := s.engine.Reload(r.Context(), forceRefresh); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	respondJSON(w, s.engine.Snapshot().Meta)
}

// handleHealth handles GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	respondJSON(w, map[string]any{
		"status":  "ok",
		"time":    time.Now().Format(time.RFC3339),
		"clients": s.hub.ClientCount(),
	})
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("missing %q parameter", name)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %q parameter: %v", name, err)
	}
	return v, nil
}

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// corsMiddleware adds CORS headers for local development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}
