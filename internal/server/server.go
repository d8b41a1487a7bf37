package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"intraday-trade-bot-go/internal/engine"
	"intraday-trade-bot-go/internal/strategy"

	"go.uber.org/zap"
)

// APIServer provides the HTTP interface for the strategy engine.
type APIServer struct {
	server    *http.Server
	engine    *engine.Engine
	logger    *zap.Logger
	broadcast *Broadcaster
}

// NewAPIServer creates a new APIServer listening on port.
func NewAPIServer(eng *engine.Engine, port int, logger *zap.Logger) *APIServer {
	s := &APIServer{
		engine:    eng,
		logger:    logger.Named("api-server"),
		broadcast: NewBroadcaster(logger),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/api/status", s.statusHandler)
	mux.HandleFunc("/api/run-cycle", s.runCycleHandler)
	mux.HandleFunc("/api/presets", s.presetsHandler)
	mux.HandleFunc("/api/apply-preset", s.applyPresetHandler)
	mux.HandleFunc("/api/close", s.closeHandler)
	mux.HandleFunc("/api/close-all", s.closeAllHandler)
	mux.HandleFunc("/api/trial", s.trialHandler)
	mux.HandleFunc("/api/shortlist", s.shortlistHandler)
	mux.HandleFunc("/api/archive", s.archiveHandler)
	mux.HandleFunc("/ws", s.broadcast.Handle)
	mux.Handle("/metrics", eng.MetricsHandler())

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	eng.SetCycleHook(func(snapshot *engine.Snapshot) {
		s.broadcast.Publish(snapshot)
	})
	return s
}

// Start runs the HTTP server in a new goroutine.
func (s *APIServer) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *APIServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	s.broadcast.Close()
	return s.server.Shutdown(ctx)
}

func (s *APIServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (s *APIServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *APIServer) runCycleHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.engine.RunCycle(r.Context()); err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *APIServer) presetsHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"active":  s.engine.ActivePreset(),
		"presets": s.engine.Presets(),
	})
}

func (s *APIServer) applyPresetHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	preset, err := s.engine.ApplyPreset(strategy.PresetID(req.ID))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, preset)
}

func (s *APIServer) closeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Symbol string `json:"symbol"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Symbol == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("symbol is required"))
		return
	}
	trade, err := s.engine.ForceClose(r.Context(), req.Symbol, req.Reason)
	if err != nil {
		s.writeError(w, http.StatusConflict, err)
		return
	}
	s.writeJSON(w, http.StatusOK, trade)
}

func (s *APIServer) closeAllHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	trades, err := s.engine.ForceCloseAll(r.Context(), req.Reason)
	if err != nil {
		s.writeError(w, http.StatusConflict, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"closed": len(trades), "trades": trades})
}

func (s *APIServer) trialHandler(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	presetID := strategy.PresetID(r.URL.Query().Get("preset"))
	result, err := s.engine.RunTrial(r.Context(), date, presetID, nil)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *APIServer) shortlistHandler(w http.ResponseWriter, r *http.Request) {
	shortlist, err := s.engine.BuildShortlist(r.Context())
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	s.writeJSON(w, http.StatusOK, shortlist)
}

func (s *APIServer) archiveHandler(w http.ResponseWriter, r *http.Request) {
	limit := 200
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	records, err := s.engine.ArchivedTrades(limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *APIServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (s *APIServer) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"time":  time.Now().Format(time.RFC3339),
	})
}
