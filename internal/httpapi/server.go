package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/antoniostano/guardian/internal/config"
	"github.com/antoniostano/guardian/internal/conversation"
	"github.com/antoniostano/guardian/internal/observability"
	"github.com/antoniostano/guardian/internal/patterns"
	"github.com/antoniostano/guardian/internal/safety"
)

const maxBatchTexts = 100

type Server struct {
	cfg      config.Config
	engine   *safety.Engine
	registry *conversation.Registry
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
}

func New(cfg config.Config, engine *safety.Engine, registry *conversation.Registry, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:      cfg,
		engine:   engine,
		registry: registry,
		metrics:  metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Default: only allow browser websocket connections from the
				// same origin, so other websites cannot stream content through
				// a guardian exposed beyond localhost.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/safety/analyze", s.handleAnalyze)
	r.Post("/v1/safety/batch", s.handleBatch)
	r.Get("/v1/safety/stats", s.handleStats)
	r.Put("/v1/safety/config", s.handleUpdateConfig)
	r.Post("/v1/safety/patterns/reload", s.handleReloadPatterns)
	r.Get("/v1/safety/stream", s.handleStream)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"engine": s.engine.EngineKind(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"engine": s.engine.EngineKind(),
	})
}

type analyzeRequest struct {
	Text      string   `json:"text"`
	ChildAge  int      `json:"child_age"`
	History   []string `json:"history,omitempty"`
	SessionID string   `json:"session_id,omitempty"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	history := req.History
	if history == nil && req.SessionID != "" {
		// The context layer appends the current utterance itself, so the
		// remembered turns are read before analysis.
		history = s.registry.Recent(req.SessionID)
	}

	verdict := s.engine.Analyze(r.Context(), req.Text, req.ChildAge, history, req.SessionID)
	respondJSON(w, http.StatusOK, verdict)
}

type batchRequest struct {
	Texts     []string `json:"texts"`
	ChildAge  int      `json:"child_age"`
	SessionID string   `json:"session_id,omitempty"`
}

type batchResponse struct {
	Verdicts []safety.Verdict `json:"verdicts"`
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if len(req.Texts) == 0 {
		respondError(w, http.StatusBadRequest, "invalid_request", "texts must not be empty")
		return
	}
	if len(req.Texts) > maxBatchTexts {
		respondError(w, http.StatusBadRequest, "batch_too_large", "at most 100 texts per batch")
		return
	}

	verdicts := s.engine.BatchAnalyze(r.Context(), req.Texts, req.ChildAge, req.SessionID)
	respondJSON(w, http.StatusOK, batchResponse{Verdicts: verdicts})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"performance": s.engine.Performance(),
		"config":      s.engine.CurrentConfig(),
		"engine":      s.engine.EngineKind(),
		"sessions":    s.registry.SessionCount(),
	}
	if s.metrics != nil {
		resp["latency"] = s.metrics.Latency.Snapshot()
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var cfg safety.Config
	if err := decodeJSON(r, &cfg); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := s.engine.UpdateConfig(cfg); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_config", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, s.engine.CurrentConfig())
}

func (s *Server) handleReloadPatterns(w http.ResponseWriter, r *http.Request) {
	catalog, err := patterns.Load(s.cfg.PatternsPath)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "invalid_catalog", err.Error())
		return
	}
	matcher, err := patterns.NewMatcher(catalog, s.cfg.MatchEngine)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "invalid_catalog", err.Error())
		return
	}
	s.engine.SwapMatcher(matcher)
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "reloaded",
		"categories": catalog.Len(),
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
