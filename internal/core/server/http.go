package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/solatis/fieldcheck/internal/core/api"
	"github.com/solatis/fieldcheck/internal/core/config"
	"github.com/solatis/fieldcheck/internal/core/logging"
	"github.com/solatis/fieldcheck/internal/core/store"
)

// HTTPServer exposes the validation service as a JSON API.
type HTTPServer struct {
	server  *http.Server
	service *api.ValidatorService
	config  *config.ServiceConfig
	logger  *zap.Logger
	maxBody int64
}

// NewHTTPServer builds the chi router and the underlying http.Server.
func NewHTTPServer(cfg *config.ServiceConfig, service *api.ValidatorService, logger *zap.Logger) (*HTTPServer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if service == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &HTTPServer{
		service: service,
		config:  cfg,
		logger:  logger,
		// A validate body carries both data and rules.
		maxBody: int64(2*cfg.MaxDocumentSize + 4096),
	}
	s.server = &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Routes returns the HTTP handler tree.
func (s *HTTPServer) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(s.logger))
	r.Use(middleware.Recoverer)
	if s.config.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.config.RequestTimeout))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/validate", s.handleValidate)

		r.Get("/rulesets", s.handleListRuleSets)
		r.Get("/rulesets/{name}", s.handleGetRuleSet)
		r.Put("/rulesets/{name}", s.handlePutRuleSet)
		r.Delete("/rulesets/{name}", s.handleDeleteRuleSet)

		r.Get("/presets", s.handleListPresets)
		r.Put("/presets/{name}", s.handlePutPreset)
		r.Delete("/presets/{name}", s.handleDeletePreset)
	})

	return r
}

// Start listens on the configured address until Shutdown.
func (s *HTTPServer) Start() error {
	listener, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", s.server.Addr, err)
	}
	return s.Serve(listener)
}

// Serve accepts connections on lis. It returns nil after Shutdown.
func (s *HTTPServer) Serve(lis net.Listener) error {
	s.logger.Info("serving HTTP", zap.String("addr", lis.Addr().String()))
	if err := s.server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"presets": len(s.service.Presets()),
	})
}

func (s *HTTPServer) handleValidate(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	var req api.ValidateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	resp, err := s.service.Validate(r.Context(), req)
	if err != nil {
		s.respondServiceError(w, "validation failed", err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleListRuleSets(w http.ResponseWriter, r *http.Request) {
	recs, err := s.service.ListRuleSets(r.Context())
	if err != nil {
		s.respondServiceError(w, "failed to list rule sets", err)
		return
	}
	if recs == nil {
		recs = []store.RuleSetRecord{}
	}
	respondJSON(w, http.StatusOK, recs)
}

func (s *HTTPServer) handleGetRuleSet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.GetRuleSet(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.respondServiceError(w, "failed to get rule set", err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *HTTPServer) handlePutRuleSet(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	rec, err := s.service.PutRuleSet(r.Context(), chi.URLParam(r, "name"), body)
	if err != nil {
		s.respondServiceError(w, "failed to store rule set", err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *HTTPServer) handleDeleteRuleSet(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteRuleSet(r.Context(), chi.URLParam(r, "name")); err != nil {
		s.respondServiceError(w, "failed to delete rule set", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleListPresets(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string][]string{"presets": s.service.Presets()})
}

func (s *HTTPServer) handlePutPreset(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	rec, err := s.service.PutPreset(r.Context(), chi.URLParam(r, "name"), body)
	if err != nil {
		s.respondServiceError(w, "failed to store preset", err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *HTTPServer) handleDeletePreset(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeletePreset(r.Context(), chi.URLParam(r, "name")); err != nil {
		s.respondServiceError(w, "failed to delete preset", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large", err)
			return nil, false
		}
		respondError(w, http.StatusBadRequest, "failed to read request body", err)
		return nil, false
	}
	return body, true
}

func (s *HTTPServer) respondServiceError(w http.ResponseWriter, message string, err error) {
	status := httpStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(message, zap.Error(err))
	}
	respondError(w, status, message, err)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	resp := map[string]string{"error": message}
	if err != nil {
		resp["details"] = err.Error()
	}
	respondJSON(w, status, resp)
}
