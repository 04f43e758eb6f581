// Package api wires the HTTP surface: submission, results, artifact reads,
// the progress event stream, and the sitemap helper. Every /api route is
// authenticated; handlers read the owner identity from the request context.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"web-analysis-platform/internal/auth"
	"web-analysis-platform/internal/config"
	"web-analysis-platform/internal/models"
	"web-analysis-platform/internal/registry"
	"web-analysis-platform/internal/sitemap"
	"web-analysis-platform/internal/telemetry"
)

// ResultStore is the persistence surface the handlers need.
type ResultStore interface {
	CreateAnalysis(ctx context.Context, id, owner string, urls []string) error
	MarkFailed(ctx context.Context, id, reason string) error
	GetAnalysis(ctx context.Context, id, requester string) (*models.Analysis, error)
	ListByOwner(ctx context.Context, owner string, limit int) ([]models.Summary, error)
	Delete(ctx context.Context, id, requester string) error
}

// Queue hands accepted submissions to the worker pool.
type Queue interface {
	Enqueue(ctx context.Context, analysisID string) error
}

// Limiter throttles submissions per owner.
type Limiter interface {
	Allow(ctx context.Context, owner string) (bool, float64, error)
}

// SitemapDiscoverer probes a site for its sitemap.
type SitemapDiscoverer interface {
	Discover(ctx context.Context, siteURL string) (*sitemap.Result, error)
}

// Server wires HTTP handlers for the analysis API.
type Server struct {
	cfg      config.Config
	tokens   *auth.Tokens
	store    ResultStore
	registry registry.Registry
	queue    Queue
	limiter  Limiter
	sitemaps SitemapDiscoverer
}

// New constructs the API server.
func New(cfg config.Config, tokens *auth.Tokens, st ResultStore, reg registry.Registry, q Queue, limiter Limiter, sitemaps SitemapDiscoverer) *Server {
	return &Server{
		cfg:      cfg,
		tokens:   tokens,
		store:    st,
		registry: reg,
		queue:    q,
		limiter:  limiter,
		sitemaps: sitemaps,
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Mount("/metrics", telemetry.Handler())

	authn := auth.Middleware(s.tokens, func(w http.ResponseWriter, _ *http.Request, err error) {
		writeError(w, err)
	})

	r.Group(func(r chi.Router) {
		r.Use(authn)

		r.Get("/auth/me", s.handleMe)

		r.Route("/api", func(r chi.Router) {
			r.Post("/analyze", s.handleAnalyze)
			r.Get("/results/{id}", s.handleGetResult)
			r.Delete("/results/{id}", s.handleDelete)
			r.Get("/progress/{id}", s.handleProgress)
			r.Get("/knowledge-graph/{id}", s.handleKnowledgeGraph)
			r.Get("/topical-map/{id}", s.handleTopicalMap)
			r.Get("/compare/{id}", s.handleCompare)
			r.Get("/history", s.handleHistory)
			r.Get("/sitemap", s.handleSitemap)
		})
	})
	return r
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// writeError maps the domain sentinels onto HTTP statuses with a stable
// error envelope.
func writeError(w http.ResponseWriter, err error) {
	code, status := "internal", http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		code, status = "invalid_input", http.StatusBadRequest
	case errors.Is(err, models.ErrUnauthenticated):
		code, status = "unauthenticated", http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		code, status = "forbidden", http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		code, status = "not_found", http.StatusNotFound
	}
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
		message = "internal error"
	}
	writeJSON(w, status, errorEnvelope{Error: errorBody{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func identity(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}
