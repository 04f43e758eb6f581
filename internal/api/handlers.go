package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"web-analysis-platform/internal/models"
	"web-analysis-platform/internal/registry"
	"web-analysis-platform/internal/sitemap"
	"web-analysis-platform/internal/telemetry"
)

type analyzeRequest struct {
	URLs []string `json:"urls"`
}

type analyzeResponse struct {
	AnalysisID string `json:"analysis_id"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	owner := identity(r).Email

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: malformed json body", models.ErrInvalidInput))
		return
	}
	if err := registry.ValidateURLs(req.URLs, s.cfg.MaxURLsPerAnalysis); err != nil {
		writeError(w, err)
		return
	}

	allowed, _, err := s.limiter.Allow(r.Context(), owner)
	if err != nil {
		writeError(w, fmt.Errorf("rate limiter: %w", err))
		return
	}
	if !allowed {
		telemetry.RateLimitRejects.Inc()
		writeJSON(w, http.StatusTooManyRequests, errorEnvelope{Error: errorBody{
			Code:    "rate_limited",
			Message: "too many submissions, slow down",
		}})
		return
	}

	id, err := s.registry.Create(r.Context(), owner, req.URLs)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.CreateAnalysis(r.Context(), id, owner, req.URLs); err != nil {
		writeError(w, err)
		return
	}
	if err := s.queue.Enqueue(r.Context(), id); err != nil {
		reason := "failed to queue analysis"
		_ = s.store.MarkFailed(r.Context(), id, reason)
		status := models.StatusFailed
		_, _ = s.registry.Update(r.Context(), id, registry.Patch{Status: &status, Error: &reason})
		writeError(w, fmt.Errorf("enqueue analysis: %w", err))
		return
	}

	telemetry.AnalysesSubmitted.Inc()
	writeJSON(w, http.StatusAccepted, analyzeResponse{
		AnalysisID: id,
		Status:     "processing",
		Message:    fmt.Sprintf("Analysis of %d URLs started", len(req.URLs)),
	})
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	a, err := s.store.GetAnalysis(r.Context(), chi.URLParam(r, "id"), identity(r).Email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(r.Context(), id, identity(r).Email); err != nil {
		writeError(w, err)
		return
	}
	// Best effort; a live progress snapshot expires on its own otherwise.
	_ = s.registry.Remove(r.Context(), id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "analysis_id": id})
}

// artifactResponse wraps one artifact with the analysis status so clients
// can distinguish "not ready yet" from "not produced".
type artifactResponse struct {
	AnalysisID string `json:"analysis_id"`
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
}

func (s *Server) handleKnowledgeGraph(w http.ResponseWriter, r *http.Request) {
	s.serveArtifact(w, r, "knowledge_graph", func(a *models.Analysis) (any, bool) {
		if a.KnowledgeGraph == nil {
			return nil, false
		}
		return a.KnowledgeGraph, true
	})
}

func (s *Server) handleTopicalMap(w http.ResponseWriter, r *http.Request) {
	s.serveArtifact(w, r, "topical_maps", func(a *models.Analysis) (any, bool) {
		if a.TopicalMaps == nil {
			return nil, false
		}
		return a.TopicalMaps, true
	})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	s.serveArtifact(w, r, "comparison", func(a *models.Analysis) (any, bool) {
		if a.Comparison == nil {
			return nil, false
		}
		return a.Comparison, true
	})
}

// serveArtifact fetches the record and renders one artifact field. Pending
// and running analyses report processing; a complete analysis without the
// artifact reports not_applicable (single-site comparison).
func (s *Server) serveArtifact(w http.ResponseWriter, r *http.Request, field string, pick func(*models.Analysis) (any, bool)) {
	a, err := s.store.GetAnalysis(r.Context(), chi.URLParam(r, "id"), identity(r).Email)
	if err != nil {
		writeError(w, err)
		return
	}

	switch a.Status {
	case models.StatusPending, models.StatusRunning:
		writeJSON(w, http.StatusOK, artifactResponse{
			AnalysisID: a.ID,
			Status:     "processing",
			Message:    "analysis still in progress",
		})
		return
	case models.StatusFailed:
		resp := artifactResponse{AnalysisID: a.ID, Status: models.StatusFailed}
		if a.Error != nil {
			resp.Error = *a.Error
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	artifact, ok := pick(a)
	if !ok {
		writeJSON(w, http.StatusOK, artifactResponse{
			AnalysisID: a.ID,
			Status:     "not_applicable",
			Message:    fmt.Sprintf("no %s was produced for this analysis", field),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"analysis_id": a.ID,
		"status":      a.Status,
		field:         artifact,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.store.ListByOwner(r.Context(), identity(r).Email, 50)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"analyses": summaries, "total": len(summaries)})
}

func (s *Server) handleSitemap(w http.ResponseWriter, r *http.Request) {
	siteURL := r.URL.Query().Get("url")
	if siteURL == "" {
		writeError(w, fmt.Errorf("%w: url query parameter is required", models.ErrInvalidInput))
		return
	}
	result, err := s.sitemaps.Discover(r.Context(), siteURL)
	if err != nil {
		if errors.Is(err, sitemap.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorEnvelope{Error: errorBody{
				Code:    "not_found",
				Message: err.Error(),
			}})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, identity(r))
}
