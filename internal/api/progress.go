package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"web-analysis-platform/internal/registry"
	"web-analysis-platform/internal/telemetry"
)

// progressEvent is the wire shape of one server-sent progress update.
type progressEvent struct {
	AnalysisID  string `json:"analysis_id"`
	Stage       string `json:"stage,omitempty"`
	CurrentStep int    `json:"current_step"`
	TotalSteps  int    `json:"total_steps"`
	Status      string `json:"status"`
	Message     string `json:"message,omitempty"`
	Percentage  int    `json:"percentage"`
	Error       string `json:"error,omitempty"`
}

// handleProgress streams progress updates for one analysis as server-sent
// events. The connection closes shortly after the terminal update; a
// keepalive comment keeps idle proxies from cutting long stages off.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	owner := identity(r).Email

	updates, err := s.registry.Watch(r.Context(), id, owner)
	if err != nil {
		writeError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, fmt.Errorf("streaming unsupported by connection"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	telemetry.ProgressStreams.Inc()
	defer telemetry.ProgressStreams.Dec()

	keepalive := time.NewTicker(s.cfg.ProgressKeepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepalive.C:
			// Poll the snapshot so a dropped pub/sub message cannot leave
			// the stream open past the terminal update.
			snap, err := s.registry.Get(r.Context(), id, owner)
			if err != nil {
				return
			}
			if snap.Terminal() {
				writeEvent(w, flusher, snap)
				s.holdForGrace(r)
				return
			}
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case snap, open := <-updates:
			if !open {
				// Terminal update already delivered. Hold the connection
				// briefly so slow clients read the final event before EOF.
				s.holdForGrace(r)
				return
			}
			writeEvent(w, flusher, snap)
		}
	}
}

func (s *Server) holdForGrace(r *http.Request) {
	select {
	case <-time.After(s.cfg.ProgressGraceDelay):
	case <-r.Context().Done():
	}
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, snap registry.Snapshot) {
	payload, err := json.Marshal(progressEvent{
		AnalysisID:  snap.ID,
		Stage:       snap.Stage,
		CurrentStep: snap.CurrentStep,
		TotalSteps:  snap.TotalSteps,
		Status:      snap.Status,
		Message:     snap.Message,
		Percentage:  snap.Percentage,
		Error:       snap.Error,
	})
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
	flusher.Flush()
}
