// Package registry is the authoritative source of in-flight analysis state.
// It stores one progress snapshot per analysis id and fans updates out to
// subscribed progress streams. Two backends implement the same contract: an
// in-process map for single-binary deployments and tests, and a Redis backend
// that lets the API and worker processes share state.
package registry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"time"

	"web-analysis-platform/internal/models"
)

// ErrTerminal is returned when an update targets an analysis that already
// reached complete or failed.
var ErrTerminal = errors.New("analysis already in terminal state")

// Snapshot is the progress view of one analysis, as delivered to clients.
type Snapshot struct {
	ID          string    `json:"analysis_id"`
	Owner       string    `json:"owner"`
	Stage       string    `json:"stage"`
	CurrentStep int       `json:"current_step"`
	TotalSteps  int       `json:"total_steps"`
	Status      string    `json:"status"`
	Message     string    `json:"message"`
	Percentage  int       `json:"percentage"`
	Error       string    `json:"error,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Terminal reports whether the snapshot's status admits no further updates.
func (s Snapshot) Terminal() bool {
	return models.IsTerminal(s.Status)
}

// Patch is a partial update applied atomically by Update. Nil fields are
// left untouched.
type Patch struct {
	Stage       *string
	CurrentStep *int
	Status      *string
	Message     *string
	Error       *string
}

// Registry tracks one snapshot per analysis id. A single pipeline runner is
// the only writer for a given id; reads and watches may be concurrent.
type Registry interface {
	// Create validates the submission and allocates a pending snapshot,
	// returning the new analysis id.
	Create(ctx context.Context, owner string, urls []string) (string, error)

	// Get returns the snapshot for id, or models.ErrNotFound /
	// models.ErrForbidden for unknown ids and non-owners.
	Get(ctx context.Context, id, requester string) (Snapshot, error)

	// Update applies a patch and returns the resulting snapshot. Updating a
	// terminal snapshot fails with ErrTerminal; the stage index never moves
	// backwards.
	Update(ctx context.Context, id string, patch Patch) (Snapshot, error)

	// Watch subscribes to snapshot updates for id after the same ownership
	// check as Get. The first element is the current snapshot; the channel
	// is closed after a terminal snapshot is delivered or ctx is done.
	Watch(ctx context.Context, id, requester string) (<-chan Snapshot, error)

	// Remove drops the snapshot once its terminal state has been persisted.
	Remove(ctx context.Context, id string) error
}

// Percentage computes the rounded progress percentage for a step count.
func Percentage(step, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(step) / float64(total) * 100))
}

// ValidateURLs enforces the submission contract: between 1 and max absolute
// HTTP(S) URLs. Violations wrap models.ErrInvalidInput.
func ValidateURLs(urls []string, max int) error {
	if len(urls) == 0 {
		return fmt.Errorf("%w: at least one url is required", models.ErrInvalidInput)
	}
	if len(urls) > max {
		return fmt.Errorf("%w: at most %d urls are allowed, got %d", models.ErrInvalidInput, max, len(urls))
	}
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("%w: %q is not a valid url", models.ErrInvalidInput, raw)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %q must be an absolute http(s) url", models.ErrInvalidInput, raw)
		}
	}
	return nil
}

func applyPatch(snap Snapshot, patch Patch) (Snapshot, error) {
	if snap.Terminal() {
		return snap, fmt.Errorf("%w: %s", ErrTerminal, snap.ID)
	}
	if patch.CurrentStep != nil && *patch.CurrentStep < snap.CurrentStep {
		return snap, fmt.Errorf("stage index must not decrease: have %d, got %d", snap.CurrentStep, *patch.CurrentStep)
	}
	if patch.Stage != nil {
		snap.Stage = *patch.Stage
	}
	if patch.CurrentStep != nil {
		snap.CurrentStep = *patch.CurrentStep
	}
	if patch.Status != nil {
		snap.Status = *patch.Status
	}
	if patch.Message != nil {
		snap.Message = *patch.Message
	}
	if patch.Error != nil {
		snap.Error = *patch.Error
	}
	snap.Percentage = Percentage(snap.CurrentStep, snap.TotalSteps)
	snap.UpdatedAt = time.Now().UTC()
	return snap, nil
}
