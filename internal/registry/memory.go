package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"web-analysis-platform/internal/models"
)

// Memory is the in-process Registry backend. Suitable when the API and
// worker run in one binary, and for tests.
type Memory struct {
	maxURLs int

	mu    sync.RWMutex
	snaps map[string]Snapshot
	subs  map[string][]*subscriber
}

// subscriber pairs a watch channel with a signal that fires when the
// subscription is torn down, so the ctx goroutine in Watch always exits.
type subscriber struct {
	ch   chan Snapshot
	done chan struct{}
}

func (s *subscriber) close() {
	close(s.ch)
	close(s.done)
}

// NewMemory builds an empty in-memory registry.
func NewMemory(maxURLs int) *Memory {
	return &Memory{
		maxURLs: maxURLs,
		snaps:   make(map[string]Snapshot),
		subs:    make(map[string][]*subscriber),
	}
}

func (m *Memory) Create(_ context.Context, owner string, urls []string) (string, error) {
	if err := ValidateURLs(urls, m.maxURLs); err != nil {
		return "", err
	}

	id := uuid.NewString()
	snap := Snapshot{
		ID:         id,
		Owner:      owner,
		Status:     models.StatusPending,
		Message:    "Queued for analysis",
		TotalSteps: models.TotalStages,
		UpdatedAt:  time.Now().UTC(),
	}

	m.mu.Lock()
	m.snaps[id] = snap
	m.mu.Unlock()
	return id, nil
}

func (m *Memory) Get(_ context.Context, id, requester string) (Snapshot, error) {
	m.mu.RLock()
	snap, ok := m.snaps[id]
	m.mu.RUnlock()
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: analysis %s", models.ErrNotFound, id)
	}
	if snap.Owner != requester {
		return Snapshot{}, fmt.Errorf("%w: analysis %s", models.ErrForbidden, id)
	}
	return snap, nil
}

func (m *Memory) Update(_ context.Context, id string, patch Patch) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap, ok := m.snaps[id]
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: analysis %s", models.ErrNotFound, id)
	}

	next, err := applyPatch(snap, patch)
	if err != nil {
		return Snapshot{}, err
	}
	m.snaps[id] = next

	// Fan out under the lock so every watcher observes updates in the order
	// the runner applied them.
	for _, sub := range m.subs[id] {
		select {
		case sub.ch <- next:
		default: // slow watcher: drop rather than block the runner
		}
	}
	if next.Terminal() {
		for _, sub := range m.subs[id] {
			sub.close()
		}
		delete(m.subs, id)
	}
	return next, nil
}

func (m *Memory) Watch(ctx context.Context, id, requester string) (<-chan Snapshot, error) {
	m.mu.Lock()
	snap, ok := m.snaps[id]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: analysis %s", models.ErrNotFound, id)
	}
	if snap.Owner != requester {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: analysis %s", models.ErrForbidden, id)
	}

	ch := make(chan Snapshot, 16)
	ch <- snap
	if snap.Terminal() {
		close(ch)
		m.mu.Unlock()
		return ch, nil
	}
	sub := &subscriber{ch: ch, done: make(chan struct{})}
	m.subs[id] = append(m.subs[id], sub)
	m.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			m.unsubscribe(id, sub)
		case <-sub.done:
			// Torn down by a terminal update or Remove.
		}
	}()
	return ch, nil
}

func (m *Memory) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sub := range m.subs[id] {
		sub.close()
	}
	delete(m.subs, id)
	delete(m.snaps, id)
	return nil
}

func (m *Memory) unsubscribe(id string, sub *subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := m.subs[id]
	for i, s := range subs {
		if s == sub {
			m.subs[id] = append(subs[:i], subs[i+1:]...)
			s.close()
			return
		}
	}
}
