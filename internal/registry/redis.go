package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"web-analysis-platform/internal/models"
)

// Redis is the shared Registry backend: snapshots live in Redis keys and
// updates are fanned out over pub/sub, so the worker process can drive
// progress streams served by the API process.
type Redis struct {
	client  *redis.Client
	maxURLs int
	ttl     time.Duration
}

// NewRedis builds a registry on the given Redis client. Snapshot keys expire
// after ttl so abandoned entries do not accumulate.
func NewRedis(client *redis.Client, maxURLs int, ttl time.Duration) *Redis {
	return &Redis{client: client, maxURLs: maxURLs, ttl: ttl}
}

func (r *Redis) snapKey(id string) string {
	return "progress:" + id
}

func (r *Redis) channel(id string) string {
	return "progress:events:" + id
}

func (r *Redis) Create(ctx context.Context, owner string, urls []string) (string, error) {
	if err := ValidateURLs(urls, r.maxURLs); err != nil {
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
	if err := r.put(ctx, snap); err != nil {
		return "", err
	}
	return id, nil
}

func (r *Redis) Get(ctx context.Context, id, requester string) (Snapshot, error) {
	snap, err := r.load(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	if snap.Owner != requester {
		return Snapshot{}, fmt.Errorf("%w: analysis %s", models.ErrForbidden, id)
	}
	return snap, nil
}

// Update loads, patches, and rewrites the snapshot, then publishes it. The
// read-modify-write is safe because the pipeline runner holding the queue
// lease is the only writer for this id.
func (r *Redis) Update(ctx context.Context, id string, patch Patch) (Snapshot, error) {
	snap, err := r.load(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	next, err := applyPatch(snap, patch)
	if err != nil {
		return Snapshot{}, err
	}
	if err := r.put(ctx, next); err != nil {
		return Snapshot{}, err
	}

	payload, err := json.Marshal(next)
	if err != nil {
		return Snapshot{}, fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel(id), payload).Err(); err != nil {
		return Snapshot{}, fmt.Errorf("publish snapshot: %w", err)
	}
	return next, nil
}

func (r *Redis) Watch(ctx context.Context, id, requester string) (<-chan Snapshot, error) {
	// Subscribe before the initial read so no update slips between them.
	sub := r.client.Subscribe(ctx, r.channel(id))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe progress channel: %w", err)
	}

	snap, err := r.Get(ctx, id, requester)
	if err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan Snapshot, 16)
	out <- snap
	if snap.Terminal() {
		_ = sub.Close()
		close(out)
		return out, nil
	}

	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				var next Snapshot
				if err := json.Unmarshal([]byte(msg.Payload), &next); err != nil {
					continue
				}
				select {
				case out <- next:
				case <-ctx.Done():
					return
				}
				if next.Terminal() {
					return
				}
			}
		}
	}()
	return out, nil
}

func (r *Redis) Remove(ctx context.Context, id string) error {
	return r.client.Del(ctx, r.snapKey(id)).Err()
}

func (r *Redis) load(ctx context.Context, id string) (Snapshot, error) {
	raw, err := r.client.Get(ctx, r.snapKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, fmt.Errorf("%w: analysis %s", models.ErrNotFound, id)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

func (r *Redis) put(ctx context.Context, snap Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := r.client.Set(ctx, r.snapKey(snap.ID), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	return nil
}

var _ Registry = (*Memory)(nil)
var _ Registry = (*Redis)(nil)
