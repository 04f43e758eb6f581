package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"web-analysis-platform/internal/models"
)

func newRedisRegistry(t *testing.T) *Redis {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedis(client, 5, time.Hour)
}

func TestRedisCreateAndOwnership(t *testing.T) {
	reg := newRedisRegistry(t)
	ctx := context.Background()

	id, err := reg.Create(ctx, "a@example.com", []string{"https://a.example", "https://b.example"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	snap, err := reg.Get(ctx, id, "a@example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if snap.Status != models.StatusPending {
		t.Fatalf("expected pending, got %s", snap.Status)
	}

	if _, err := reg.Get(ctx, id, "b@example.com"); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := reg.Get(ctx, "missing", "a@example.com"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRedisWatchReceivesPublishedUpdates(t *testing.T) {
	reg := newRedisRegistry(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id, err := reg.Create(ctx, "a@example.com", []string{"https://a.example"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	ch, err := reg.Watch(ctx, id, "a@example.com")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	first := <-ch
	if first.Status != models.StatusPending {
		t.Fatalf("expected initial pending snapshot, got %+v", first)
	}

	if _, err := reg.Update(ctx, id, Patch{
		Stage:       strPtr(models.StageScraping),
		CurrentStep: intPtr(1),
		Status:      strPtr(models.StatusRunning),
		Message:     strPtr("Scraping 1 URL(s)"),
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	select {
	case snap := <-ch:
		if snap.Stage != models.StageScraping || snap.Percentage != 20 {
			t.Fatalf("unexpected snapshot: %+v", snap)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for pushed snapshot")
	}

	if _, err := reg.Update(ctx, id, Patch{
		Status:      strPtr(models.StatusComplete),
		CurrentStep: intPtr(models.TotalStages),
	}); err != nil {
		t.Fatalf("terminal update: %v", err)
	}

	select {
	case snap := <-ch:
		if !snap.Terminal() {
			t.Fatalf("expected terminal snapshot, got %+v", snap)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for terminal snapshot")
	}

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected channel closed after terminal snapshot")
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for channel close")
	}
}

func TestRedisUpdateTerminalRejected(t *testing.T) {
	reg := newRedisRegistry(t)
	ctx := context.Background()

	id, err := reg.Create(ctx, "a@example.com", []string{"https://a.example"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := reg.Update(ctx, id, Patch{Status: strPtr(models.StatusFailed), Error: strPtr("boom")}); err != nil {
		t.Fatalf("fail update: %v", err)
	}
	if _, err := reg.Update(ctx, id, Patch{Message: strPtr("late")}); !errors.Is(err, ErrTerminal) {
		t.Fatalf("expected ErrTerminal, got %v", err)
	}
}
