// Package store persists analysis records in Postgres. All reads are
// owner-checked so one user can never see another user's analyses.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"web-analysis-platform/internal/models"
)

// Store wraps pgxpool for Postgres persistence.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a pooled connection to Postgres.
func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// CreateAnalysis inserts a pending record for a freshly accepted submission.
func (s *Store) CreateAnalysis(ctx context.Context, id, owner string, urls []string) error {
	urlsJSON, err := json.Marshal(urls)
	if err != nil {
		return fmt.Errorf("marshal urls: %w", err)
	}
	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO analyses (analysis_id, owner_email, urls, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`, id, owner, urlsJSON, models.StatusPending, now)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

// SaveResult upserts the full record for a finished (or failed) analysis.
// Re-running a delivery is safe; the last write wins.
func (s *Store) SaveResult(ctx context.Context, a *models.Analysis) error {
	pages, err := json.Marshal(a.Pages)
	if err != nil {
		return fmt.Errorf("marshal pages: %w", err)
	}
	urls, err := json.Marshal(a.URLs)
	if err != nil {
		return fmt.Errorf("marshal urls: %w", err)
	}
	var graph, maps, comparison []byte
	if a.KnowledgeGraph != nil {
		if graph, err = json.Marshal(a.KnowledgeGraph); err != nil {
			return fmt.Errorf("marshal knowledge graph: %w", err)
		}
	}
	if a.TopicalMaps != nil {
		if maps, err = json.Marshal(a.TopicalMaps); err != nil {
			return fmt.Errorf("marshal topical maps: %w", err)
		}
	}
	if a.Comparison != nil {
		if comparison, err = json.Marshal(a.Comparison); err != nil {
			return fmt.Errorf("marshal comparison: %w", err)
		}
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO analyses (analysis_id, owner_email, urls, status, pages, knowledge_graph, topical_maps, comparison, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		ON CONFLICT (analysis_id) DO UPDATE SET
			status = EXCLUDED.status,
			pages = EXCLUDED.pages,
			knowledge_graph = EXCLUDED.knowledge_graph,
			topical_maps = EXCLUDED.topical_maps,
			comparison = EXCLUDED.comparison,
			error = EXCLUDED.error,
			updated_at = NOW()
	`, a.ID, a.Owner, urls, a.Status, pages, graph, maps, comparison, a.Error)
	if err != nil {
		return fmt.Errorf("upsert analysis: %w", err)
	}
	return nil
}

// MarkRunning moves a pending record to running so status reads reflect an
// analysis that a worker has picked up. Redelivered jobs past pending are
// left alone.
func (s *Store) MarkRunning(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE analyses SET status = $2, updated_at = NOW() WHERE analysis_id = $1 AND status = $3
	`, id, models.StatusRunning, models.StatusPending)
	return err
}

// MarkFailed records a failure without touching any stored artifacts.
func (s *Store) MarkFailed(ctx context.Context, id string, reason string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE analyses SET status = $2, error = $3, updated_at = NOW() WHERE analysis_id = $1
	`, id, models.StatusFailed, reason)
	return err
}

// GetAnalysis fetches a record by id for the requesting user. A record owned
// by someone else yields ErrForbidden, a missing one ErrNotFound.
func (s *Store) GetAnalysis(ctx context.Context, id, requester string) (*models.Analysis, error) {
	a, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Owner != requester {
		return nil, fmt.Errorf("analysis %s: %w", id, models.ErrForbidden)
	}
	return a, nil
}

// GetByID fetches a record without an ownership check. Worker use only;
// request handlers go through GetAnalysis.
func (s *Store) GetByID(ctx context.Context, id string) (*models.Analysis, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT analysis_id, owner_email, urls, status, pages, knowledge_graph, topical_maps, comparison, error, created_at, updated_at
		FROM analyses WHERE analysis_id = $1
	`, id)

	var a models.Analysis
	var urlsJSON, pagesJSON, graphJSON, mapsJSON, cmpJSON []byte
	var errText pgtype.Text

	err := row.Scan(&a.ID, &a.Owner, &urlsJSON, &a.Status, &pagesJSON, &graphJSON, &mapsJSON, &cmpJSON, &errText, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("analysis %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan analysis: %w", err)
	}

	if err := json.Unmarshal(urlsJSON, &a.URLs); err != nil {
		return nil, fmt.Errorf("unmarshal urls: %w", err)
	}
	if len(pagesJSON) > 0 {
		if err := json.Unmarshal(pagesJSON, &a.Pages); err != nil {
			return nil, fmt.Errorf("unmarshal pages: %w", err)
		}
	}
	if len(graphJSON) > 0 {
		if err := json.Unmarshal(graphJSON, &a.KnowledgeGraph); err != nil {
			return nil, fmt.Errorf("unmarshal knowledge graph: %w", err)
		}
	}
	if len(mapsJSON) > 0 {
		if err := json.Unmarshal(mapsJSON, &a.TopicalMaps); err != nil {
			return nil, fmt.Errorf("unmarshal topical maps: %w", err)
		}
	}
	if len(cmpJSON) > 0 {
		if err := json.Unmarshal(cmpJSON, &a.Comparison); err != nil {
			return nil, fmt.Errorf("unmarshal comparison: %w", err)
		}
	}
	if errText.Valid {
		a.Error = &errText.String
	}
	return &a, nil
}

// ListByOwner returns the user's analyses newest first, artifacts omitted.
func (s *Store) ListByOwner(ctx context.Context, owner string, limit int) ([]models.Summary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT analysis_id, urls, status, error, created_at, updated_at
		FROM analyses WHERE owner_email = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	summaries := []models.Summary{}
	for rows.Next() {
		var sum models.Summary
		var urlsJSON []byte
		var errText pgtype.Text
		if err := rows.Scan(&sum.ID, &urlsJSON, &sum.Status, &errText, &sum.CreatedAt, &sum.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		if err := json.Unmarshal(urlsJSON, &sum.URLs); err != nil {
			return nil, fmt.Errorf("unmarshal urls: %w", err)
		}
		if errText.Valid {
			sum.Error = &errText.String
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// Delete removes the user's record. Deleting someone else's record is
// ErrForbidden; deleting a missing one is ErrNotFound.
func (s *Store) Delete(ctx context.Context, id, requester string) error {
	var owner string
	err := s.pool.QueryRow(ctx, `
		SELECT owner_email FROM analyses WHERE analysis_id = $1
	`, id).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("analysis %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("query owner: %w", err)
	}
	if owner != requester {
		return fmt.Errorf("analysis %s: %w", id, models.ErrForbidden)
	}
	_, err = s.pool.Exec(ctx, `DELETE FROM analyses WHERE analysis_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	return nil
}
