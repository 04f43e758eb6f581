// Package pipeline executes the five-stage analysis run for one submission:
// scrape the URLs, generate the three artifacts, persist the result. Progress
// is pushed through the registry after each stage transition.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"web-analysis-platform/internal/analysis"
	"web-analysis-platform/internal/llm"
	"web-analysis-platform/internal/models"
	"web-analysis-platform/internal/registry"
	"web-analysis-platform/internal/scrape"
	"web-analysis-platform/internal/telemetry"
)

// ResultSaver persists the lifecycle of a run: running when the worker picks
// it up, then the terminal record.
type ResultSaver interface {
	MarkRunning(ctx context.Context, id string) error
	SaveResult(ctx context.Context, a *models.Analysis) error
	MarkFailed(ctx context.Context, id, reason string) error
}

// Runner drives one analysis through the stage sequence. A runner instance
// is safe for concurrent runs; each run owns its own state.
type Runner struct {
	registry registry.Registry
	scraper  *scrape.Scraper
	graphs   *analysis.GraphGenerator
	topical  *analysis.TopicalMapGenerator
	compare  *analysis.Comparator
	results  ResultSaver
}

// New assembles a runner from its collaborators.
func New(reg registry.Registry, scraper *scrape.Scraper, client llm.Client, results ResultSaver) *Runner {
	return &Runner{
		registry: reg,
		scraper:  scraper,
		graphs:   analysis.NewGraphGenerator(client),
		topical:  analysis.NewTopicalMapGenerator(client),
		compare:  analysis.NewComparator(client),
		results:  results,
	}
}

// Run executes the full pipeline for one accepted submission. Scrape failures
// degrade individual pages; LLM failures fail the run.
func (r *Runner) Run(ctx context.Context, id, owner string, urls []string) error {
	record := &models.Analysis{
		ID:     id,
		Owner:  owner,
		URLs:   urls,
		Status: models.StatusRunning,
	}

	// Status reads against the store should say running while the pipeline
	// works; the registry alone only covers the live stream.
	if err := r.results.MarkRunning(ctx, id); err != nil {
		log.Printf("analysis %s: mark running: %v", id, err)
	}

	// Stage 1: scraping.
	r.enterStage(ctx, id, models.StageScraping, 1, fmt.Sprintf("Scraping %d URLs", len(urls)))
	record.Pages, _ = timed(models.StageScraping, func() ([]models.Page, error) {
		return r.scraper.ScrapeAll(ctx, urls), nil
	})
	ok := countOK(record.Pages)
	if ok == 0 {
		return r.fail(ctx, record, "all URLs failed to scrape")
	}
	if ok < len(urls) {
		log.Printf("analysis %s: %d of %d pages scraped, continuing degraded", id, ok, len(urls))
	}

	// Stage 2: knowledge graph.
	r.enterStage(ctx, id, models.StageKnowledgeGraph, 2, "Building knowledge graph")
	graph, err := timed(models.StageKnowledgeGraph, func() (*models.KnowledgeGraph, error) {
		return r.graphs.Generate(ctx, record.Pages)
	})
	if err != nil {
		return r.fail(ctx, record, fmt.Sprintf("knowledge graph generation failed: %v", err))
	}
	record.KnowledgeGraph = graph

	// Stage 3: topical maps.
	r.enterStage(ctx, id, models.StageTopicalMaps, 3, "Generating topical maps")
	maps, err := timed(models.StageTopicalMaps, func() ([]models.TopicalMap, error) {
		return r.topical.GenerateAll(ctx, record.Pages)
	})
	if err != nil {
		return r.fail(ctx, record, fmt.Sprintf("topical map generation failed: %v", err))
	}
	record.TopicalMaps = maps

	// Stage 4: comparison. Skipped, not failed, when fewer than two sites
	// scraped successfully.
	if ok < 2 {
		r.enterStage(ctx, id, models.StageComparison, 4, "Comparison not applicable for a single site")
	} else {
		r.enterStage(ctx, id, models.StageComparison, 4, fmt.Sprintf("Comparing %d sites", ok))
		cmp, err := timed(models.StageComparison, func() (*models.Comparison, error) {
			return r.compare.Compare(ctx, record.Pages, record.TopicalMaps)
		})
		if err != nil && !errors.Is(err, analysis.ErrNotEnoughSites) {
			return r.fail(ctx, record, fmt.Sprintf("comparison failed: %v", err))
		}
		record.Comparison = cmp
	}

	// Stage 5: finalizing.
	r.enterStage(ctx, id, models.StageFinalizing, 5, "Saving results")
	record.Status = models.StatusComplete
	if err := r.results.SaveResult(ctx, record); err != nil {
		return r.fail(ctx, record, fmt.Sprintf("persist results: %v", err))
	}

	status := models.StatusComplete
	message := "Analysis complete"
	if _, err := r.registry.Update(ctx, id, registry.Patch{Status: &status, Message: &message}); err != nil {
		log.Printf("analysis %s: publish terminal snapshot: %v", id, err)
	}
	telemetry.AnalysesCompleted.Inc()
	return nil
}

// enterStage publishes the stage transition. Registry errors are logged, not
// fatal; the run itself is the source of truth.
func (r *Runner) enterStage(ctx context.Context, id, stage string, step int, message string) {
	status := models.StatusRunning
	if _, err := r.registry.Update(ctx, id, registry.Patch{
		Stage:       &stage,
		CurrentStep: &step,
		Status:      &status,
		Message:     &message,
	}); err != nil {
		log.Printf("analysis %s: publish stage %s: %v", id, stage, err)
	}
}

func (r *Runner) fail(ctx context.Context, record *models.Analysis, reason string) error {
	log.Printf("analysis %s failed: %s", record.ID, reason)
	record.Status = models.StatusFailed
	record.Error = &reason

	if err := r.results.MarkFailed(ctx, record.ID, reason); err != nil {
		log.Printf("analysis %s: persist failure: %v", record.ID, err)
	}
	status := models.StatusFailed
	if _, err := r.registry.Update(ctx, record.ID, registry.Patch{
		Status:  &status,
		Message: &reason,
		Error:   &reason,
	}); err != nil {
		log.Printf("analysis %s: publish failure: %v", record.ID, err)
	}
	telemetry.AnalysesFailed.Inc()
	return errors.New(reason)
}

func timed[T any](stage string, fn func() (T, error)) (T, error) {
	start := time.Now()
	defer func() {
		telemetry.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}()
	return fn()
}

func countOK(pages []models.Page) int {
	n := 0
	for _, p := range pages {
		if p.Status == models.PageOK {
			n++
		}
	}
	return n
}
