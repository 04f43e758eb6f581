// Package worker drives the analysis execution loop: dequeue with a lease,
// run the pipeline, acknowledge. Leases that expire because a worker died
// are reclaimed on the next loop pass.
package worker

import (
	"context"
	"log"
	"time"

	"web-analysis-platform/internal/config"
	"web-analysis-platform/internal/models"
	"web-analysis-platform/internal/queue"
	"web-analysis-platform/internal/telemetry"
)

// RecordSource provides the submission data for a dequeued analysis id.
type RecordSource interface {
	GetByID(ctx context.Context, id string) (*models.Analysis, error)
}

// AnalysisRunner executes one analysis end to end.
type AnalysisRunner interface {
	Run(ctx context.Context, id, owner string, urls []string) error
}

// Processor drives the worker execution loop.
type Processor struct {
	cfg     config.Config
	queue   *queue.RedisQueue
	records RecordSource
	runner  AnalysisRunner
}

// NewProcessor assembles the worker loop.
func NewProcessor(cfg config.Config, q *queue.RedisQueue, records RecordSource, runner AnalysisRunner) *Processor {
	return &Processor{cfg: cfg, queue: q, records: records, runner: runner}
}

// Run polls the queue until context cancellation.
func (p *Processor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if reclaimed, _ := p.queue.RequeueExpired(ctx, time.Now(), 100); len(reclaimed) > 0 {
			log.Printf("requeued %d expired leases", len(reclaimed))
		}
		if depth, err := p.queue.Depth(ctx); err == nil {
			telemetry.QueueDepthGauge.Set(float64(depth))
		}

		id, err := p.queue.DequeueWithLease(ctx)
		if err != nil || id == "" {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.cfg.WorkerPollInterval):
			}
			continue
		}

		p.process(ctx, id)
	}
}

// process runs one dequeued analysis. The queue item is always acked: either
// the run finished, or the failure is already persisted, or the record is
// gone. Only a worker crash leaves the lease to expire and redeliver.
func (p *Processor) process(ctx context.Context, id string) {
	defer func() {
		if err := p.queue.Ack(ctx, id); err != nil {
			log.Printf("analysis %s: ack: %v", id, err)
		}
	}()

	record, err := p.records.GetByID(ctx, id)
	if err != nil {
		log.Printf("analysis %s: load record: %v", id, err)
		return
	}
	if models.IsTerminal(record.Status) {
		log.Printf("analysis %s: already %s, skipping redelivery", id, record.Status)
		return
	}

	// Keep the lease alive while long scrape or LLM stages run.
	stopLease := p.keepLeaseAlive(ctx, id)
	defer stopLease()

	log.Printf("analysis %s: starting for %s (%d urls)", id, record.Owner, len(record.URLs))
	if err := p.runner.Run(ctx, id, record.Owner, record.URLs); err != nil {
		log.Printf("analysis %s: run: %v", id, err)
	}
}

func (p *Processor) keepLeaseAlive(ctx context.Context, id string) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(p.cfg.LeaseTimeout / 2)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := p.queue.ExtendLease(ctx, id, p.cfg.LeaseTimeout); err != nil {
					log.Printf("analysis %s: extend lease: %v", id, err)
				}
			}
		}
	}()
	return func() { close(done) }
}
