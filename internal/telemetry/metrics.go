package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	AnalysesSubmitted = prometheus.NewCounter(prometheus.CounterOpts{Name: "analyses_submitted_total", Help: "Analyses accepted for processing"})
	AnalysesCompleted = prometheus.NewCounter(prometheus.CounterOpts{Name: "analyses_completed_total", Help: "Analyses that reached complete"})
	AnalysesFailed    = prometheus.NewCounter(prometheus.CounterOpts{Name: "analyses_failed_total", Help: "Analyses that reached failed"})
	ScrapeFailures    = prometheus.NewCounter(prometheus.CounterOpts{Name: "scrape_page_failures_total", Help: "Input URLs that could not be scraped"})
	LLMCalls          = prometheus.NewCounter(prometheus.CounterOpts{Name: "llm_calls_total", Help: "Chat-completion calls issued"})
	RateLimitRejects  = prometheus.NewCounter(prometheus.CounterOpts{Name: "submission_rate_limit_rejects_total", Help: "Submissions rejected by the per-owner limiter"})
	QueueDepthGauge   = prometheus.NewGauge(prometheus.GaugeOpts{Name: "analyses_queue_depth", Help: "Ready queue depth"})
	ProgressStreams   = prometheus.NewGauge(prometheus.GaugeOpts{Name: "progress_streams_open", Help: "Progress streams currently connected"})
	StageDuration     = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pipeline_stage_duration_seconds",
		Help:    "Wall time spent per pipeline stage",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"stage"})
)

// Handler exposes the /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			AnalysesSubmitted,
			AnalysesCompleted,
			AnalysesFailed,
			ScrapeFailures,
			LLMCalls,
			RateLimitRejects,
			QueueDepthGauge,
			ProgressStreams,
			StageDuration,
		)
	})
	return promhttp.Handler()
}
