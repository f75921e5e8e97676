// ABOUTME: Prometheus counters for the HTTP server, exposed on /metrics.
// ABOUTME: Tracks ingested videos, answered questions, cleanup passes, and bytes freed.
package web

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the server's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	VideosIngested    prometheus.Counter
	VideosFailed      prometheus.Counter
	QuestionsAnswered prometheus.Counter
	CleanupRuns       prometheus.Counter
	RunsDeleted       prometheus.Counter
	BytesFreed        prometheus.Counter
}

// NewMetrics builds a Metrics set on its own registry so tests do not
// collide on the default registerer.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		VideosIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "tubular_videos_ingested_total",
			Help: "Videos successfully fetched, chunked, and indexed.",
		}),
		VideosFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "tubular_videos_failed_total",
			Help: "Video ingests that failed.",
		}),
		QuestionsAnswered: factory.NewCounter(prometheus.CounterOpts{
			Name: "tubular_questions_answered_total",
			Help: "Questions answered through the ask API.",
		}),
		CleanupRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "tubular_cleanup_runs_total",
			Help: "Retention cleanup passes executed (dry runs excluded).",
		}),
		RunsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "tubular_cleanup_runs_deleted_total",
			Help: "Run directories removed by retention cleanup.",
		}),
		BytesFreed: factory.NewCounter(prometheus.CounterOpts{
			Name: "tubular_cleanup_bytes_freed_total",
			Help: "Bytes reclaimed by retention cleanup.",
		}),
	}
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
