package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	SyncRuns          *prometheus.CounterVec
	MessagesFetched   *prometheus.CounterVec
	MessageOutcomes   *prometheus.CounterVec
	LLMCalls          *prometheus.CounterVec
	DraftsQueued      prometheus.Counter
	DraftsDropped     prometheus.Counter
	DraftFailures     prometheus.Counter
	DraftsCreated     prometheus.Counter
	ProcessingTime    prometheus.Histogram
	ActiveConnections prometheus.Gauge
}

// NewMetrics creates metrics registered on reg. Pass prometheus.NewRegistry()
// in tests to avoid duplicate registration panics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SyncRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "feedback_relay_sync_runs_total",
			Help: "Total number of sync runs by trigger and status",
		}, []string{"trigger", "status"}),
		MessagesFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "feedback_relay_messages_fetched_total",
			Help: "Total number of messages fetched from source channels",
		}, []string{"channel"}),
		MessageOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "feedback_relay_message_outcomes_total",
			Help: "Total number of processed messages by outcome",
		}, []string{"status"}),
		LLMCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "feedback_relay_llm_calls_total",
			Help: "Total number of language model calls by operation and result",
		}, []string{"operation", "result"}),
		DraftsQueued: factory.NewCounter(prometheus.CounterOpts{
			Name: "feedback_relay_drafts_queued_total",
			Help: "Total number of draft reply jobs queued",
		}),
		DraftsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "feedback_relay_drafts_dropped_total",
			Help: "Total number of draft reply jobs dropped because the queue was full",
		}),
		DraftFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "feedback_relay_draft_failures_total",
			Help: "Total number of failed draft reply jobs",
		}),
		DraftsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "feedback_relay_drafts_created_total",
			Help: "Total number of draft replies created on a source channel",
		}),
		ProcessingTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "feedback_relay_processing_duration_seconds",
			Help:    "Time spent processing a single message",
			Buckets: prometheus.DefBuckets,
		}),
		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "feedback_relay_active_connections",
			Help: "Number of active source connections",
		}),
	}
}
