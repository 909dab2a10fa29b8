package indexer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	indexPassesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sibas_index_passes_started_total",
		Help: "Total number of indexing passes started",
	})
	indexPassesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sibas_index_passes_completed_total",
		Help: "Total number of indexing passes completed",
	})
	indexPassesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sibas_index_passes_failed_total",
		Help: "Total number of indexing passes failed",
	})
	indexPassesBlocked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sibas_index_passes_blocked_total",
		Help: "Total number of indexing passes skipped due to lock contention",
	})
	indexPassResumes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sibas_index_pass_resumes_total",
		Help: "Total number of passes resumed after a transient upstream error",
	})
	indexPassDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sibas_index_pass_duration_seconds",
		Help:    "Duration of indexing passes",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})
	messagesIndexed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sibas_messages_indexed_total",
		Help: "Total number of messages persisted by indexing passes",
	})
	chunksCommitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sibas_chunks_committed_total",
		Help: "Total number of chunk transactions committed",
	})
	channelsPending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sibas_channels_pending",
		Help: "Number of channels scheduled for the next periodic sweep",
	})
	liveEventsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sibas_live_events_handled_total",
		Help: "Total number of live gateway events applied to the store",
	}, []string{"type"})
)
