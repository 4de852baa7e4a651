// Package metrics exposes prometheus instruments for the tab session.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Mutation outcomes
const (
	OutcomeSuccess  = "success"
	OutcomeRollback = "rollback"
	OutcomeAuth     = "auth"
)

var (
	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskdeck_mutations_total",
		Help: "Optimistic mutations by entity, kind and outcome",
	}, []string{"entity", "kind", "outcome"})

	mutationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "taskdeck_mutation_commit_duration_seconds",
		Help:    "Duration of the network commit of optimistic mutations",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"entity", "kind"})

	pendingCompletions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "taskdeck_pending_completions",
		Help: "Completion toggles waiting inside the undo window",
	})

	completionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskdeck_completions_total",
		Help: "Completion toggles by resolution (committed, undone, cleaned_up)",
	}, []string{"resolution"})

	syncMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskdeck_sync_messages_total",
		Help: "Cross-tab sync messages by direction and type",
	}, []string{"direction", "type"})

	cacheInvalidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskdeck_cache_invalidations_total",
		Help: "Cache partition invalidations by kind",
	}, []string{"kind"})

	cacheFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "taskdeck_cache_fetch_duration_seconds",
		Help:    "Duration of partition fetches",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"kind"})
)

// RecordMutation counts a finished mutation.
func RecordMutation(entity, kind, outcome string, commit time.Duration) {
	mutationsTotal.WithLabelValues(entity, kind, outcome).Inc()
	mutationDuration.WithLabelValues(entity, kind).Observe(commit.Seconds())
}

// SetPendingCompletions reports the current number of pending completions.
func SetPendingCompletions(n int) {
	pendingCompletions.Set(float64(n))
}

// RecordCompletion counts how a pending completion was resolved.
func RecordCompletion(resolution string) {
	completionsTotal.WithLabelValues(resolution).Inc()
}

// RecordSyncMessage counts a sent ("out"), applied ("in") or dropped message.
func RecordSyncMessage(direction, msgType string) {
	syncMessagesTotal.WithLabelValues(direction, msgType).Inc()
}

// RecordInvalidation counts a partition kind invalidation.
func RecordInvalidation(kind string) {
	cacheInvalidationsTotal.WithLabelValues(kind).Inc()
}

// ObserveFetch records a partition fetch duration.
func ObserveFetch(kind string, d time.Duration) {
	cacheFetchDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// Handler serves the default registry in the text exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
