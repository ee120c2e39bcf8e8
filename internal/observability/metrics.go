package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	httpRequestsTotal      *prometheus.CounterVec
	httpLatencySeconds     *prometheus.HistogramVec
	messagesSentTotal      *prometheus.CounterVec
	reactionUpdatesTotal   *prometheus.CounterVec
	pollVotesTotal         prometheus.Counter
	moderationActionsTotal *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the engine.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parley_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "parley_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		messagesSentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parley_messages_sent_total",
			Help: "Total number of messages accepted by the ledger.",
		}, []string{"kind"})

		reactionUpdatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parley_reaction_updates_total",
			Help: "Total number of reaction add/remove operations applied.",
		}, []string{"op"})

		pollVotesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parley_poll_votes_total",
			Help: "Total number of poll votes recorded.",
		})

		moderationActionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parley_moderation_actions_total",
			Help: "Total number of moderation actions applied.",
		}, []string{"action"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			messagesSentTotal,
			reactionUpdatesTotal,
			pollVotesTotal,
			moderationActionsTotal,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// MessagesSent exposes the counter for accepted messages.
func MessagesSent() *prometheus.CounterVec {
	RegisterMetrics()
	return messagesSentTotal
}

// ReactionUpdates exposes the counter for reaction operations.
func ReactionUpdates() *prometheus.CounterVec {
	RegisterMetrics()
	return reactionUpdatesTotal
}

// PollVotes exposes the counter for recorded votes.
func PollVotes() prometheus.Counter {
	RegisterMetrics()
	return pollVotesTotal
}

// ModerationActions exposes the counter for moderation actions.
func ModerationActions() *prometheus.CounterVec {
	RegisterMetrics()
	return moderationActionsTotal
}
