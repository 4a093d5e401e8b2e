package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	TournamentsCreated prometheus.Counter
	TournamentsDone    prometheus.Counter
	ResultsRecorded    *prometheus.CounterVec
	MatchesReady       *prometheus.CounterVec
	AdvanceDuration    prometheus.Histogram
	LockWait           prometheus.Histogram
}

// NewMetrics registers the bracket service collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TournamentsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: "bracket",
			Name:      "tournaments_created_total",
			Help:      "Tournaments created.",
		}),
		TournamentsDone: f.NewCounter(prometheus.CounterOpts{
			Namespace: "bracket",
			Name:      "tournaments_completed_total",
			Help:      "Tournaments that produced a champion.",
		}),
		ResultsRecorded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bracket",
			Name:      "results_recorded_total",
			Help:      "Match results accepted, by bracket.",
		}, []string{"bracket"}),
		MatchesReady: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bracket",
			Name:      "matches_ready_total",
			Help:      "Matches that became playable, by bracket.",
		}, []string{"bracket"}),
		AdvanceDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bracket",
			Name:      "advance_duration_seconds",
			Help:      "Time spent advancing a bracket.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
		}),
		LockWait: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bracket",
			Name:      "lock_wait_seconds",
			Help:      "Time spent waiting for a tournament lock.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func handleMetrics(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
