package screening

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	screeningsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "screening",
		Name:      "screenings_total",
		Help:      "Sanctions screenings performed, by outcome.",
	}, []string{"outcome"})

	sanctionsMatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "screening",
		Name:      "sanctions_matches_total",
		Help:      "Qualifying sanctions matches found.",
	})

	pepScreeningsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "screening",
		Name:      "pep_screenings_total",
		Help:      "PEP screenings performed, by outcome.",
	}, []string{"outcome"})

	screeningDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "screening",
		Name:      "duration_seconds",
		Help:      "Wall-clock duration of sanctions screening calls.",
		Buckets:   prometheus.DefBuckets,
	})

	schedulerExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "screening",
		Subsystem: "scheduler",
		Name:      "executions_total",
		Help:      "Scheduled screening executions, by result.",
	}, []string{"result"})

	listUnavailableTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "screening",
		Name:      "list_unavailable_total",
		Help:      "Screenings that skipped a list reported unavailable.",
	}, []string{"list"})
)
