package analysis

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for analysis_requests_total.
const (
	outcomeOK         = "ok"
	outcomeDegraded   = "degraded"
	outcomeTooLarge   = "too_large"
	outcomeBadJSON    = "invalid_json"
	outcomeInvalid    = "invalid"
	outcomeInternal   = "internal_error"
	cacheResultHit    = "hit"
	cacheResultMiss   = "miss"
	cacheResultError  = "error"
	cacheResultShared = "shared"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analysis_requests_total",
		Help: "Analysis requests by outcome.",
	}, []string{"outcome"})

	cacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analysis_cache_total",
		Help: "Cache lookups by result.",
	}, []string{"result"})

	upstreamErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analysis_upstream_errors_total",
		Help: "Failed model calls by error kind.",
	}, []string{"kind"})

	upstreamDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "analysis_upstream_duration_seconds",
		Help:    "Latency of model calls.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 45, 60},
	})
)
