package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	upstreamAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_attempts_total",
			Help: "Total upstream request attempts by outcome",
		},
		[]string{"outcome"},
	)

	breakerRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "upstream_breaker_rejections_total",
			Help: "Calls rejected without a network attempt because the circuit breaker was open",
		},
	)

	breakerFailures = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "upstream_breaker_consecutive_failures",
			Help: "Current consecutive upstream failure count tracked by the circuit breaker",
		},
	)
)
