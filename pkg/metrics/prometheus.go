package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nightgate_decisions_total",
			Help: "Total number of admission decisions by policy, reason and verdict",
		},
		[]string{"policy", "reason", "verdict"},
	)

	Admitted = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nightgate_admitted",
			Help: "Candidates admitted in the current run",
		},
	)

	RejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nightgate_rejected_total",
			Help: "Total number of rejected candidates",
		},
	)

	NeedRemaining = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nightgate_need_remaining",
			Help: "Unmet quota per attribute in the current run",
		},
		[]string{"attribute"},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nightgate_runs_total",
			Help: "Total number of finished runs by status",
		},
		[]string{"status"},
	)

	GameRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nightgate_game_request_duration_seconds",
			Help:    "Game server request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"endpoint", "status"},
	)

	GameRequestRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nightgate_game_request_retries_total",
			Help: "Total number of retried game server requests",
		},
		[]string{"endpoint"},
	)
)
