package metrics

import "github.com/prometheus/client_golang/prometheus"

// Conversation and search pipeline metrics.
var (
	IntentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intents_total",
			Help:      "Resolved intents by kind",
		},
		[]string{"kind", "fallback"},
	)

	LoopOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loop_outcomes_total",
			Help:      "Conversation loop terminal states",
		},
		[]string{"state", "reason"},
	)

	DomainSearchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "domain_search_total",
			Help:      "Per-domain search outcomes by source (semantic, keyword)",
		},
		[]string{"domain", "source", "status"},
	)

	NormalizerPathTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "normalizer_path_total",
			Help:      "Normalizer runs by path (primary, fallback)",
		},
		[]string{"path"},
	)

	CacheWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_writes_total",
			Help:      "Search snapshot writes by result",
		},
		[]string{"result"},
	)

	LocationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "location_requests_total",
			Help:      "Location round trips by outcome",
		},
		[]string{"outcome"},
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Open websocket sessions",
		},
	)
)
