package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search pipeline metrics.
var (
	// ResolverStrategyTotal counts which strategy produced the query vector.
	ResolverStrategyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolver_strategy_total",
			Help:      "Query resolutions by strategy and outcome",
		},
		[]string{"strategy", "status"}, // status: success / failed / skipped
	)

	GatewaySearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_searches_total",
			Help:      "Listing index searches by outcome",
		},
		[]string{"outcome"}, // hits / empty / error
	)

	GatewaySearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_search_duration_seconds",
			Help:      "Listing index search duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	RankerOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ranker_outcomes_total",
			Help:      "Photo ranking outcomes",
		},
		[]string{"outcome"}, // ranked / unranked / passthrough
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers search pipeline metrics. Safe to call more than once.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(ResolverStrategyTotal)
	prometheus.MustRegister(GatewaySearchesTotal)
	prometheus.MustRegister(GatewaySearchDuration)
	prometheus.MustRegister(RankerOutcomesTotal)
	pipelineMetricsRegistered = true
}
