package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for monitoring
var (
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapper_transitions_total",
		Help: "The total number of orchestrator state transitions",
	}, []string{"from", "to"})

	Phase = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "swapper_phase",
		Help: "Set to 1 for the phase the orchestrator is currently in",
	}, []string{"phase"})

	ActorInvocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapper_actor_invocations_total",
		Help: "Actor invocations by outcome",
	}, []string{"actor", "result"})

	StaleCompletions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapper_stale_completions_total",
		Help: "Actor completions discarded because their state was already exited",
	}, []string{"actor"})

	GuardRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapper_guard_rejections_total",
		Help: "Events dropped because no guarded transition accepted them",
	}, []string{"event"})

	QuotePolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapper_quote_polls_total",
		Help: "Quote poller cycles by outcome",
	}, []string{"result"})

	QuotePollTime = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "swapper_quote_poll_seconds",
		Help:    "Time taken by a single quote poll",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 8), // 50ms .. 6.4s
	})

	QuotesAvailable = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swapper_quotes_available",
		Help: "Number of quotes returned by the latest successful poll",
	})

	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapper_upstream_requests_total",
		Help: "Requests sent to the solver relay and NEAR RPC by outcome",
	}, []string{"upstream", "result"})

	UpstreamRequestTime = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "swapper_upstream_request_seconds",
		Help:    "Latency of upstream requests",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 8),
	}, []string{"upstream"})

	CircuitOpen = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "swapper_circuit_open",
		Help: "Set to 1 while the circuit breaker of an upstream is open",
	}, []string{"upstream"})
)

// SetPhase marks phase as the only active phase
func SetPhase(active string, all []string) {
	for _, p := range all {
		value := 0.0
		if p == active {
			value = 1
		}
		Phase.WithLabelValues(p).Set(value)
	}
}
