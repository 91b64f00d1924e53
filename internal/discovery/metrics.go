package discovery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	failureReasonResolve = "resolve"
	failureReasonDial    = "dial"
	failureReasonSend    = "send"

	inboundOutcomeAnswered = "answered"
	inboundOutcomeDeclined = "declined"
)

type metrics struct {
	rounds        prometheus.Counter
	responses     prometheus.Counter
	duplicates    prometheus.Counter
	probeFailures *prometheus.CounterVec
	connects      prometheus.Counter
	inbound       *prometheus.CounterVec
}

// newMetrics builds the engine's metrics against reg. A nil registerer
// still yields working metrics, just unregistered.
func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		rounds: f.NewCounter(prometheus.CounterOpts{
			Name: "larch_discovery_rounds_total",
			Help: "Number of discovery rounds started.",
		}),
		responses: f.NewCounter(prometheus.CounterOpts{
			Name: "larch_discovery_responses_total",
			Help: "Number of peer responses recorded across all rounds.",
		}),
		duplicates: f.NewCounter(prometheus.CounterOpts{
			Name: "larch_discovery_duplicate_responses_total",
			Help: "Number of responses dropped because the node already responded this round.",
		}),
		probeFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "larch_discovery_probe_failures_total",
			Help: "Number of per-target probe failures by reason.",
		}, []string{"reason"}),
		connects: f.NewCounter(prometheus.CounterOpts{
			Name: "larch_discovery_connections_established_total",
			Help: "Number of connections established to probe targets.",
		}),
		inbound: f.NewCounterVec(prometheus.CounterOpts{
			Name: "larch_discovery_inbound_probes_total",
			Help: "Number of inbound probes by outcome.",
		}, []string{"outcome"}),
	}
}
