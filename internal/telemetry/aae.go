package telemetry

import "github.com/prometheus/client_golang/prometheus"

// AAE-specific counters, registered against the same Registry the HTTP
// middleware uses so /metrics exposes both surfaces together.
var (
	AAEExchangesStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zephyrcache",
			Subsystem: "aae",
			Name:      "exchanges_started_total",
			Help:      "Total number of anti-entropy exchanges started, by work item kind.",
		},
		[]string{"kind"},
	)

	AAESlicesDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zephyrcache",
			Subsystem: "aae",
			Name:      "slices_dispatched_total",
			Help:      "Total number of schedule slices the coordinator has fired, including no_sync slices.",
		},
		[]string{"kind"},
	)

	AAESchedulesRegenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "zephyrcache",
			Subsystem: "aae",
			Name:      "schedules_regenerated_total",
			Help:      "Total number of times the daily slice plan was regenerated after the pending list drained.",
		},
	)

	AAERepairsQueued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "zephyrcache",
			Subsystem: "aae",
			Name:      "repairs_queued_total",
			Help:      "Total number of divergent keys enqueued for read-repair.",
		},
	)

	AAESinkAheadTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "zephyrcache",
			Subsystem: "aae",
			Name:      "sink_ahead_total",
			Help:      "Total number of divergent keys where the sink's clock already dominated the source and no repair was needed.",
		},
	)

	AAEExchangeDivergences = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "zephyrcache",
			Subsystem: "aae",
			Name:      "exchange_divergences",
			Help:      "Number of divergent keys found per completed exchange.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	AAERemoteUnreachable = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "zephyrcache",
			Subsystem: "aae",
			Name:      "remote_unreachable_total",
			Help:      "Total number of work items skipped because the remote or local endpoint failed to respond to a liveness ping.",
		},
	)
)

func init() {
	Registry.MustRegister(
		AAEExchangesStarted,
		AAESlicesDispatched,
		AAESchedulesRegenerated,
		AAERepairsQueued,
		AAESinkAheadTotal,
		AAEExchangeDivergences,
		AAERemoteUnreachable,
	)
}
