package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	CommandsEnqueued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_commands_enqueued_total",
			Help: "Commands handed to the command queue",
		},
		[]string{"type"},
	)

	RetriesScheduled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_retries_scheduled_total",
			Help: "Delayed retry commands scheduled after a failure",
		},
	)

	DeadLettered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_dead_lettered_total",
			Help: "Commands that exhausted their retry budget",
		},
	)

	DeliveryAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_delivery_attempts_total",
			Help: "Sender invocations by channel and outcome",
		},
		[]string{"channel", "status"},
	)

	DeliveryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatch_delivery_duration_seconds",
			Help:    "Duration of sender invocations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"channel"},
	)

	CASConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_cas_conflicts_total",
			Help: "Optimistic lock conflicts observed by the command handler",
		},
	)

	SweepNotifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_sweep_notifications_total",
			Help: "Notifications re-enqueued by scheduler sweeps",
		},
		[]string{"sweep"},
	)
)

func Init() {
	prometheus.MustRegister(
		CommandsEnqueued,
		RetriesScheduled,
		DeadLettered,
		DeliveryAttempts,
		DeliveryDuration,
		CASConflicts,
		SweepNotifications,
	)
}
