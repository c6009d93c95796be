package metrics

import "github.com/prometheus/client_golang/prometheus"

// DoorMetrics holds Prometheus metrics for the door event loop.
type DoorMetrics struct {
	Connections     prometheus.Gauge
	Holders         prometheus.Gauge
	Unlocked        prometheus.Gauge
	Edges           *prometheus.CounterVec
	Broadcasts      prometheus.Counter
	Removals        *prometheus.CounterVec
	SendFailures    prometheus.Counter
	ProtocolErrors  prometheus.Counter
	ActuatorErrors  prometheus.Counter
	Triggers        *prometheus.CounterVec
	CommandDuration prometheus.Histogram
}

// NewDoorMetrics creates and registers door metrics on the given registry.
func NewDoorMetrics(reg prometheus.Registerer) *DoorMetrics {
	m := &DoorMetrics{
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "door",
			Name:      "connections",
			Help:      "Number of connections in the registry, trigger holds included.",
		}),
		Holders: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "door",
			Name:      "holders",
			Help:      "Number of connections currently holding the button.",
		}),
		Unlocked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "door",
			Name:      "unlocked",
			Help:      "1 while the aggregate state is held, 0 otherwise.",
		}),
		Edges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "door",
			Name:      "edges_total",
			Help:      "Aggregate state transitions, by direction.",
		}, []string{"direction"}),
		Broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "door",
			Name:      "broadcasts_total",
			Help:      "Total number of state broadcasts fanned out.",
		}),
		Removals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "door",
			Name:      "removals_total",
			Help:      "Connections removed from the registry, by reason.",
		}, []string{"reason"}),
		SendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "door",
			Name:      "send_failures_total",
			Help:      "Failed deliveries to a single connection.",
		}),
		ProtocolErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "door",
			Name:      "protocol_errors_total",
			Help:      "Malformed press/release payloads.",
		}),
		ActuatorErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "door",
			Name:      "actuator_errors_total",
			Help:      "Failed pin writes.",
		}),
		Triggers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "door",
			Name:      "triggers_total",
			Help:      "HTTP triggers received, by mode.",
		}, []string{"mode"}),
		CommandDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "door",
			Name:      "command_duration_seconds",
			Help:      "Time the event loop spent on one command.",
			Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}),
	}

	reg.MustRegister(
		m.Connections, m.Holders, m.Unlocked, m.Edges, m.Broadcasts, m.Removals,
		m.SendFailures, m.ProtocolErrors, m.ActuatorErrors, m.Triggers, m.CommandDuration,
	)
	return m
}
