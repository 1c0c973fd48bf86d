package ninefs

import "github.com/prometheus/client_golang/prometheus"

// serverMetrics holds the Prometheus collectors exported by a Server. This
// is a purely operational side channel; it never
// influences protocol behavior.
type serverMetrics struct {
	requests    *prometheus.CounterVec
	connections prometheus.Gauge
	fids        prometheus.Gauge
	mutations   *prometheus.CounterVec
}

func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	m := &serverMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ninefs",
			Name:      "requests_total",
			Help:      "9P requests received, by message type.",
		}, []string{"type"}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ninefs",
			Name:      "connections",
			Help:      "Currently open 9P connections.",
		}),
		fids: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ninefs",
			Name:      "fids",
			Help:      "Allocated fids across all connections; not updated by the server, so it stays at 0.",
		}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ninefs",
			Name:      "tree_mutations_total",
			Help:      "Tree-mutating operations, by kind (write, create, remove, wstat).",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.connections, m.fids, m.mutations)
	}
	return m
}

func (m *serverMetrics) observeRequest(typ uint8) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(MessageName(typ)).Inc()
}

func (m *serverMetrics) observeMutation(kind string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(kind).Inc()
}
