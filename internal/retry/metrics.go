package retry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/taekwondodev/go-BaaS-Client/internal/customerrors"
)

// Metrics counts attempts, retries and final failures per operation.
// A nil *Metrics records nothing.
type Metrics struct {
	Attempts *prometheus.CounterVec
	Retries  *prometheus.CounterVec
	Failures *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "baas",
			Subsystem: "client",
			Name:      "attempts_total",
			Help:      "Remote call attempts, including retries.",
		}, []string{"op"}),
		Retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "baas",
			Subsystem: "client",
			Name:      "retries_total",
			Help:      "Retries scheduled after a transient failure.",
		}, []string{"op"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "baas",
			Subsystem: "client",
			Name:      "failures_total",
			Help:      "Remote calls that failed after the last attempt.",
		}, []string{"op", "kind"}),
	}

	if reg != nil {
		reg.MustRegister(m.Attempts, m.Retries, m.Failures)
	}

	return m
}

func (m *Metrics) attempt(op string) {
	if m == nil {
		return
	}
	m.Attempts.WithLabelValues(op).Inc()
}

func (m *Metrics) retry(op string) {
	if m == nil {
		return
	}
	m.Retries.WithLabelValues(op).Inc()
}

func (m *Metrics) failure(op string, err error) {
	if m == nil {
		return
	}
	kind := customerrors.KindOf(err)
	if kind == customerrors.KindUnknown && IsTransient(err) {
		kind = customerrors.KindNetwork
	}
	m.Failures.WithLabelValues(op, string(kind)).Inc()
}
