package metrics

import "github.com/prometheus/client_golang/prometheus"

// CalculatorMetrics counts events applied through the calculator endpoints.
type CalculatorMetrics struct {
	events *prometheus.CounterVec
}

func NewCalculatorMetrics(reg prometheus.Registerer) *CalculatorMetrics {
	if reg == nil {
		return &CalculatorMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "calculator_events_total",
		Help:      "Calculator events applied, by event type and field.",
	}, []string{"event", "field"})
	reg.MustRegister(events)
	return &CalculatorMetrics{events: events}
}

// Observe counts one applied event. field is empty for non-edit events.
func (m *CalculatorMetrics) Observe(event, field string) {
	if m == nil || m.events == nil {
		return
	}
	if field == "" {
		field = "none"
	}
	m.events.WithLabelValues(normalizeLabel(event), field).Inc()
}
