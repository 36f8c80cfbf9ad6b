package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// BusinessMetrics counts documents written through the API.
type BusinessMetrics struct {
	documents *prometheus.CounterVec
	amount    *prometheus.CounterVec
}

// NewBusinessMetrics registers the document collectors.
func NewBusinessMetrics(reg prometheus.Registerer) *BusinessMetrics {
	if reg == nil {
		return &BusinessMetrics{}
	}
	documents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "documents_created_total",
		Help:      "Sales, purchases and returns recorded.",
	}, []string{"kind"})
	amount := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "documents_amount_total",
		Help:      "Summed net amount of recorded documents.",
	}, []string{"kind"})
	reg.MustRegister(documents, amount)
	return &BusinessMetrics{documents: documents, amount: amount}
}

// Record counts one document of the given kind and adds its amount.
func (m *BusinessMetrics) Record(kind string, amount decimal.Decimal) {
	if m == nil || m.documents == nil {
		return
	}
	kind = normalizeLabel(kind)
	m.documents.WithLabelValues(kind).Inc()
	if amount.IsPositive() {
		m.amount.WithLabelValues(kind).Add(amount.InexactFloat64())
	}
}
