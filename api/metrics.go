/*
metrics.go - Prometheus instrumentation for ledger operations

PURPOSE:
  Counts every ledger mutation by operation and outcome so overdraw
  rejections and persistence failures show up on a dashboard instead of
  only in logs.
*/
package api

import (
	"errors"

	"github.com/bankids/ledger-engine/ledger"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the API's Prometheus collectors.
type Metrics struct {
	operations *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "operations_total",
			Help:      "Ledger operations by operation and outcome.",
		}, []string{"op", "status"}),
	}
	reg.MustRegister(m.operations)
	return m
}

// Observe records one operation outcome. Nil metrics are allowed so tests
// can skip instrumentation.
func (m *Metrics) Observe(op string, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, statusLabel(err)).Inc()
}

func statusLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return "insufficient_funds"
	case ledger.IsClientError(err) || ledger.IsNotFound(err):
		return "rejected"
	default:
		return "error"
	}
}
