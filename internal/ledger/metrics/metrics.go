// Package metrics provides observability for the ledger module.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks movement counts, moved amounts and critical path durations.
type Metrics struct {
	IssuedTotal      prometheus.Counter
	TransfersTotal   prometheus.Counter
	RedemptionsTotal prometheus.Counter
	ControllerOps    prometheus.Counter
	LocksCreated     prometheus.Counter
	ActiveLocks      prometheus.Gauge
	TransferDuration prometheus.Histogram
}

// New creates a Metrics instance with all ledger metrics registered.
func New() *Metrics {
	return &Metrics{
		IssuedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_tokens_issued_total",
			Help: "Total number of issuance operations",
		}),
		TransfersTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_transfers_total",
			Help: "Total number of successful transfers",
		}),
		RedemptionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_redemptions_total",
			Help: "Total number of successful redemptions",
		}),
		ControllerOps: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_controller_operations_total",
			Help: "Total number of forced controller transfers and redemptions",
		}),
		LocksCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_locks_created_total",
			Help: "Total number of balance locks created",
		}),
		ActiveLocks: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "custodia_active_locks",
			Help: "Number of locks currently holding funds",
		}),
		TransferDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "custodia_transfer_duration_seconds",
			Help:    "Duration of transfer operations (settlement critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveTransfer records the duration of a transfer operation. Call with
// time.Now() at the start of the operation.
func (m *Metrics) ObserveTransfer(start time.Time) {
	m.TransferDuration.Observe(time.Since(start).Seconds())
}
