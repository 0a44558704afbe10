package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics — счётчики операций с корзиной и оформления заказов.
// Методы безопасно вызывать на nil.
type Metrics struct {
	reservations     *prometheus.CounterVec
	checkouts        *prometheus.CounterVec
	checkoutDuration prometheus.Histogram
}

// New регистрирует метрики в переданном реестре.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shop",
			Name:      "reservation_operations_total",
			Help:      "Cart stock reservation operations by operation and outcome.",
		}, []string{"op", "outcome"}),
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shop",
			Name:      "checkout_total",
			Help:      "Checkout attempts by outcome.",
		}, []string{"outcome"}),
		checkoutDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "shop",
			Name:      "checkout_duration_seconds",
			Help:      "Checkout transaction duration.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.reservations, m.checkouts, m.checkoutDuration)
	return m
}

func (m *Metrics) ObserveReservation(op, outcome string) {
	if m == nil {
		return
	}
	m.reservations.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) ObserveCheckout(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(outcome).Inc()
	m.checkoutDuration.Observe(took.Seconds())
}
