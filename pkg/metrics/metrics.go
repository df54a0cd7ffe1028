package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "yardtrack"

// Metrics records business outcomes for the order, stock, webhook and ticket
// paths. A nil *Metrics is a valid no-op recorder.
type Metrics struct {
	orderDuration    *prometheus.HistogramVec
	orders           *prometheus.CounterVec
	stockAdjustments *prometheus.CounterVec
	webhookEvents    *prometheus.CounterVec
	extractions      *prometheus.CounterVec
	alerts           *prometheus.CounterVec
}

// New registers the collectors on the provided registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	m := &Metrics{
		orderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_duration_seconds",
			Help:      "Time spent processing order submissions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Order submissions by outcome.",
		}, []string{"outcome"}),
		stockAdjustments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_adjustments_total",
			Help:      "Stock ledger adjustments by action and outcome.",
		}, []string{"action", "outcome"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Square webhook events by type and outcome.",
		}, []string{"type", "outcome"}),
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticket_extractions_total",
			Help:      "Scale ticket extractions by outcome.",
		}, []string{"outcome"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliation_alerts_total",
			Help:      "Out-of-band reconciliation alerts raised.",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.orderDuration, m.orders, m.stockAdjustments, m.webhookEvents, m.extractions, m.alerts)
	return m
}

// ObserveOrder counts one order submission and records its duration.
func (m *Metrics) ObserveOrder(outcome string, duration time.Duration) {
	if m == nil || m.orders == nil {
		return
	}
	outcome = normalizeLabel(outcome)
	m.orders.WithLabelValues(outcome).Inc()
	m.orderDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (m *Metrics) IncStockAdjustment(action, outcome string) {
	if m == nil || m.stockAdjustments == nil {
		return
	}
	m.stockAdjustments.WithLabelValues(normalizeLabel(action), normalizeLabel(outcome)).Inc()
}

func (m *Metrics) IncWebhookEvent(eventType, outcome string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

func (m *Metrics) IncExtraction(outcome string) {
	if m == nil || m.extractions == nil {
		return
	}
	m.extractions.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *Metrics) IncAlert(kind string) {
	if m == nil || m.alerts == nil {
		return
	}
	m.alerts.WithLabelValues(normalizeLabel(kind)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
