package ws

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Drop reasons for yaca_ws_events_dropped_total.
const (
	dropMalformed   = "malformed"
	dropUnknownType = "unknown_type"
	dropNotFound    = "not_found"
	dropStoreError  = "store_error"
	dropRateLimited = "rate_limited"
	dropPanic       = "panic"
)

// Metrics is safe to use through a nil pointer, which records nothing.
type Metrics struct {
	events     *prometheus.CounterVec
	dropped    *prometheus.CounterVec
	deliveries *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer, registry *Registry) *Metrics {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yaca_ws_events_total",
			Help: "Inbound WebSocket events by type.",
		}, []string{"type"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yaca_ws_events_dropped_total",
			Help: "Inbound WebSocket events dropped without effect, by reason.",
		}, []string{"reason"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yaca_ws_deliveries_total",
			Help: "Outbound deliveries by result (sent, offline, failed).",
		}, []string{"result"}),
	}
	connections := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "yaca_ws_connections",
		Help: "Users with a registered live connection.",
	}, func() float64 { return float64(registry.Len()) })

	reg.MustRegister(m.events, m.dropped, m.deliveries, connections)
	return m
}

// unknownEventLabel stands in for any type the protocol does not define, so
// client input cannot grow the label set.
const unknownEventLabel = "unknown"

func (m *Metrics) event(eventType string) {
	if m == nil {
		return
	}
	if !knownEvent(eventType) {
		eventType = unknownEventLabel
	}
	m.events.WithLabelValues(eventType).Inc()
}

func knownEvent(eventType string) bool {
	switch eventType {
	case EventSendMessage, EventEditMessage, EventReactMessage, EventDeleteMessage, EventTyping, EventRead:
		return true
	}
	return false
}

func (m *Metrics) drop(reason string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) delivery(result string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(result).Inc()
}
