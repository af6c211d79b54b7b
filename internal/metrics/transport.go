// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Consumers is the number of active subscribers per topic.
	Consumers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "camstream_consumers",
		Help: "Active frame consumers per topic",
	}, []string{"topic"})

	// BusDroppedTotal counts messages not enqueued to a subscriber, by reason.
	BusDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camstream_bus_dropped_total",
		Help: "Messages dropped by the delivery bus",
	}, []string{"topic", "reason"})

	BusPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camstream_bus_published_total",
		Help: "Messages published to the delivery bus",
	}, []string{"topic"})

	// TopologyChangesTotal counts subscribe/unsubscribe notifications.
	TopologyChangesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "camstream_topology_changes_total",
		Help: "Consumer topology changes signalled by the delivery bus",
	})
)

// SetConsumers records the subscriber count for topic.
func SetConsumers(topic string, n int) {
	Consumers.WithLabelValues(topic).Set(float64(n))
}

// IncBusDropReason records a dropped message.
func IncBusDropReason(topic, reason string) {
	if topic == "" {
		topic = "unknown"
	}
	if reason == "" {
		reason = "unknown"
	}
	BusDroppedTotal.WithLabelValues(topic, reason).Inc()
}

// IncBusPublished records a published message.
func IncBusPublished(topic string) {
	BusPublishedTotal.WithLabelValues(topic).Inc()
}

// IncTopologyChange records a consumer topology change.
func IncTopologyChange() {
	TopologyChangesTotal.Inc()
}
