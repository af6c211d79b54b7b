// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics holds the Prometheus collectors of the camera daemon.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StreamStartTotal tracks the outcome of stream start attempts.
	StreamStartTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camstream_stream_start_total",
		Help: "Total number of stream start attempts by result and trigger",
	}, []string{"result", "trigger"})

	// StreamStopTotal tracks stream stops. A failed device stop still ends the session.
	StreamStopTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camstream_stream_stop_total",
		Help: "Total number of stream stops by device outcome and trigger",
	}, []string{"result", "trigger"})

	// StreamActive is 1 while a streaming session exists.
	StreamActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "camstream_stream_active",
		Help: "Whether a streaming session is active (0/1)",
	})

	// StreamStartLatency tracks how long the device takes to begin acquisition.
	StreamStartLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "camstream_stream_start_latency_seconds",
		Help:    "Time spent in the device start call",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})

	// BufferCount mirrors the configured streaming buffer count.
	BufferCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "camstream_buffer_count",
		Help: "Configured number of streaming buffers",
	})

	// ReconfigureRejectedTotal counts refused buffer count changes by reason.
	ReconfigureRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camstream_reconfigure_rejected_total",
		Help: "Buffer count changes refused by reason",
	}, []string{"reason"})
)

// IncStreamStart records a stream start attempt outcome.
func IncStreamStart(success bool, trigger string) {
	StreamStartTotal.WithLabelValues(result(success), trigger).Inc()
}

// IncStreamStop records a stream stop and whether the device confirmed it.
func IncStreamStop(success bool, trigger string) {
	StreamStopTotal.WithLabelValues(result(success), trigger).Inc()
}

// SetStreamActive flips the active gauge.
func SetStreamActive(active bool) {
	if active {
		StreamActive.Set(1)
		return
	}
	StreamActive.Set(0)
}

// ObserveStreamStartLatency records the device start latency.
func ObserveStreamStartLatency(d time.Duration) {
	StreamStartLatency.Observe(d.Seconds())
}

// SetBufferCount records the configured buffer count.
func SetBufferCount(n int) {
	BufferCount.Set(float64(n))
}

// IncReconfigureRejected records a refused buffer count change.
func IncReconfigureRejected(reason string) {
	ReconfigureRejectedTotal.WithLabelValues(reason).Inc()
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

func codeLabel(code int32) string {
	return strconv.FormatInt(int64(code), 10)
}
