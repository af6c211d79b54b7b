// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DispatchInflight is the number of operations currently executing per domain.
	DispatchInflight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "camstream_dispatch_inflight",
		Help: "Operations executing inside a concurrency domain",
	}, []string{"domain"})

	// DispatchWaitSeconds is the time spent waiting for admission into a domain.
	DispatchWaitSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "camstream_dispatch_wait_seconds",
		Help:    "Time spent waiting to enter a concurrency domain",
		Buckets: []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"domain"})

	DispatchOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camstream_dispatch_ops_total",
		Help: "Operations dispatched by op, domain and result",
	}, []string{"op", "domain", "result"})
)

// ObserveDispatchWait records admission latency for domain.
func ObserveDispatchWait(domain string, d time.Duration) {
	DispatchWaitSeconds.WithLabelValues(domain).Observe(d.Seconds())
}

// IncDispatchOp records one dispatched operation.
func IncDispatchOp(op, domain string, success bool) {
	DispatchOpsTotal.WithLabelValues(op, domain, result(success)).Inc()
}
