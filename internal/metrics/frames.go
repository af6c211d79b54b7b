// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesDeliveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "camstream_frames_delivered_total",
		Help: "Frames handed to the delivery sink",
	})

	// FramesMissingTotal sums the sequence gaps observed by the frame pipeline.
	FramesMissingTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "camstream_frames_missing_total",
		Help: "Frames missing according to frame ID gaps",
	})

	// FrameLossEventsTotal counts gap occurrences, independent of their size.
	FrameLossEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "camstream_frame_loss_events_total",
		Help: "Number of frame ID gaps observed",
	})

	FrameRequeueFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camstream_frame_requeue_failures_total",
		Help: "Frame requeue calls that did not succeed, by device error code",
	}, []string{"code"})
)

// IncFrameDelivered records one frame handed to the sink.
func IncFrameDelivered() {
	FramesDeliveredTotal.Inc()
}

// AddFramesMissing records one gap of n missing frames.
func AddFramesMissing(n int64) {
	FrameLossEventsTotal.Inc()
	FramesMissingTotal.Add(float64(n))
}

// IncFrameRequeueFailure records a failed requeue by device error code.
func IncFrameRequeueFailure(code int32) {
	FrameRequeueFailuresTotal.WithLabelValues(codeLabel(code)).Inc()
}
