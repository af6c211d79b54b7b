// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stream

import (
	"github.com/rs/zerolog"

	"github.com/ManuGH/camstream/internal/device"
	xglog "github.com/ManuGH/camstream/internal/log"
	"github.com/ManuGH/camstream/internal/metrics"
)

// pipeline is the per-frame handler of one session. The device calls it
// from a single acquisition goroutine, one frame at a time.
type pipeline struct {
	session *Session
	sink    Sink
	logger  zerolog.Logger
}

// newPipeline binds a handler to s. logger is expected to carry the
// session ID already.
func newPipeline(s *Session, sink Sink, logger zerolog.Logger) *pipeline {
	return &pipeline{
		session: s,
		sink:    sink,
		logger:  logger,
	}
}

func (p *pipeline) handle(f device.Frame) {
	id := f.ID()
	last := p.session.lastFrameID.Swap(id)
	if last != noFrame {
		if gap := id - last; gap > 1 {
			p.recordLoss(id, gap-1)
		}
	}

	// The sink must be done with the buffer before it goes back to the device.
	if p.sink != nil {
		p.sink.Deliver(f)
	}
	p.session.delivered.Add(1)
	metrics.IncFrameDelivered()

	if err := f.Requeue(); err != nil {
		code := device.CodeOf(err)
		p.session.requeueFailures.Add(1)
		metrics.IncFrameRequeueFailure(int32(code))
		p.logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "frame.requeue_failed").
			Int64(xglog.FieldFrameID, id).
			Int32(xglog.FieldErrorCode, int32(code)).
			Msg("frame requeue failed")
	}
}

func (p *pipeline) recordLoss(id, missing int64) {
	events := p.session.lossEvents.Add(1)
	total := p.session.missing.Add(missing)
	metrics.AddFramesMissing(missing)
	p.logger.Warn().
		Str(xglog.FieldEvent, "frame.loss").
		Int64(xglog.FieldFrameID, id).
		Int64(xglog.FieldMissing, missing).
		Int64("missing_total", total).
		Int64("loss_events", events).
		Msgf("%d frames missing", missing)
}
