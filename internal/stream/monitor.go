// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stream

import (
	"context"
	"errors"
	"time"

	xglog "github.com/ManuGH/camstream/internal/log"
)

// monitor converts consumer topology changes into start and stop decisions.
// It only acts on a confirmed change. The resync interval paces retries of
// a demand start that failed while consumers were still present; a timeout
// alone never stops a session.
func (c *Controller) monitor(ctx context.Context) {
	defer c.wg.Done()

	c.logger.Debug().
		Str(xglog.FieldEvent, "stream.monitor_started").
		Str(xglog.FieldTopic, c.topic).
		Dur("poll_interval", c.poll).
		Msg("consumer demand monitor started")

	var (
		last    time.Time
		pending bool // a demand start failed and awaits a retry
	)
	for {
		if ctx.Err() != nil {
			c.logger.Debug().
				Str(xglog.FieldEvent, "stream.monitor_stopped").
				Msg("consumer demand monitor stopped")
			return
		}

		changed := c.topology.WaitForChange(ctx, c.poll)
		if ctx.Err() != nil {
			continue
		}
		switch {
		case changed:
			pending = c.reconcile(ctx)
		case pending && time.Since(last) >= c.resync:
			pending = c.retryStart(ctx)
		default:
			continue
		}
		last = time.Now()
	}
}

// reconcile applies the current consumer count after a confirmed change.
// It reports whether a demand start failed and should be retried.
func (c *Controller) reconcile(ctx context.Context) bool {
	consumers := c.topology.Subscribers(c.topic)
	streaming := c.State() == StateStreaming

	switch {
	case consumers > 0 && !streaming:
		c.logger.Debug().
			Str(xglog.FieldEvent, "stream.demand_up").
			Int(xglog.FieldConsumers, consumers).
			Msg("consumers present, starting stream")
		return c.demandStart(ctx, consumers)
	case consumers == 0 && streaming:
		c.logger.Debug().
			Str(xglog.FieldEvent, "stream.demand_down").
			Msg("no consumers left, stopping stream")
		c.stopStreaming(ctx, TriggerDemand)
	}
	return false
}

// retryStart repeats a failed demand start while consumers remain. It never
// stops a session.
func (c *Controller) retryStart(ctx context.Context) bool {
	consumers := c.topology.Subscribers(c.topic)
	if consumers == 0 || c.State() != StateIdle {
		return false
	}
	c.logger.Debug().
		Str(xglog.FieldEvent, "stream.demand_retry").
		Int(xglog.FieldConsumers, consumers).
		Msg("retrying stream start for waiting consumers")
	return c.demandStart(ctx, consumers)
}

func (c *Controller) demandStart(ctx context.Context, consumers int) bool {
	err := c.startStreaming(ctx, TriggerDemand)
	if err == nil || errors.Is(err, ErrNotIdle) || ctx.Err() != nil {
		return false
	}
	c.logger.Error().
		Err(err).
		Str(xglog.FieldEvent, "stream.demand_start_failed").
		Int(xglog.FieldConsumers, consumers).
		Msg("failed to start stream for consumers")
	return true
}
