// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package stream implements the streaming lifecycle of a camera.
//
// The Controller owns the streaming session of one device handle. It starts
// and stops acquisition on command or on consumer demand, runs every frame
// through a loss-detecting pipeline and refuses buffer count changes while a
// session exists. All lifecycle changes run in the exclusive stream domain
// of the dispatch partition.
package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/camstream/internal/device"
	"github.com/ManuGH/camstream/internal/dispatch"
	xglog "github.com/ManuGH/camstream/internal/log"
	"github.com/ManuGH/camstream/internal/metrics"
	"github.com/ManuGH/camstream/internal/stream/fsm"
	"github.com/ManuGH/camstream/internal/telemetry"
)

const (
	MinBufferCount     = 3
	MaxBufferCount     = 1000
	DefaultBufferCount = 7

	DefaultTopic          = "image_raw"
	DefaultPollInterval   = 50 * time.Millisecond
	DefaultResyncInterval = time.Second
	defaultStopTimeout    = 5 * time.Second
	journalTimeout        = 2 * time.Second
)

var (
	ErrInvalidBufferCount        = fmt.Errorf("buffer count must be within [%d,%d]", MinBufferCount, MaxBufferCount)
	ErrReconfigureWhileStreaming = errors.New("buffer count change not supported while streaming")
	ErrNotIdle                   = errors.New("stream is not idle")
	ErrClosed                    = errors.New("stream controller closed")
	ErrAlreadyStarted            = errors.New("demand monitor already started")
)

// Topology is the consumer side of the delivery transport.
type Topology interface {
	Subscribers(topic string) int
	// WaitForChange blocks up to timeout and reports whether the consumer
	// topology changed. A true result consumes the notification.
	WaitForChange(ctx context.Context, timeout time.Duration) bool
}

// Sink receives every frame before it is requeued. Deliver must not retain
// the frame or its payload after returning.
type Sink interface {
	Deliver(f device.Frame)
}

// Journal persists finished sessions.
type Journal interface {
	Record(ctx context.Context, s SessionStats) error
}

// Options configures a Controller.
type Options struct {
	Device    device.Handle
	Topology  Topology
	Sink      Sink
	Journal   Journal
	Partition *dispatch.Partition

	Topic          string
	BufferCount    int
	PollInterval   time.Duration
	ResyncInterval time.Duration
	StopTimeout    time.Duration
	Logger         *zerolog.Logger
}

// Controller drives the streaming lifecycle of one device.
type Controller struct {
	dev         device.Handle
	topology    Topology
	sink        Sink
	journal     Journal
	partition   *dispatch.Partition
	topic       string
	poll        time.Duration
	resync      time.Duration
	stopTimeout time.Duration
	logger      zerolog.Logger

	lifecycle   *fsm.Machine[State, event]
	bufferCount atomic.Int64

	sessMu  sync.RWMutex
	session *Session

	mu      sync.Mutex // guards cancel, started, closed
	cancel  context.CancelFunc
	started bool
	closed  bool
	wg      sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

// ValidBufferCount reports whether n is an acceptable buffer pool size.
func ValidBufferCount(n int) bool {
	return n >= MinBufferCount && n <= MaxBufferCount
}

// New creates a controller in the Idle state. The demand monitor is not
// running until Start is called.
func New(opts Options) (*Controller, error) {
	if opts.Device == nil {
		return nil, errors.New("stream: device handle is required")
	}
	if opts.Topology == nil {
		return nil, errors.New("stream: topology is required")
	}
	if opts.BufferCount == 0 {
		opts.BufferCount = DefaultBufferCount
	}
	if !ValidBufferCount(opts.BufferCount) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBufferCount, opts.BufferCount)
	}
	if opts.Partition == nil {
		opts.Partition = dispatch.Standard()
	}
	if opts.Topic == "" {
		opts.Topic = DefaultTopic
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.ResyncInterval <= 0 {
		opts.ResyncInterval = DefaultResyncInterval
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = defaultStopTimeout
	}
	logger := xglog.WithComponent("stream")
	if opts.Logger != nil {
		logger = opts.Logger.With().Str(xglog.FieldComponent, "stream").Logger()
	}

	c := &Controller{
		dev:         opts.Device,
		topology:    opts.Topology,
		sink:        opts.Sink,
		journal:     opts.Journal,
		partition:   opts.Partition,
		topic:       opts.Topic,
		poll:        opts.PollInterval,
		resync:      opts.ResyncInterval,
		stopTimeout: opts.StopTimeout,
		logger:      logger,
		lifecycle:   newLifecycle(),
	}
	c.bufferCount.Store(int64(opts.BufferCount))
	metrics.SetBufferCount(opts.BufferCount)
	metrics.SetStreamActive(false)

	c.lifecycle.OnEnter(func(from, to State, ev event) {
		c.logger.Debug().
			Str(xglog.FieldEvent, "stream.transition").
			Str(xglog.FieldOldState, string(from)).
			Str(xglog.FieldNewState, string(to)).
			Str("trigger_event", string(ev)).
			Msg("stream state changed")
	})
	return c, nil
}

// Start launches the consumer-demand monitor. The monitor runs until ctx is
// done or the controller is closed.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.started {
		return ErrAlreadyStarted
	}
	c.started = true

	monitorCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	go c.monitor(monitorCtx)
	return nil
}

// State returns the lifecycle state.
func (c *Controller) State() State { return c.lifecycle.State() }

// BufferCount returns the configured buffer count.
func (c *Controller) BufferCount() int { return int(c.bufferCount.Load()) }

// Topic returns the delivery topic whose consumers drive demand.
func (c *Controller) Topic() string { return c.topic }

// Session returns a snapshot of the active session, if any.
func (c *Controller) Session() (SessionStats, bool) {
	c.sessMu.RLock()
	defer c.sessMu.RUnlock()
	if c.session == nil {
		return SessionStats{}, false
	}
	return c.session.Stats(), true
}

// StartStreaming starts acquisition with the configured buffer count. A
// device failure is returned unchanged and leaves the controller Idle.
func (c *Controller) StartStreaming(ctx context.Context) error {
	return c.startStreaming(ctx, TriggerCommand)
}

// StopStreaming ends the active session. It is a no-op when Idle and never
// fails from the caller's point of view.
func (c *Controller) StopStreaming(ctx context.Context) {
	c.stopStreaming(ctx, TriggerCommand)
}

// SetBufferCount changes the buffer count used by the next session. The
// change is refused while streaming, never queued.
func (c *Controller) SetBufferCount(ctx context.Context, n int) error {
	return c.partition.Run(ctx, dispatch.OpParamBufferCount, func(ctx context.Context) error {
		if c.dev.IsStreaming() || c.lifecycle.State() != StateIdle {
			metrics.IncReconfigureRejected("streaming")
			c.logger.Warn().
				Str(xglog.FieldEvent, "stream.reconfigure_rejected").
				Int(xglog.FieldBufferCount, n).
				Msg(ErrReconfigureWhileStreaming.Error())
			return ErrReconfigureWhileStreaming
		}
		if !ValidBufferCount(n) {
			metrics.IncReconfigureRejected("out_of_range")
			return fmt.Errorf("%w: %d", ErrInvalidBufferCount, n)
		}

		old := c.bufferCount.Swap(int64(n))
		metrics.SetBufferCount(n)
		c.logger.Info().
			Str(xglog.FieldEvent, "stream.reconfigured").
			Int64("old_buffer_count", old).
			Int(xglog.FieldBufferCount, n).
			Msg("buffer count changed")
		return nil
	})
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Controller) fire(ctx context.Context, ev event) error {
	if _, err := c.lifecycle.Fire(ctx, ev); err != nil {
		return fmt.Errorf("stream lifecycle: %w", err)
	}
	return nil
}

func (c *Controller) logTransitionError(err error, trigger Trigger) {
	c.logger.Error().
		Err(err).
		Str(xglog.FieldEvent, "stream.transition_failed").
		Str("trigger", string(trigger)).
		Str(xglog.FieldState, string(c.lifecycle.State())).
		Msg("stream lifecycle transition failed")
}

func (c *Controller) startStreaming(ctx context.Context, trigger Trigger) error {
	return c.partition.Run(ctx, dispatch.OpStreamStart, func(ctx context.Context) error {
		if c.isClosed() {
			return ErrClosed
		}
		if !c.lifecycle.Can(evStart) {
			return fmt.Errorf("%w: state=%s", ErrNotIdle, c.lifecycle.State())
		}
		if err := c.fire(ctx, evStart); err != nil {
			c.logTransitionError(err, trigger)
			return err
		}

		n := c.BufferCount()
		session := newSession(n, trigger)
		ctx = xglog.ContextWithSessionID(ctx, session.ID)
		p := newPipeline(session, c.sink, xglog.WithContext(ctx, c.logger))
		span := trace.SpanFromContext(ctx)
		span.SetAttributes(telemetry.StreamAttributes(session.ID, n, string(trigger))...)

		begin := time.Now()
		err := c.dev.StartStreaming(ctx, n, p.handle)
		metrics.ObserveStreamStartLatency(time.Since(begin))
		if err != nil {
			if ferr := c.fire(ctx, evStartFailed); ferr != nil {
				c.logTransitionError(ferr, trigger)
			}
			code := device.CodeOf(err)
			metrics.IncStreamStart(false, string(trigger))
			span.SetAttributes(telemetry.ErrorAttributes("device", int32(code))...)
			c.logger.Warn().
				Err(err).
				Str(xglog.FieldEvent, "stream.start_failed").
				Str("trigger", string(trigger)).
				Int(xglog.FieldBufferCount, n).
				Int32(xglog.FieldErrorCode, int32(code)).
				Msg("stream start failed")
			return err
		}

		c.sessMu.Lock()
		c.session = session
		c.sessMu.Unlock()
		if err := c.fire(ctx, evStarted); err != nil {
			c.logTransitionError(err, trigger)
			c.sessMu.Lock()
			c.session = nil
			c.sessMu.Unlock()
			devCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.stopTimeout)
			_ = c.dev.StopStreaming(devCtx)
			cancel()
			return err
		}

		metrics.IncStreamStart(true, string(trigger))
		metrics.SetStreamActive(true)
		c.logger.Info().
			Str(xglog.FieldEvent, "stream.started").
			Str(xglog.FieldSessionID, session.ID).
			Str("trigger", string(trigger)).
			Int(xglog.FieldBufferCount, n).
			Msg("stream started")
		return nil
	})
}

func (c *Controller) stopStreaming(ctx context.Context, trigger Trigger) {
	err := c.partition.Run(ctx, dispatch.OpStreamStop, func(ctx context.Context) error {
		if c.lifecycle.State() != StateStreaming {
			return nil
		}
		if err := c.fire(ctx, evStop); err != nil {
			c.logTransitionError(err, trigger)
			return err
		}

		// A stop that has begun is finished even if the caller goes away.
		devCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.stopTimeout)
		stopErr := c.dev.StopStreaming(devCtx)
		cancel()

		c.sessMu.Lock()
		session := c.session
		c.session = nil
		c.sessMu.Unlock()
		if err := c.fire(ctx, evStopped); err != nil {
			c.logTransitionError(err, trigger)
		}

		metrics.IncStreamStop(stopErr == nil, string(trigger))
		metrics.SetStreamActive(false)

		stats := session.Stats()
		stats.StoppedAt = time.Now().UTC()
		stats.StopTrigger = trigger
		if stopErr != nil {
			stats.StopError = stopErr.Error()
			c.logger.Warn().
				Err(stopErr).
				Str(xglog.FieldEvent, "stream.stop_failed").
				Str(xglog.FieldSessionID, stats.ID).
				Int32(xglog.FieldErrorCode, int32(device.CodeOf(stopErr))).
				Msg("device did not confirm stream stop")
		}
		c.logger.Info().
			Str(xglog.FieldEvent, "stream.stopped").
			Str(xglog.FieldSessionID, stats.ID).
			Str("trigger", string(trigger)).
			Int64("frames_delivered", stats.Delivered).
			Int64("frames_missing", stats.Missing).
			Int64("requeue_failures", stats.RequeueFailures).
			Msg("stream stopped")

		c.record(ctx, stats)
		return nil
	})
	if err != nil {
		c.logger.Debug().
			Err(err).
			Str(xglog.FieldEvent, "stream.stop_skipped").
			Str("trigger", string(trigger)).
			Msg("stream stop not dispatched")
	}
}

func (c *Controller) record(ctx context.Context, stats SessionStats) {
	if c.journal == nil {
		return
	}
	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
	defer cancel()
	if err := c.journal.Record(jctx, stats); err != nil {
		c.logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "stream.journal_failed").
			Str(xglog.FieldSessionID, stats.ID).
			Msg("failed to journal stream session")
	}
}

// Close stops the monitor, forces a stop if still streaming and releases
// the device handle, in that order. It is safe to call more than once.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		cancel := c.cancel
		c.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		c.wg.Wait()

		ctx, cancelStop := context.WithTimeout(context.Background(), c.stopTimeout)
		c.stopStreaming(ctx, TriggerShutdown)
		cancelStop()

		if err := c.dev.Close(); err != nil {
			c.closeErr = fmt.Errorf("release device: %w", err)
		}
		c.logger.Info().
			Str(xglog.FieldEvent, "stream.closed").
			Msg("stream controller closed")
	})
	return c.closeErr
}
