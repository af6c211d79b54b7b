// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sim

import (
	"context"
	"encoding/binary"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/ManuGH/camstream/internal/device"
	xglog "github.com/ManuGH/camstream/internal/log"
)

// frameHeader is the number of payload bytes stamped with the frame ID.
const frameHeader = 8

type frame struct {
	pool   chan *frame
	buf    []byte
	id     int64
	ts     time.Time
	queued atomic.Bool
}

func (f *frame) ID() int64            { return f.id }
func (f *frame) Timestamp() time.Time { return f.ts }
func (f *frame) Payload() []byte      { return f.buf }

// Requeue hands the buffer back to the acquisition engine. Requeueing a
// buffer twice is an invalid call.
func (f *frame) Requeue() error {
	if !f.queued.CompareAndSwap(false, true) {
		return device.ErrInvalidCall
	}
	// The pool has room for every buffer of the acquisition, so this never blocks.
	f.pool <- f
	return nil
}

type acquisition struct {
	cancel  context.CancelFunc
	done    chan struct{}
	pool    chan *frame
	limiter *rate.Limiter
	trigger chan struct{}
	// triggered is true while TriggerMode is On.
	triggered bool
	skipped   atomic.Int64
}

func (a *acquisition) stop() {
	a.cancel()
	<-a.done
}

func (a *acquisition) wait(ctx context.Context) error {
	if !a.triggered {
		return a.limiter.Wait(ctx)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-a.trigger:
		return nil
	}
}

// StartStreaming announces bufferCount buffers and starts delivering frames
// to onFrame on a dedicated goroutine.
func (c *Camera) StartStreaming(ctx context.Context, bufferCount int, onFrame device.FrameHandler) error {
	if err := ctx.Err(); err != nil {
		return device.ErrTimeout
	}
	if onFrame == nil || bufferCount < 1 {
		return device.ErrBadParameter
	}
	if bufferCount > c.maxBuffers {
		return device.ErrInsufficientBuf
	}

	bg := context.Background()
	width, _ := c.IntGet(bg, featWidth)
	height, _ := c.IntGet(bg, featHeight)
	pixfmt, _ := c.EnumGet(bg, featPixelFormat)
	fps, _ := c.FloatGet(bg, featFrameRate)
	trigMode, _ := c.EnumGet(bg, featTriggerMode)
	size := width * height * bytesPerPixel(pixfmt)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return device.ErrDeviceNotOpen
	}
	if c.acq != nil {
		return device.ErrInvalidCall
	}

	acqCtx, cancel := context.WithCancel(context.Background())
	acq := &acquisition{
		cancel:    cancel,
		done:      make(chan struct{}),
		pool:      make(chan *frame, bufferCount),
		limiter:   rate.NewLimiter(rate.Limit(fps), 1),
		trigger:   make(chan struct{}, 1),
		triggered: trigMode == "On",
	}
	for i := 0; i < bufferCount; i++ {
		f := &frame{pool: acq.pool, buf: make([]byte, size)}
		fillPattern(f.buf)
		f.queued.Store(true)
		acq.pool <- f
	}

	c.acq = acq
	c.streaming.Store(true)
	go c.acquire(acqCtx, acq, onFrame)

	logger := xglog.WithContext(ctx, c.logger)
	logger.Debug().
		Str(xglog.FieldEvent, "device.acquisition_started").
		Int(xglog.FieldBufferCount, bufferCount).
		Int64("payload_size", size).
		Float64("frame_rate", fps).
		Bool("triggered", acq.triggered).
		Msg("acquisition started")
	return nil
}

// StopStreaming ends the running acquisition. It waits for the frame
// currently being delivered, bounded by ctx.
func (c *Camera) StopStreaming(ctx context.Context) error {
	c.mu.Lock()
	acq := c.acq
	c.acq = nil
	c.mu.Unlock()
	if acq == nil {
		return device.ErrInvalidCall
	}

	acq.cancel()
	defer c.streaming.Store(false)
	select {
	case <-acq.done:
	case <-ctx.Done():
		return device.ErrTimeout
	}

	c.logger.Debug().
		Str(xglog.FieldEvent, "device.acquisition_stopped").
		Int64("skipped_frames", acq.skipped.Load()).
		Msg("acquisition stopped")
	return nil
}

func (c *Camera) acquire(ctx context.Context, acq *acquisition, onFrame device.FrameHandler) {
	defer close(acq.done)

	var next int64
	for {
		if err := acq.wait(ctx); err != nil {
			return
		}
		id := next
		next++

		var f *frame
		select {
		case f = <-acq.pool:
		default:
			// No free buffer: the sensor frame is lost.
			acq.skipped.Add(1)
			continue
		}

		f.id = id
		f.ts = time.Now()
		binary.LittleEndian.PutUint64(f.buf[:frameHeader], uint64(id))
		f.queued.Store(false)
		onFrame(f)
	}
}

// retime applies a new frame rate to a running acquisition.
func (c *Camera) retime(fps float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.acq != nil {
		c.acq.limiter.SetLimit(rate.Limit(fps))
	}
}

func (c *Camera) softwareTrigger() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.acq == nil {
		return
	}
	select {
	case c.acq.trigger <- struct{}{}:
	default:
	}
}

func fillPattern(buf []byte) {
	for i := frameHeader; i < len(buf); i++ {
		buf[i] = byte(i)
	}
}
