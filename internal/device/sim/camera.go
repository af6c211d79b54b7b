// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package sim implements a simulated camera.
//
// The simulated device owns a fixed pool of frame buffers per acquisition.
// When the consumer does not requeue fast enough the pool runs dry and the
// acquisition engine skips frame IDs, exactly like a real camera dropping
// frames at the sensor.
package sim

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/ManuGH/camstream/internal/device"
	xglog "github.com/ManuGH/camstream/internal/log"
)

const (
	defaultID         = "DEV_SIM0001"
	defaultMaxBuffers = 1000
)

// Config describes the simulated camera at open time.
type Config struct {
	ID          string
	Width       int64
	Height      int64
	FrameRate   float64
	PixelFormat string
	// MaxBuffers is the largest buffer count the device accepts.
	MaxBuffers int
}

// Camera is a simulated device.Camera.
type Camera struct {
	id         string
	maxBuffers int
	logger     zerolog.Logger
	features   map[string]*feature

	mu        sync.Mutex // guards acq and closed
	acq       *acquisition
	closed    bool
	streaming atomic.Bool
}

var _ device.Camera = (*Camera)(nil)

// Open creates a simulated camera. An empty ID selects the first
// available device.
func Open(cfg Config) (*Camera, error) {
	id := cfg.ID
	if id == "" {
		id = defaultID
	}
	maxBuffers := cfg.MaxBuffers
	if maxBuffers <= 0 {
		maxBuffers = defaultMaxBuffers
	}

	c := &Camera{
		id:         id,
		maxBuffers: maxBuffers,
		logger:     xglog.WithComponent("device").With().Str(xglog.FieldCameraID, id).Logger(),
	}
	c.features = defaultFeatures(id)

	if cfg.Width > 0 {
		if err := c.IntSet(context.Background(), featWidth, cfg.Width); err != nil {
			return nil, fmt.Errorf("set width %d: %w", cfg.Width, err)
		}
	}
	if cfg.Height > 0 {
		if err := c.IntSet(context.Background(), featHeight, cfg.Height); err != nil {
			return nil, fmt.Errorf("set height %d: %w", cfg.Height, err)
		}
	}
	if cfg.FrameRate > 0 {
		if err := c.FloatSet(context.Background(), featFrameRate, cfg.FrameRate); err != nil {
			return nil, fmt.Errorf("set frame rate %g: %w", cfg.FrameRate, err)
		}
	}
	if cfg.PixelFormat != "" {
		if err := c.EnumSet(context.Background(), featPixelFormat, cfg.PixelFormat); err != nil {
			return nil, fmt.Errorf("set pixel format %q: %w", cfg.PixelFormat, err)
		}
	}

	c.logger.Info().
		Str(xglog.FieldEvent, "device.opened").
		Msg("opened simulated camera")
	return c, nil
}

// ID returns the device ID the camera was opened with.
func (c *Camera) ID() string { return c.id }

// IsStreaming reports whether an acquisition is running.
func (c *Camera) IsStreaming() bool {
	return c.streaming.Load()
}

// Close stops a running acquisition and releases the device.
func (c *Camera) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	acq := c.acq
	c.acq = nil
	c.mu.Unlock()

	if acq != nil {
		acq.stop()
		c.streaming.Store(false)
	}
	c.logger.Info().
		Str(xglog.FieldEvent, "device.closed").
		Msg("released simulated camera")
	return nil
}

// Info reports the aggregate camera description.
func (c *Camera) Info(ctx context.Context) (device.Info, error) {
	if err := c.checkOpen(); err != nil {
		return device.Info{}, err
	}
	width, _ := c.IntGet(ctx, featWidth)
	height, _ := c.IntGet(ctx, featHeight)
	fps, _ := c.FloatGet(ctx, featFrameRate)
	pixfmt, _ := c.EnumGet(ctx, featPixelFormat)
	trigMode, _ := c.EnumGet(ctx, featTriggerMode)
	trigSource, _ := c.EnumGet(ctx, featTriggerSource)
	userID, _ := c.StringGet(ctx, featDeviceUserID)
	serial, _ := c.StringGet(ctx, featSerialNumber)

	return device.Info{
		DisplayName:        "Simulated Camera (" + c.id + ")",
		ModelName:          "SIM-1",
		FirmwareVersion:    "1.0.0",
		DeviceID:           c.id,
		DeviceUserID:       userID,
		DeviceSerialNumber: serial,
		InterfaceID:        "sim0",
		TransportLayerID:   "SimTL",
		Streaming:          c.IsStreaming(),
		Width:              width,
		Height:             height,
		FrameRate:          fps,
		PixelFormat:        pixfmt,
		TriggerMode:        trigMode,
		TriggerSource:      trigSource,
	}, nil
}

func (c *Camera) checkOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return device.ErrDeviceNotOpen
	}
	return nil
}
