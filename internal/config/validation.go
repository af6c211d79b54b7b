// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"strings"

	"github.com/ManuGH/camstream/internal/validate"
	"github.com/rs/zerolog"
)

var pixelFormats = []string{"Mono8", "Mono16", "RGB8", "BGR8"}

// Validate validates an AppConfig using the centralized validation package.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.Custom("log.level", cfg.Log.Level, func(val any) error {
		_, err := zerolog.ParseLevel(val.(string))
		return err
	})

	v.NotEmpty("camera.id", cfg.Camera.ID)
	if cfg.Camera.Width <= 0 || cfg.Camera.Height <= 0 {
		v.AddError("camera.width/height", "dimensions must be positive", [2]int64{cfg.Camera.Width, cfg.Camera.Height})
	}
	v.FloatRange("camera.frame_rate", cfg.Camera.FrameRate, 0.1, 1000)
	v.OneOf("camera.pixel_format", cfg.Camera.PixelFormat, pixelFormats)

	v.Range("stream.buffer_count", cfg.Stream.BufferCount, MinBufferCount, MaxBufferCount)
	v.Custom("stream.topic", cfg.Stream.Topic, func(val any) error {
		topic := val.(string)
		if strings.TrimSpace(topic) == "" {
			return errors.New("topic cannot be empty")
		}
		if strings.ContainsAny(topic, " /?#") {
			return errors.New("topic must be a single path segment")
		}
		return nil
	})
	v.PositiveDuration("stream.demand_poll_interval", cfg.Stream.DemandPollInterval)
	v.PositiveDuration("stream.resync_interval", cfg.Stream.ResyncInterval)
	v.Positive("stream.subscriber_queue", cfg.Stream.SubscriberQueue)

	v.ListenAddr("api.listen_addr", cfg.API.ListenAddr)
	if cfg.API.MetricsAddr != "" {
		v.ListenAddr("api.metrics_addr", cfg.API.MetricsAddr)
	}
	v.PositiveDuration("api.read_timeout", cfg.API.ReadTimeout)
	v.PositiveDuration("api.shutdown_timeout", cfg.API.ShutdownTimeout)
	v.NonNegative("api.rate_limit_rpm", cfg.API.RateLimitRPM)

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.FloatRange("telemetry.sampling_rate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	return v.Err()
}
