// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config provides configuration management for camstream.
package config

import "time"

// Defaults. Buffer count limits mirror the stream controller.
const (
	DefaultBufferCount     = 7
	MinBufferCount         = 3
	MaxBufferCount         = 1000
	DefaultTopic           = "image_raw"
	DefaultPollInterval    = 50 * time.Millisecond
	DefaultResyncInterval  = time.Second
	DefaultSubscriberQueue = 8
	DefaultListenAddr      = ":8088"
	DefaultMetricsAddr     = ":9464"
	DefaultCameraID        = "DEV_SIM0001"
)

// AppConfig is the fully resolved daemon configuration.
type AppConfig struct {
	Version string `yaml:"-"`

	Log       LogConfig       `yaml:"log"`
	Camera    CameraConfig    `yaml:"camera"`
	Stream    StreamConfig    `yaml:"stream"`
	API       APIConfig       `yaml:"api"`
	Journal   JournalConfig   `yaml:"journal"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

// CameraConfig selects and initially configures the device.
type CameraConfig struct {
	ID string `yaml:"id"`
	// SettingsFile is loaded once at startup when set. A load failure is logged, not fatal.
	SettingsFile string  `yaml:"settings_file"`
	Width        int64   `yaml:"width"`
	Height       int64   `yaml:"height"`
	FrameRate    float64 `yaml:"frame_rate"`
	PixelFormat  string  `yaml:"pixel_format"`
}

// StreamConfig configures the lifecycle controller and the frame bus.
type StreamConfig struct {
	BufferCount        int           `yaml:"buffer_count"`
	Topic              string        `yaml:"topic"`
	DemandPollInterval time.Duration `yaml:"demand_poll_interval"`
	ResyncInterval     time.Duration `yaml:"resync_interval"`
	SubscriberQueue    int           `yaml:"subscriber_queue"`
}

// APIConfig configures the HTTP command surface.
type APIConfig struct {
	ListenAddr      string        `yaml:"listen_addr"`
	MetricsAddr     string        `yaml:"metrics_addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RateLimitRPM    int           `yaml:"rate_limit_rpm"`
}

// JournalConfig configures the session journal. An empty path disables it.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
	Environment  string  `yaml:"environment"`
}

// Defaults returns the configuration used when neither file nor environment set a value.
func Defaults() AppConfig {
	return AppConfig{
		Log: LogConfig{
			Level:   "info",
			Service: "camstream",
		},
		Camera: CameraConfig{
			ID:          DefaultCameraID,
			Width:       640,
			Height:      480,
			FrameRate:   30,
			PixelFormat: "Mono8",
		},
		Stream: StreamConfig{
			BufferCount:        DefaultBufferCount,
			Topic:              DefaultTopic,
			DemandPollInterval: DefaultPollInterval,
			ResyncInterval:     DefaultResyncInterval,
			SubscriberQueue:    DefaultSubscriberQueue,
		},
		API: APIConfig{
			ListenAddr:      DefaultListenAddr,
			MetricsAddr:     DefaultMetricsAddr,
			ReadTimeout:     10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimitRPM:    600,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
			Environment:  "production",
		},
	}
}
