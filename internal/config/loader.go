// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ManuGH/camstream/internal/log"
	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{} // keys read during the last Load
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envInt64(key string, defaultVal int64) int64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt64(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults.
// Order: defaults -> strict file parse -> env overrides -> validate.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	clear(l.ConsumedEnvKeys)
	l.mergeEnvConfig(&cfg)
	l.warnUnknownEnv()

	if cfg.Journal.Path != "" {
		if abs, err := filepath.Abs(cfg.Journal.Path); err == nil {
			cfg.Journal.Path = abs
		}
	}

	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadFileConfig parses a YAML config file over the defaults, without env overrides or validation.
func LoadFileConfig(path string) (AppConfig, error) {
	cfg := Defaults()
	if err := NewLoader(path, "").loadFile(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// loadFile decodes a YAML file with STRICT parsing on top of dst.
// Unknown fields and multiple documents are fatal.
func (l *Loader) loadFile(path string, dst *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.Log.Level = l.envString(EnvPrefix+"LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Service = l.envString(EnvPrefix+"LOG_SERVICE", cfg.Log.Service)

	cfg.Camera.ID = l.envString(EnvPrefix+"CAMERA_ID", cfg.Camera.ID)
	cfg.Camera.SettingsFile = l.envString(EnvPrefix+"CAMERA_SETTINGS_FILE", cfg.Camera.SettingsFile)
	cfg.Camera.Width = l.envInt64(EnvPrefix+"CAMERA_WIDTH", cfg.Camera.Width)
	cfg.Camera.Height = l.envInt64(EnvPrefix+"CAMERA_HEIGHT", cfg.Camera.Height)
	cfg.Camera.FrameRate = l.envFloat(EnvPrefix+"CAMERA_FRAME_RATE", cfg.Camera.FrameRate)
	cfg.Camera.PixelFormat = l.envString(EnvPrefix+"CAMERA_PIXEL_FORMAT", cfg.Camera.PixelFormat)

	cfg.Stream.BufferCount = l.envInt(EnvPrefix+"STREAM_BUFFER_COUNT", cfg.Stream.BufferCount)
	cfg.Stream.Topic = l.envString(EnvPrefix+"STREAM_TOPIC", cfg.Stream.Topic)
	cfg.Stream.DemandPollInterval = l.envDuration(EnvPrefix+"STREAM_DEMAND_POLL_INTERVAL", cfg.Stream.DemandPollInterval)
	cfg.Stream.ResyncInterval = l.envDuration(EnvPrefix+"STREAM_RESYNC_INTERVAL", cfg.Stream.ResyncInterval)
	cfg.Stream.SubscriberQueue = l.envInt(EnvPrefix+"STREAM_SUBSCRIBER_QUEUE", cfg.Stream.SubscriberQueue)

	cfg.API.ListenAddr = l.envString(EnvPrefix+"API_LISTEN_ADDR", cfg.API.ListenAddr)
	cfg.API.MetricsAddr = l.envString(EnvPrefix+"API_METRICS_ADDR", cfg.API.MetricsAddr)
	cfg.API.ReadTimeout = l.envDuration(EnvPrefix+"API_READ_TIMEOUT", cfg.API.ReadTimeout)
	cfg.API.ShutdownTimeout = l.envDuration(EnvPrefix+"API_SHUTDOWN_TIMEOUT", cfg.API.ShutdownTimeout)
	cfg.API.RateLimitRPM = l.envInt(EnvPrefix+"API_RATE_LIMIT_RPM", cfg.API.RateLimitRPM)

	cfg.Journal.Path = l.envString(EnvPrefix+"JOURNAL_PATH", cfg.Journal.Path)

	cfg.Telemetry.Enabled = l.envBool(EnvPrefix+"TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString(EnvPrefix+"TELEMETRY_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString(EnvPrefix+"TELEMETRY_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat(EnvPrefix+"TELEMETRY_SAMPLING_RATE", cfg.Telemetry.SamplingRate)
	cfg.Telemetry.Environment = l.envString(EnvPrefix+"TELEMETRY_ENVIRONMENT", cfg.Telemetry.Environment)
}

// UnknownEnvKeys lists set CAMSTREAM_* variables the last Load did not consume.
func (l *Loader) UnknownEnvKeys() []string {
	var unknown []string
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		if _, ok := l.ConsumedEnvKeys[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	return unknown
}

func (l *Loader) warnUnknownEnv() {
	unknown := l.UnknownEnvKeys()
	if len(unknown) == 0 {
		return
	}
	logger := log.WithComponent("config")
	for _, key := range unknown {
		logger.Warn().
			Str("key", key).
			Str("event", "config.unknown_env").
			Msg("ignoring unknown environment variable")
	}
}
