// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"fmt"
	"net"

	"github.com/rs/zerolog"

	"github.com/ManuGH/camstream/internal/api"
	"github.com/ManuGH/camstream/internal/api/middleware"
	"github.com/ManuGH/camstream/internal/config"
	"github.com/ManuGH/camstream/internal/device/sim"
	"github.com/ManuGH/camstream/internal/dispatch"
	"github.com/ManuGH/camstream/internal/health"
	"github.com/ManuGH/camstream/internal/journal"
	xglog "github.com/ManuGH/camstream/internal/log"
	"github.com/ManuGH/camstream/internal/metrics"
	"github.com/ManuGH/camstream/internal/stream"
	"github.com/ManuGH/camstream/internal/telemetry"
	"github.com/ManuGH/camstream/internal/transport"
)

// Daemon is the wired runtime for one camera.
type Daemon struct {
	App        *App
	Controller *stream.Controller
	Camera     *sim.Camera
	Bus        *transport.MemoryBus

	manager *manager
}

// APIAddr returns the bound API listener address once the daemon runs.
func (d *Daemon) APIAddr() net.Addr { return d.manager.APIAddr() }

// MetricsAddr returns the bound metrics listener address, if any.
func (d *Daemon) MetricsAddr() net.Addr { return d.manager.MetricsAddr() }

// Run blocks until ctx is cancelled or a server fails. Resources are
// released by the manager's shutdown hooks.
func (d *Daemon) Run(ctx context.Context) error {
	return d.App.Run(ctx)
}

// Bootstrap builds every component from cfg. holder may be nil when no hot
// reload is wanted. On error everything created so far is released.
func Bootstrap(ctx context.Context, cfg config.AppConfig, holder *config.ConfigHolder) (_ *Daemon, err error) {
	logger := xglog.WithComponent("daemon")

	var cleanups []func()
	defer func() {
		if err != nil {
			for i := len(cleanups) - 1; i >= 0; i-- {
				cleanups[i]()
			}
		}
	}()

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Log.Service,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	cleanups = append(cleanups, func() { _ = tp.Shutdown(context.Background()) })
	if cfg.Telemetry.Enabled {
		logger.Info().
			Str(xglog.FieldEvent, "telemetry.enabled").
			Str("exporter", cfg.Telemetry.Exporter).
			Str("endpoint", cfg.Telemetry.Endpoint).
			Float64("sampling_rate", cfg.Telemetry.SamplingRate).
			Msg("OpenTelemetry tracing initialized")
	}

	cam, err := sim.Open(sim.Config{
		ID:          cfg.Camera.ID,
		Width:       cfg.Camera.Width,
		Height:      cfg.Camera.Height,
		FrameRate:   cfg.Camera.FrameRate,
		PixelFormat: cfg.Camera.PixelFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("open camera: %w", err)
	}
	releaseDevice := func() { _ = cam.Close() }
	cleanups = append(cleanups, func() { releaseDevice() })

	part := dispatch.Standard()
	if cfg.Camera.SettingsFile != "" {
		loadStartupSettings(ctx, logger, part, cam, cfg.Camera.SettingsFile)
	}

	bus := transport.NewMemoryBus(cfg.Stream.SubscriberQueue)
	cleanups = append(cleanups, func() { _ = bus.Close() })

	var (
		store    *journal.Store
		recorder stream.Journal
		sessions api.SessionLister
	)
	if cfg.Journal.Path != "" {
		store, err = journal.Open(ctx, cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		cleanups = append(cleanups, func() { _ = store.Close() })
		recorder, sessions = store, store
	}

	ctrl, err := stream.New(stream.Options{
		Device:         cam,
		Topology:       bus,
		Sink:           transport.NewFrameSink(bus, cfg.Stream.Topic),
		Journal:        recorder,
		Partition:      part,
		Topic:          cfg.Stream.Topic,
		BufferCount:    cfg.Stream.BufferCount,
		PollInterval:   cfg.Stream.DemandPollInterval,
		ResyncInterval: cfg.Stream.ResyncInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("create stream controller: %w", err)
	}
	// The controller owns the device from here on.
	releaseDevice = func() { _ = ctrl.Close() }

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewFuncChecker("device", func(ctx context.Context) error {
		_, err := cam.Info(ctx)
		return err
	}))
	if store != nil {
		hm.RegisterChecker(health.NewFuncChecker("journal", store.Ping))
	}
	hm.RegisterChecker(health.NewFileChecker("settings_file", cfg.Camera.SettingsFile))

	stack := middleware.StackConfig{
		EnableMetrics: true,
		EnableLogging: true,
		RateLimitRPM:  cfg.API.RateLimitRPM,
	}
	if cfg.Telemetry.Enabled {
		stack.TracingService = cfg.Log.Service
	}
	srv, err := api.New(api.Deps{
		Camera:    cam,
		Stream:    ctrl,
		Frames:    bus,
		Partition: part,
		Sessions:  sessions,
		Health:    hm,
		Stack:     stack,
	})
	if err != nil {
		return nil, fmt.Errorf("create API server: %w", err)
	}

	mgr, err := NewManager(ServerConfigFrom(cfg.API), Deps{
		Logger:         logger,
		APIHandler:     srv.Handler(),
		MetricsHandler: metrics.Handler(),
		StreamCloser:   func() { _ = bus.Close() },
	})
	if err != nil {
		return nil, err
	}

	// LIFO: the controller journals its last session before the journal
	// closes, traces flush last.
	mgr.RegisterShutdownHook("telemetry", tp.Shutdown)
	if store != nil {
		mgr.RegisterShutdownHook("journal", func(context.Context) error { return store.Close() })
	}
	mgr.RegisterShutdownHook("bus", func(context.Context) error { return bus.Close() })
	mgr.RegisterShutdownHook("stream", func(context.Context) error { return ctrl.Close() })

	logger.Info().
		Str(xglog.FieldEvent, "daemon.bootstrapped").
		Str(xglog.FieldCameraID, cam.ID()).
		Str(xglog.FieldTopic, ctrl.Topic()).
		Int(xglog.FieldBufferCount, ctrl.BufferCount()).
		Bool("journal", store != nil).
		Msg("daemon components ready")

	return &Daemon{
		App:        NewApp(logger, mgr, holder, ctrl),
		Controller: ctrl,
		Camera:     cam,
		Bus:        bus,
		manager:    mgr.(*manager),
	}, nil
}

// loadStartupSettings applies a settings file once at startup. A failure is
// reported but does not stop the daemon.
func loadStartupSettings(ctx context.Context, logger zerolog.Logger, part *dispatch.Partition, cam *sim.Camera, path string) {
	err := part.Run(ctx, dispatch.OpSettingsLoad, func(ctx context.Context) error {
		return cam.SettingsLoad(ctx, path)
	})
	if err != nil {
		logger.Warn().
			Err(err).
			Str(xglog.FieldEvent, "settings.startup_load_failed").
			Str(xglog.FieldPath, path).
			Msg("loading settings from file failed")
		return
	}
	logger.Info().
		Str(xglog.FieldEvent, "settings.loaded").
		Str(xglog.FieldPath, path).
		Msg("camera settings loaded")
}
