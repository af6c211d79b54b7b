// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/camstream/internal/config"
	xglog "github.com/ManuGH/camstream/internal/log"
)

// StreamRuntime is the part of the stream controller the App drives.
type StreamRuntime interface {
	Start(ctx context.Context) error
	BufferCount() int
	SetBufferCount(ctx context.Context, n int) error
}

// App owns the long-lived runtime lifecycle (demand monitor, config watcher,
// reload wiring) and delegates server management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	cfgHolder    *config.ConfigHolder
	stream       StreamRuntime
	reloadSignal os.Signal
}

// NewApp creates a new App orchestrator. cfgHolder may be nil.
func NewApp(logger zerolog.Logger, manager Manager, cfgHolder *config.ConfigHolder, stream StreamRuntime) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		cfgHolder:    cfgHolder,
		stream:       stream,
		reloadSignal: syscall.SIGHUP,
	}
}

// Run starts all owned background subsystems and blocks until ctx is cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}
	if a.stream == nil {
		return ErrMissingController
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	// Config watcher is best-effort: startup should not fail if watcher cannot be started.
	if a.cfgHolder != nil {
		if err := a.cfgHolder.StartWatcher(ctx); err != nil {
			a.logger.Warn().Err(err).Str(xglog.FieldEvent, "config.watcher_start_failed").Msg("failed to start config watcher")
		}
	}

	if a.cfgHolder != nil {
		applyCh := make(chan config.AppConfig, 1)
		a.cfgHolder.RegisterListener(applyCh)

		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case cfg := <-applyCh:
					a.apply(ctx, cfg)
				}
			}
		})
	}

	// SIGHUP trigger for manual reload.
	if a.cfgHolder != nil && a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hupChan:
					a.logger.Info().
						Str(xglog.FieldEvent, "config.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal, reloading config")

					if err := a.cfgHolder.Reload(context.Background()); err != nil {
						a.logger.Warn().
							Err(err).
							Str(xglog.FieldEvent, "config.reload_failed").
							Msg("config reload failed")
					}
				}
			}
		})
	}

	// Demand monitor (stops via ctx or controller Close).
	if err := a.stream.Start(ctx); err != nil {
		cancel()
		_ = g.Wait()
		return err
	}

	// Main server lifecycle.
	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	return g.Wait()
}

// apply hands the hot-reloadable fields of a new config to the runtime.
// Everything else needs a restart and is only reported by the holder.
func (a *App) apply(ctx context.Context, cfg config.AppConfig) {
	if level, err := zerolog.ParseLevel(cfg.Log.Level); err == nil && level != zerolog.GlobalLevel() {
		zerolog.SetGlobalLevel(level)
		a.logger.Info().
			Str(xglog.FieldEvent, "config.log_level_applied").
			Str("level", level.String()).
			Msg("log level changed")
	}

	if cfg.Stream.BufferCount == a.stream.BufferCount() {
		return
	}
	if err := a.stream.SetBufferCount(ctx, cfg.Stream.BufferCount); err != nil {
		a.logger.Warn().
			Err(err).
			Str(xglog.FieldEvent, "config.apply_rejected").
			Int(xglog.FieldBufferCount, cfg.Stream.BufferCount).
			Msg("reloaded buffer count not applied")
		return
	}
	a.logger.Info().
		Str(xglog.FieldEvent, "config.buffer_count_applied").
		Int(xglog.FieldBufferCount, cfg.Stream.BufferCount).
		Msg("buffer count changed")
}
