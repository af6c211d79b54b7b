// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/ManuGH/camstream/internal/config"
	"github.com/ManuGH/camstream/internal/log"
)

// PerformStartupChecks validates the environment before the daemon starts.
// Only problems that would make the daemon useless fail; the rest warn.
func PerformStartupChecks(_ context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")

	if cfg.Journal.Path != "" {
		if err := checkJournalDir(logger, filepath.Dir(cfg.Journal.Path)); err != nil {
			return fmt.Errorf("journal directory check failed: %w", err)
		}
	}

	if cfg.Camera.SettingsFile != "" {
		if err := checkFileReadable(cfg.Camera.SettingsFile); err != nil {
			logger.Warn().
				Err(err).
				Str(log.FieldEvent, "startup.settings_unreadable").
				Str(log.FieldPath, cfg.Camera.SettingsFile).
				Msg("camera settings file is not readable; starting with device defaults")
		}
	}

	logger.Info().Str(log.FieldEvent, "startup.checks_passed").Msg("all startup checks passed")
	return nil
}

func checkJournalDir(logger zerolog.Logger, path string) error {
	if err := os.MkdirAll(path, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	// Check write permissions by creating a temp file
	testFile := filepath.Join(path, ".write_test")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %w)", path, err)
	}
	_ = os.Remove(testFile)

	logger.Debug().Str(log.FieldPath, path).Msg("journal directory is writable")
	return nil
}

func checkFileReadable(path string) error {
	f, err := os.Open(path) // #nosec G304 -- path comes from operator config; verifying readability is expected
	if err != nil {
		return err
	}
	return f.Close()
}
