// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sim

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"

	"github.com/ManuGH/camstream/internal/device"
	xglog "github.com/ManuGH/camstream/internal/log"
)

type settingsFile struct {
	Camera   string               `yaml:"camera"`
	Features map[string]yaml.Node `yaml:"features"`
}

// SettingsSave writes every writable feature value to path atomically.
func (c *Camera) SettingsSave(ctx context.Context, path string) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	values := make(map[string]any, len(c.features))
	for name, f := range c.features {
		if !f.writable || f.kind == kindCommand {
			continue
		}
		f.mu.Lock()
		switch f.kind {
		case kindInt:
			values[name] = f.intVal
		case kindFloat:
			values[name] = f.floatVal
		case kindBool:
			values[name] = f.boolVal
		case kindRaw:
			values[name] = base64.StdEncoding.EncodeToString(f.rawVal)
		default:
			values[name] = f.strVal
		}
		f.mu.Unlock()
	}

	data, err := yaml.Marshal(map[string]any{"camera": c.id, "features": values})
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	logger := xglog.FromContext(ctx)
	pendingFile, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending settings file: %w: %w", device.ErrIO, err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending settings file")
		}
	}()
	if _, err := pendingFile.Write(data); err != nil {
		return fmt.Errorf("write settings: %w: %w", device.ErrIO, err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace settings file: %w: %w", device.ErrIO, err)
	}

	logger.Info().
		Str(xglog.FieldEvent, "device.settings_saved").
		Str(xglog.FieldPath, path).
		Int("features", len(values)).
		Msg("camera settings saved")
	return nil
}

// SettingsLoad applies the feature values stored at path. Every feature is
// attempted; failures are joined so the first device code stays reachable.
func (c *Camera) SettingsLoad(ctx context.Context, path string) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	data, err := os.ReadFile(path) // #nosec G304 -- operator supplied settings path
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("read settings %s: %w", path, device.ErrNotFound)
		}
		return fmt.Errorf("read settings %s: %w: %w", path, device.ErrIO, err)
	}

	var file settingsFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return fmt.Errorf("parse settings %s: %w: %w", path, device.ErrInvalidValue, err)
	}

	names := make([]string, 0, len(file.Features))
	for name := range file.Features {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		node := file.Features[name]
		if err := c.applySetting(ctx, name, &node); err != nil {
			errs = append(errs, fmt.Errorf("feature %s: %w", name, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	xglog.FromContext(ctx).Info().
		Str(xglog.FieldEvent, "device.settings_loaded").
		Str(xglog.FieldPath, path).
		Int("features", len(names)).
		Msg("camera settings loaded")
	return nil
}

func (c *Camera) applySetting(ctx context.Context, name string, node *yaml.Node) error {
	f, ok := c.features[name]
	if !ok {
		return device.ErrNotFound
	}
	switch f.kind {
	case kindInt:
		var v int64
		if err := node.Decode(&v); err != nil {
			return device.ErrWrongType
		}
		return c.IntSet(ctx, name, v)
	case kindFloat:
		var v float64
		if err := node.Decode(&v); err != nil {
			return device.ErrWrongType
		}
		return c.FloatSet(ctx, name, v)
	case kindBool:
		var v bool
		if err := node.Decode(&v); err != nil {
			return device.ErrWrongType
		}
		return c.BoolSet(ctx, name, v)
	case kindString:
		var v string
		if err := node.Decode(&v); err != nil {
			return device.ErrWrongType
		}
		return c.StringSet(ctx, name, v)
	case kindEnum:
		var v string
		if err := node.Decode(&v); err != nil {
			return device.ErrWrongType
		}
		return c.EnumSet(ctx, name, v)
	case kindRaw:
		var v string
		if err := node.Decode(&v); err != nil {
			return device.ErrWrongType
		}
		raw, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return device.ErrInvalidValue
		}
		return c.RawSet(ctx, name, raw)
	default:
		return device.ErrInvalidAccess
	}
}
