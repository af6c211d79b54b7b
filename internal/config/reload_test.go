// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigHolder_Get(t *testing.T) {
	initial := Defaults()
	initial.Camera.ID = "DEV_A"

	holder := NewConfigHolder(initial, NewLoader("", ""), "")
	assert.Equal(t, "DEV_A", holder.Get().Camera.ID)
}

func TestConfigHolder_Reload_Success(t *testing.T) {
	path := writeConfig(t, "stream:\n  buffer_count: 9\n")
	holder := NewConfigHolder(Defaults(), NewLoader(path, ""), path)

	listener := make(chan AppConfig, 1)
	holder.RegisterListener(listener)

	require.NoError(t, holder.Reload(context.Background()))
	assert.Equal(t, 9, holder.Get().Stream.BufferCount)

	select {
	case cfg := <-listener:
		assert.Equal(t, 9, cfg.Stream.BufferCount)
	default:
		t.Fatal("listener was not notified")
	}
}

func TestConfigHolder_Reload_FailureKeepsOld(t *testing.T) {
	path := writeConfig(t, "stream:\n  buffer_count: 9999\n")
	initial := Defaults()
	holder := NewConfigHolder(initial, NewLoader(path, ""), path)

	listener := make(chan AppConfig, 1)
	holder.RegisterListener(listener)

	require.Error(t, holder.Reload(context.Background()))
	assert.Equal(t, initial, holder.Get())
	assert.Empty(t, listener)
}

func TestConfigHolder_NotifyListeners_NonBlocking(t *testing.T) {
	path := writeConfig(t, "stream:\n  buffer_count: 9\n")
	holder := NewConfigHolder(Defaults(), NewLoader(path, ""), path)

	full := make(chan AppConfig) // unbuffered, never read
	holder.RegisterListener(full)

	done := make(chan error, 1)
	go func() { done <- holder.Reload(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("reload blocked on a full listener")
	}
}

func TestConfigHolder_WatcherDisabledWithoutPath(t *testing.T) {
	holder := NewConfigHolder(Defaults(), NewLoader("", ""), "")
	require.NoError(t, holder.StartWatcher(context.Background()))
	holder.Stop()
}

func TestConfigHolder_WatcherReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "stream:\n  buffer_count: 7\n")
	holder := NewConfigHolder(Defaults(), NewLoader(path, ""), path)
	holder.debounce = 20 * time.Millisecond

	listener := make(chan AppConfig, 4)
	holder.RegisterListener(listener)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, holder.StartWatcher(ctx))

	require.NoError(t, os.WriteFile(path, []byte("stream:\n  buffer_count: 11\n"), 0o600))

	select {
	case cfg := <-listener:
		assert.Equal(t, 11, cfg.Stream.BufferCount)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reload the changed file")
	}
}

func TestConfigHolder_StartWatcherMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")
	holder := NewConfigHolder(Defaults(), NewLoader(path, ""), path)
	require.Error(t, holder.StartWatcher(context.Background()))
}
