// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package journal

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/camstream/internal/stream"
)

func openStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.sqlite")
	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func session(id string, started time.Time) stream.SessionStats {
	return stream.SessionStats{
		ID:              id,
		BufferCount:     7,
		Trigger:         stream.TriggerDemand,
		StartedAt:       started,
		StoppedAt:       started.Add(time.Minute),
		StopTrigger:     stream.TriggerShutdown,
		LastFrameID:     1799,
		Delivered:       1795,
		Missing:         5,
		LossEvents:      2,
		RequeueFailures: 1,
		StopError:       "camera error -24 (Busy)",
	}
}

func TestRecordAndList(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Record(ctx, session(fmt.Sprintf("s%d", i), base.Add(time.Duration(i)*time.Hour))))
	}

	got, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "s2", got[0].ID, "newest first")
	assert.Equal(t, session("s2", base.Add(2*time.Hour)), got[0])

	limited, err := s.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRecordOverwritesSameSession(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()
	st := session("dup", time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))

	require.NoError(t, s.Record(ctx, st))
	st.Delivered = 2000
	require.NoError(t, s.Record(ctx, st))

	got, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2000), got[0].Delivered)
}

func TestReopenKeepsSessions(t *testing.T) {
	s, path := openStore(t)
	ctx := context.Background()
	require.NoError(t, s.Record(ctx, session("kept", time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))))
	require.NoError(t, s.Close())

	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "kept", got[0].ID)
}

func TestListEmpty(t *testing.T) {
	s, _ := openStore(t)
	got, err := s.List(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
