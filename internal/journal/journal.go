// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package journal stores finished streaming sessions in SQLite.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	xglog "github.com/ManuGH/camstream/internal/log"
	"github.com/ManuGH/camstream/internal/persistence/sqlite"
	"github.com/ManuGH/camstream/internal/stream"
)

const (
	schemaVersion = 1
	defaultLimit  = 50
	maxLimit      = 1000
)

// Store is a SQLite backed stream.Journal.
type Store struct {
	db *sql.DB
}

var _ stream.Journal = (*Store)(nil)

// Open opens or creates the journal at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: migration failed: %w", err)
	}

	issues, err := sqlite.VerifyIntegrity(ctx, db, "quick")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: integrity check: %w", err)
	}
	if len(issues) > 0 {
		xglog.FromContext(ctx).Warn().
			Str(xglog.FieldEvent, "journal.integrity_issues").
			Str(xglog.FieldPath, path).
			Strs("issues", issues).
			Msg("session journal failed integrity check")
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	var current int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return err
	}
	if current >= schemaVersion {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS stream_sessions (
		id TEXT PRIMARY KEY,
		buffer_count INTEGER NOT NULL,
		start_trigger TEXT NOT NULL,
		stop_trigger TEXT NOT NULL,
		started_at_ms INTEGER NOT NULL,
		stopped_at_ms INTEGER NOT NULL,
		last_frame_id INTEGER NOT NULL,
		frames_delivered INTEGER NOT NULL,
		frames_missing INTEGER NOT NULL,
		loss_events INTEGER NOT NULL,
		requeue_failures INTEGER NOT NULL,
		stop_error TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_stream_sessions_started ON stream_sessions(started_at_ms);
	`
	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

// Record stores a finished session. Recording the same session twice
// overwrites the earlier row.
func (s *Store) Record(ctx context.Context, st stream.SessionStats) error {
	query := `
	INSERT INTO stream_sessions (id, buffer_count, start_trigger, stop_trigger, started_at_ms, stopped_at_ms,
		last_frame_id, frames_delivered, frames_missing, loss_events, requeue_failures, stop_error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		stop_trigger = excluded.stop_trigger,
		stopped_at_ms = excluded.stopped_at_ms,
		last_frame_id = excluded.last_frame_id,
		frames_delivered = excluded.frames_delivered,
		frames_missing = excluded.frames_missing,
		loss_events = excluded.loss_events,
		requeue_failures = excluded.requeue_failures,
		stop_error = excluded.stop_error
	`
	_, err := s.db.ExecContext(ctx, query,
		st.ID, st.BufferCount, string(st.Trigger), string(st.StopTrigger),
		st.StartedAt.UnixMilli(), st.StoppedAt.UnixMilli(),
		st.LastFrameID, st.Delivered, st.Missing, st.LossEvents, st.RequeueFailures, st.StopError,
	)
	if err != nil {
		return fmt.Errorf("journal: record session %s: %w", st.ID, err)
	}
	return nil
}

// List returns up to limit sessions, newest first. A non-positive limit
// selects the default.
func (s *Store) List(ctx context.Context, limit int) ([]stream.SessionStats, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	rows, err := s.db.QueryContext(ctx, `
	SELECT id, buffer_count, start_trigger, stop_trigger, started_at_ms, stopped_at_ms,
		last_frame_id, frames_delivered, frames_missing, loss_events, requeue_failures, stop_error
	FROM stream_sessions ORDER BY started_at_ms DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: list sessions: %w", err)
	}
	defer rows.Close()

	out := make([]stream.SessionStats, 0)
	for rows.Next() {
		var (
			st                  stream.SessionStats
			startTrig, stopTrig string
			startMS, stopMS     int64
		)
		if err := rows.Scan(&st.ID, &st.BufferCount, &startTrig, &stopTrig, &startMS, &stopMS,
			&st.LastFrameID, &st.Delivered, &st.Missing, &st.LossEvents, &st.RequeueFailures, &st.StopError); err != nil {
			return nil, fmt.Errorf("journal: scan session: %w", err)
		}
		st.Trigger = stream.Trigger(startTrig)
		st.StopTrigger = stream.Trigger(stopTrig)
		st.StartedAt = time.UnixMilli(startMS).UTC()
		st.StoppedAt = time.UnixMilli(stopMS).UTC()
		out = append(out, st)
	}
	return out, rows.Err()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}
