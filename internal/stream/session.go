// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stream

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// noFrame is the last-seen frame ID of a session that has not seen a frame.
const noFrame int64 = -1

// Session is the record of one acquisition period. It is created by a
// successful start and closed by the stop that ends it.
type Session struct {
	ID          string
	BufferCount int
	Trigger     Trigger
	StartedAt   time.Time

	lastFrameID     atomic.Int64
	delivered       atomic.Int64
	missing         atomic.Int64
	lossEvents      atomic.Int64
	requeueFailures atomic.Int64
}

func newSession(bufferCount int, trigger Trigger) *Session {
	s := &Session{
		ID:          uuid.NewString(),
		BufferCount: bufferCount,
		Trigger:     trigger,
		StartedAt:   time.Now().UTC(),
	}
	s.lastFrameID.Store(noFrame)
	return s
}

// SessionStats is a point-in-time copy of a session.
type SessionStats struct {
	ID              string    `json:"id"`
	BufferCount     int       `json:"buffer_count"`
	Trigger         Trigger   `json:"trigger"`
	StartedAt       time.Time `json:"started_at"`
	StoppedAt       time.Time `json:"stopped_at,omitzero"`
	StopTrigger     Trigger   `json:"stop_trigger,omitempty"`
	StopError       string    `json:"stop_error,omitempty"`
	LastFrameID     int64     `json:"last_frame_id"`
	Delivered       int64     `json:"frames_delivered"`
	Missing         int64     `json:"frames_missing"`
	LossEvents      int64     `json:"loss_events"`
	RequeueFailures int64     `json:"requeue_failures"`
}

// Stats snapshots the session counters.
func (s *Session) Stats() SessionStats {
	return SessionStats{
		ID:              s.ID,
		BufferCount:     s.BufferCount,
		Trigger:         s.Trigger,
		StartedAt:       s.StartedAt,
		LastFrameID:     s.lastFrameID.Load(),
		Delivered:       s.delivered.Load(),
		Missing:         s.missing.Load(),
		LossEvents:      s.lossEvents.Load(),
		RequeueFailures: s.requeueFailures.Load(),
	}
}
