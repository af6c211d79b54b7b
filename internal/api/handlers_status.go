// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ManuGH/camstream/internal/device"
	"github.com/ManuGH/camstream/internal/dispatch"
	"github.com/ManuGH/camstream/internal/stream"
)

const statusTimeout = 5 * time.Second

// StatusResponse is the camera description plus the stream controller view.
type StatusResponse struct {
	device.Info
	Stream StreamStatus `json:"stream"`
}

// StreamStatus describes the lifecycle controller.
type StreamStatus struct {
	State       stream.State         `json:"state"`
	BufferCount int                  `json:"buffer_count"`
	Topic       string               `json:"topic"`
	Session     *stream.SessionStats `json:"session,omitempty"`
}

func (s *Server) streamStatus() StreamStatus {
	st := StreamStatus{
		State:       s.stream.State(),
		BufferCount: s.stream.BufferCount(),
		Topic:       s.stream.Topic(),
	}
	if sess, ok := s.stream.Session(); ok {
		st.Session = &sess
	}
	return st
}

// handleStatus coalesces concurrent status reads into one device query.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	v, err, _ := s.status.Do("status", func() (any, error) {
		// Detached so one caller going away does not fail the others.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), statusTimeout)
		defer cancel()

		var info device.Info
		err := s.partition.Run(ctx, dispatch.OpStatus, func(ctx context.Context) error {
			var err error
			info, err = s.cam.Info(ctx)
			return err
		})
		return info, err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		Info:   v.(device.Info),
		Stream: s.streamStatus(),
	})
}

func (s *Server) handleSessionList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, r, fmt.Errorf("%w: invalid limit %q", errBadRequest, raw))
			return
		}
		limit = n
	}

	sessions := []stream.SessionStats{}
	if s.sessions != nil {
		err := s.partition.Run(r.Context(), dispatch.OpSessionList, func(ctx context.Context) error {
			list, err := s.sessions.List(ctx, limit)
			if err != nil {
				return err
			}
			sessions = list
			return nil
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string][]stream.SessionStats{"sessions": sessions})
}
