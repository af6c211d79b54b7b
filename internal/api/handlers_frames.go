// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ManuGH/camstream/internal/log"
	"github.com/ManuGH/camstream/internal/transport"
)

const (
	// writeWait is how long to wait for a frame write to complete
	writeWait = 10 * time.Second
	// pongWait is how long a WebSocket consumer may stay silent
	pongWait = 60 * time.Second
	// pingPeriod must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	HeaderFrameID   = "X-Frame-Id"
	HeaderTimestamp = "X-Frame-Timestamp"
)

// handleFrames streams raw frames as multipart/x-mixed-replace. The open
// connection is one consumer of the topic.
func (s *Server) handleFrames(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	topic := s.stream.Topic()
	sub, err := s.frames.Subscribe(ctx, topic)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer func() { _ = sub.Close() }()

	logger := log.WithComponentFromContext(ctx, "api")
	logger.Info().
		Str(log.FieldEvent, "consumer.attached").
		Str(log.FieldTopic, topic).
		Str("transport", "multipart").
		Msg("frame consumer attached")

	mw := multipart.NewWriter(w)
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+mw.Boundary())
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			s.logDetached(ctx, topic, sub, "multipart")
			return
		case msg, ok := <-sub.C():
			if !ok {
				return
			}
			part, err := mw.CreatePart(textproto.MIMEHeader{
				"Content-Type":   {"application/octet-stream"},
				"Content-Length": {strconv.Itoa(len(msg.Payload))},
				HeaderFrameID:    {strconv.FormatInt(msg.FrameID, 10)},
				HeaderTimestamp:  {msg.Timestamp.UTC().Format(time.RFC3339Nano)},
			})
			if err != nil {
				return
			}
			if _, err := part.Write(msg.Payload); err != nil {
				s.logDetached(ctx, topic, sub, "multipart")
				return
			}
			flusher.Flush()
		}
	}
}

// handleFramesWS streams raw frames as binary WebSocket messages.
func (s *Server) handleFramesWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client.
		return
	}
	defer func() { _ = conn.Close() }()

	// Hijacked connections outlive the request context.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	topic := s.stream.Topic()
	sub, err := s.frames.Subscribe(ctx, topic)
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()),
			time.Now().Add(writeWait))
		return
	}
	defer func() { _ = sub.Close() }()

	logger := log.WithComponentFromContext(ctx, "api")
	logger.Info().
		Str(log.FieldEvent, "consumer.attached").
		Str(log.FieldTopic, topic).
		Str("transport", "websocket").
		Msg("frame consumer attached")

	go readPump(conn, cancel)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logDetached(ctx, topic, sub, "websocket")
			return
		case msg, ok := <-sub.C():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "stream closed"),
					time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.BinaryMessage, msg.Payload); err != nil {
				s.logDetached(ctx, topic, sub, "websocket")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logDetached(ctx, topic, sub, "websocket")
				return
			}
		}
	}
}

// readPump drains control frames and cancels when the peer goes away.
// Consumers are not expected to send data.
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) logDetached(ctx context.Context, topic string, sub transport.Subscriber, kind string) {
	logger := log.WithComponentFromContext(ctx, "api")
	logger.Info().
		Str(log.FieldEvent, "consumer.detached").
		Str(log.FieldTopic, topic).
		Str("transport", kind).
		Uint64("dropped", sub.Dropped()).
		Msgf("frame consumer detached after %d dropped frames", sub.Dropped())
}
