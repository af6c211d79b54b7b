// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api exposes the camera command surface over HTTP.
//
// Feature, settings and status calls run inside their concurrency domain of
// the dispatch partition. Stream transitions and buffer count changes go
// straight to the stream controller, which dispatches them itself.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ManuGH/camstream/internal/api/middleware"
	"github.com/ManuGH/camstream/internal/device"
	"github.com/ManuGH/camstream/internal/dispatch"
	"github.com/ManuGH/camstream/internal/health"
	"github.com/ManuGH/camstream/internal/log"
	"github.com/ManuGH/camstream/internal/stream"
	"github.com/ManuGH/camstream/internal/transport"
)

// StreamController is the part of the stream controller the API drives.
type StreamController interface {
	StartStreaming(ctx context.Context) error
	StopStreaming(ctx context.Context)
	SetBufferCount(ctx context.Context, n int) error
	BufferCount() int
	State() stream.State
	Topic() string
	Session() (stream.SessionStats, bool)
}

// SessionLister reads finished sessions, newest first.
type SessionLister interface {
	List(ctx context.Context, limit int) ([]stream.SessionStats, error)
}

// FrameSource hands out frame subscriptions. Each one counts as a consumer.
type FrameSource interface {
	Subscribe(ctx context.Context, topic string) (transport.Subscriber, error)
}

// Deps are the collaborators of the API server.
type Deps struct {
	Camera    device.Camera
	Stream    StreamController
	Frames    FrameSource
	Partition *dispatch.Partition
	// Sessions is optional. Without it the session list is empty.
	Sessions SessionLister
	// Health is optional. Without it /healthz answers a bare liveness body.
	Health *health.Manager
	Stack  middleware.StackConfig
}

// Server serves the HTTP API.
type Server struct {
	cam       device.Camera
	stream    StreamController
	frames    FrameSource
	partition *dispatch.Partition
	sessions  SessionLister
	health    *health.Manager
	stack     middleware.StackConfig

	status   singleflight.Group
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// New validates deps and builds a server.
func New(deps Deps) (*Server, error) {
	switch {
	case deps.Camera == nil:
		return nil, errors.New("api: camera is required")
	case deps.Stream == nil:
		return nil, errors.New("api: stream controller is required")
	case deps.Frames == nil:
		return nil, errors.New("api: frame source is required")
	case deps.Partition == nil:
		return nil, errors.New("api: partition is required")
	}
	return &Server{
		cam:       deps.Camera,
		stream:    deps.Stream,
		frames:    deps.Frames,
		partition: deps.Partition,
		sessions:  deps.Sessions,
		health:    deps.Health,
		stack:     deps.Stack,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
		},
		logger: log.WithComponent("api"),
	}, nil
}

// Handler returns the routed handler with the middleware stack applied.
func (s *Server) Handler() http.Handler {
	r := middleware.NewRouter(s.stack)
	s.routes(r)
	return r
}

func (s *Server) routes(r chi.Router) {
	if s.health != nil {
		r.Get("/healthz", s.health.ServeHealth)
		r.Get("/readyz", s.health.ServeReady)
	} else {
		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	}
	r.Get("/status", s.handleStatus)

	r.Route("/features", func(r chi.Router) {
		r.Get("/", s.handleFeatureList)
		r.Post("/info", s.handleFeatureInfoQuery)

		r.Route("/{name}", func(r chi.Router) {
			r.Get("/access_mode", s.handleAccessMode)

			r.Get("/int", getValue(s, dispatch.OpIntGet, s.cam.IntGet))
			r.Put("/int", setValue(s, dispatch.OpIntSet, s.cam.IntSet))
			r.Get("/int/info", getInfo(s, dispatch.OpIntInfo, s.cam.IntInfo))

			r.Get("/float", getValue(s, dispatch.OpFloatGet, s.cam.FloatGet))
			r.Put("/float", setValue(s, dispatch.OpFloatSet, s.cam.FloatSet))
			r.Get("/float/info", getInfo(s, dispatch.OpFloatInfo, s.cam.FloatInfo))

			r.Get("/string", getValue(s, dispatch.OpStringGet, s.cam.StringGet))
			r.Put("/string", setValue(s, dispatch.OpStringSet, s.cam.StringSet))
			r.Get("/string/info", s.handleStringInfo)

			r.Get("/bool", getValue(s, dispatch.OpBoolGet, s.cam.BoolGet))
			r.Put("/bool", setValue(s, dispatch.OpBoolSet, s.cam.BoolSet))

			r.Get("/enum", getValue(s, dispatch.OpEnumGet, s.cam.EnumGet))
			r.Put("/enum", setValue(s, dispatch.OpEnumSet, s.cam.EnumSet))
			r.Get("/enum/info", getInfo(s, dispatch.OpEnumInfo, s.cam.EnumInfo))
			r.Get("/enum/as_int", s.handleEnumAsInt)
			r.Get("/enum/as_string", s.handleEnumAsString)

			r.Get("/raw", s.handleRawGet)
			r.Put("/raw", setValue(s, dispatch.OpRawSet, s.cam.RawSet))
			r.Get("/raw/info", s.handleRawInfo)

			r.Post("/command", s.handleCommandRun)
			r.Get("/command/done", getValue(s, dispatch.OpCommandIsDone, s.cam.CommandIsDone))
		})
	})

	r.Post("/settings/save", s.handleSettings(dispatch.OpSettingsSave, s.cam.SettingsSave))
	r.Post("/settings/load", s.handleSettings(dispatch.OpSettingsLoad, s.cam.SettingsLoad))

	r.Post("/stream/start", s.handleStreamStart)
	r.Post("/stream/stop", s.handleStreamStop)
	r.Get("/stream/sessions", s.handleSessionList)

	r.Get("/parameters/buffer_count", s.handleBufferCountGet)
	r.Put("/parameters/buffer_count", s.handleBufferCountSet)

	topic := "/" + s.stream.Topic()
	r.Get(topic, s.handleFrames)
	r.Get(topic+"/ws", s.handleFramesWS)
}
