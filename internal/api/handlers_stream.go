// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ManuGH/camstream/internal/stream"
)

// ParameterValue is the current value of a daemon parameter.
type ParameterValue struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// SetParameterResult mirrors a parameter-set callback result.
type SetParameterResult struct {
	Successful bool   `json:"successful"`
	Reason     string `json:"reason,omitempty"`
}

// Stream transitions call the controller directly. It runs them inside the
// stream domain itself, so wrapping them here would enter it twice.

func (s *Server) handleStreamStart(w http.ResponseWriter, r *http.Request) {
	if err := s.stream.StartStreaming(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.streamStatus())
}

func (s *Server) handleStreamStop(w http.ResponseWriter, r *http.Request) {
	s.stream.StopStreaming(r.Context())
	writeJSON(w, http.StatusOK, s.streamStatus())
}

func (s *Server) handleBufferCountGet(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ParameterValue{Name: "buffer_count", Value: s.stream.BufferCount()})
}

func (s *Server) handleBufferCountSet(w http.ResponseWriter, r *http.Request) {
	var body setBody[int]
	if err := decodeJSON(w, r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, SetParameterResult{Reason: err.Error()})
		return
	}
	if body.Value == nil {
		writeJSON(w, http.StatusBadRequest, SetParameterResult{
			Reason: fmt.Errorf("%w: value is required", errBadRequest).Error(),
		})
		return
	}

	err := s.stream.SetBufferCount(r.Context(), *body.Value)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, SetParameterResult{Successful: true})
	case errors.Is(err, stream.ErrReconfigureWhileStreaming):
		writeJSON(w, http.StatusConflict, SetParameterResult{Reason: err.Error()})
	case errors.Is(err, stream.ErrInvalidBufferCount):
		writeJSON(w, http.StatusBadRequest, SetParameterResult{Reason: err.Error()})
	default:
		writeJSON(w, httpStatus(errorCode(err)), SetParameterResult{Reason: err.Error()})
	}
}
