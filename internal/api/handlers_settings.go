// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ManuGH/camstream/internal/dispatch"
	"github.com/ManuGH/camstream/internal/log"
)

// SettingsRequest names the settings file to save to or load from.
type SettingsRequest struct {
	Filename string `json:"filename"`
}

func (s *Server) handleSettings(op dispatch.Op, fn func(context.Context, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SettingsRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if strings.TrimSpace(req.Filename) == "" {
			writeError(w, r, fmt.Errorf("%w: filename is required", errBadRequest))
			return
		}

		err := s.partition.Run(r.Context(), op, func(ctx context.Context) error {
			return fn(ctx, req.Filename)
		})
		logger := log.WithComponentFromContext(r.Context(), "api")
		if err != nil {
			logger.Warn().
				Err(err).
				Str(log.FieldEvent, "settings.failed").
				Str(log.FieldOp, string(op)).
				Str(log.FieldPath, req.Filename).
				Msg("settings operation failed")
			writeError(w, r, err)
			return
		}
		logger.Info().
			Str(log.FieldEvent, "settings.done").
			Str(log.FieldOp, string(op)).
			Str(log.FieldPath, req.Filename).
			Msg("settings operation completed")
		w.WriteHeader(http.StatusNoContent)
	}
}
