// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/camstream/internal/device"
	"github.com/ManuGH/camstream/internal/dispatch"
	"github.com/ManuGH/camstream/internal/log"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

// ValueBody carries a single feature value in both directions.
type ValueBody[T any] struct {
	Value T `json:"value"`
}

type setBody[T any] struct {
	Value *T `json:"value"`
}

// RawBody is the content of a raw feature.
type RawBody struct {
	Value      []byte `json:"value"`
	BufferSize int    `json:"buffer_size"`
}

// FeatureInfoQuery selects features for an info query. Empty means all.
type FeatureInfoQuery struct {
	FeatureNames []string `json:"feature_names"`
}

// decodeJSON strictly decodes a bounded request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after JSON body", errBadRequest)
	}
	return nil
}

func getValue[T any](s *Server, op dispatch.Op, get func(context.Context, string) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		var out T
		err := s.partition.Run(r.Context(), op, func(ctx context.Context) error {
			v, err := get(ctx, name)
			out = v
			return err
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ValueBody[T]{Value: out})
	}
}

func getInfo[T any](s *Server, op dispatch.Op, get func(context.Context, string) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		var out T
		err := s.partition.Run(r.Context(), op, func(ctx context.Context) error {
			v, err := get(ctx, name)
			out = v
			return err
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func setValue[T any](s *Server, op dispatch.Op, set func(context.Context, string, T) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		var body setBody[T]
		if err := decodeJSON(w, r, &body); err != nil {
			writeError(w, r, err)
			return
		}
		if body.Value == nil {
			writeError(w, r, fmt.Errorf("%w: value is required", errBadRequest))
			return
		}

		err := s.partition.Run(r.Context(), op, func(ctx context.Context) error {
			return set(ctx, name, *body.Value)
		})
		if err != nil {
			writeError(w, r, err)
			return
		}

		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Info().
			Str(log.FieldEvent, "feature.set").
			Str(log.FieldFeature, name).
			Str(log.FieldOp, string(op)).
			Interface("value", *body.Value).
			Msg("feature written")
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleStringInfo(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var maxLen int
	err := s.partition.Run(r.Context(), dispatch.OpStringInfo, func(ctx context.Context) error {
		var err error
		maxLen, err = s.cam.StringMaxLength(ctx, name)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"max_length": maxLen})
}

func (s *Server) handleEnumAsInt(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	option := r.URL.Query().Get("option")
	if option == "" {
		writeError(w, r, fmt.Errorf("%w: option is required", errBadRequest))
		return
	}
	var value int64
	err := s.partition.Run(r.Context(), dispatch.OpEnumAsInt, func(ctx context.Context) error {
		var err error
		value, err = s.cam.EnumAsInt(ctx, name, option)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ValueBody[int64]{Value: value})
}

func (s *Server) handleEnumAsString(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	value, err := strconv.ParseInt(r.URL.Query().Get("value"), 0, 64)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: value must be an integer", errBadRequest))
		return
	}
	var option string
	err = s.partition.Run(r.Context(), dispatch.OpEnumAsString, func(ctx context.Context) error {
		var err error
		option, err = s.cam.EnumAsString(ctx, name, value)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ValueBody[string]{Value: option})
}

func (s *Server) handleRawGet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var buf []byte
	err := s.partition.Run(r.Context(), dispatch.OpRawGet, func(ctx context.Context) error {
		var err error
		buf, err = s.cam.RawGet(ctx, name)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RawBody{Value: buf, BufferSize: len(buf)})
}

func (s *Server) handleRawInfo(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var maxLen int
	err := s.partition.Run(r.Context(), dispatch.OpRawInfo, func(ctx context.Context) error {
		var err error
		maxLen, err = s.cam.RawMaxLength(ctx, name)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"max_length": maxLen})
}

func (s *Server) handleCommandRun(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	err := s.partition.Run(r.Context(), dispatch.OpCommandRun, func(ctx context.Context) error {
		return s.cam.CommandRun(ctx, name)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAccessMode(w http.ResponseWriter, r *http.Request) {
	getInfo(s, dispatch.OpAccessMode, s.cam.AccessMode)(w, r)
}

func (s *Server) handleFeatureList(w http.ResponseWriter, r *http.Request) {
	var names []string
	err := s.partition.Run(r.Context(), dispatch.OpFeatureList, func(ctx context.Context) error {
		var err error
		names, err = s.cam.FeatureList(ctx)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"features": names})
}

func (s *Server) handleFeatureInfoQuery(w http.ResponseWriter, r *http.Request) {
	var q FeatureInfoQuery
	if err := decodeJSON(w, r, &q); err != nil {
		writeError(w, r, err)
		return
	}

	var infos []device.FeatureInfo
	err := s.partition.Run(r.Context(), dispatch.OpFeatureInfoQuery, func(ctx context.Context) error {
		var err error
		infos, err = s.cam.FeatureInfoQuery(ctx, q.FeatureNames)
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if infos == nil {
		infos = []device.FeatureInfo{}
	}
	writeJSON(w, http.StatusOK, map[string][]device.FeatureInfo{"feature_info": infos})
}
