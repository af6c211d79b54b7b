// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/camstream/internal/device"
	"github.com/ManuGH/camstream/internal/device/sim"
)

func TestIntFeature(t *testing.T) {
	h := newHarness(t, sim.Config{})

	w := h.do(t, http.MethodPut, "/features/OffsetX/int", map[string]int64{"value": 64})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = h.do(t, http.MethodGet, "/features/OffsetX/int", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(64), decodeBody[ValueBody[int64]](t, w).Value)

	w = h.do(t, http.MethodGet, "/features/Width/int/info", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, device.IntInfo{Min: 8, Max: 4096, Inc: 8}, decodeBody[device.IntInfo](t, w))
}

func TestFeatureErrors(t *testing.T) {
	h := newHarness(t, sim.Config{})

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   device.ErrorCode
	}{
		{"unknown feature", http.MethodGet, "/features/Nope/int", nil, http.StatusNotFound, device.ErrNotFound},
		{"wrong type", http.MethodGet, "/features/Width/float", nil, http.StatusBadRequest, device.ErrWrongType},
		{"off increment", http.MethodPut, "/features/OffsetX/int", map[string]int64{"value": 3}, http.StatusBadRequest, device.ErrInvalidValue},
		{"read only", http.MethodPut, "/features/DeviceSerialNumber/string", map[string]string{"value": "x"}, http.StatusConflict, device.ErrInvalidAccess},
		{"bad json", http.MethodPut, "/features/OffsetX/int", `{"value":`, http.StatusBadRequest, device.ErrBadParameter},
		{"missing value", http.MethodPut, "/features/OffsetX/int", `{}`, http.StatusBadRequest, device.ErrBadParameter},
		{"unknown field", http.MethodPut, "/features/OffsetX/int", `{"value":8,"unit":"px"}`, http.StatusBadRequest, device.ErrBadParameter},
		{"unknown enum option", http.MethodPut, "/features/TriggerMode/enum", map[string]string{"value": "Sometimes"}, http.StatusBadRequest, device.ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := h.do(t, tt.method, tt.path, tt.body)
			requireErrorCode(t, w, tt.status, tt.code)
		})
	}
}

func TestFeatureLockedWhileStreaming(t *testing.T) {
	h := newHarness(t, sim.Config{})
	require.NoError(t, h.ctrl.StartStreaming(context.Background()))

	w := h.do(t, http.MethodPut, "/features/Width/int", map[string]int64{"value": 32})
	requireErrorCode(t, w, http.StatusConflict, device.ErrInvalidAccess)

	w = h.do(t, http.MethodGet, "/features/Width/access_mode", nil)
	require.Equal(t, http.StatusOK, w.Code)
	mode := decodeBody[device.AccessMode](t, w)
	assert.True(t, mode.Readable)
	assert.False(t, mode.Writable)

	// Unlocked features stay writable during acquisition.
	w = h.do(t, http.MethodPut, "/features/Gain/float", map[string]float64{"value": 3})
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestFloatBoolStringFeatures(t *testing.T) {
	h := newHarness(t, sim.Config{})

	w := h.do(t, http.MethodGet, "/features/AcquisitionFrameRate/float/info", nil)
	require.Equal(t, http.StatusOK, w.Code)
	info := decodeBody[device.FloatInfo](t, w)
	assert.InDelta(t, 240.0, info.Max, 1e-9)

	w = h.do(t, http.MethodPut, "/features/ReverseX/bool", map[string]bool{"value": true})
	require.Equal(t, http.StatusNoContent, w.Code)
	w = h.do(t, http.MethodGet, "/features/ReverseX/bool", nil)
	assert.True(t, decodeBody[ValueBody[bool]](t, w).Value)

	w = h.do(t, http.MethodPut, "/features/DeviceUserID/string", map[string]string{"value": "left"})
	require.Equal(t, http.StatusNoContent, w.Code)
	w = h.do(t, http.MethodGet, "/features/DeviceUserID/string", nil)
	assert.Equal(t, "left", decodeBody[ValueBody[string]](t, w).Value)

	w = h.do(t, http.MethodGet, "/features/DeviceUserID/string/info", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]int{"max_length": 64}, decodeBody[map[string]int](t, w))
}

func TestEnumAndCommandFeatures(t *testing.T) {
	h := newHarness(t, sim.Config{})

	w := h.do(t, http.MethodGet, "/features/TriggerMode/enum/info", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Off", "On"}, decodeBody[device.EnumInfo](t, w).Possible)

	w = h.do(t, http.MethodPut, "/features/TriggerMode/enum", map[string]string{"value": "On"})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
	w = h.do(t, http.MethodGet, "/features/TriggerMode/enum", nil)
	assert.Equal(t, "On", decodeBody[ValueBody[string]](t, w).Value)

	w = h.do(t, http.MethodPost, "/features/TriggerSoftware/command", nil)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
	w = h.do(t, http.MethodGet, "/features/TriggerSoftware/command/done", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeBody[ValueBody[bool]](t, w).Value)
}

func TestFeatureListAndInfoQuery(t *testing.T) {
	h := newHarness(t, sim.Config{})

	w := h.do(t, http.MethodGet, "/features/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	names := decodeBody[map[string][]string](t, w)["features"]
	assert.Contains(t, names, "Width")
	assert.Contains(t, names, "TriggerSoftware")

	w = h.do(t, http.MethodPost, "/features/info", FeatureInfoQuery{FeatureNames: []string{"Gain"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	infos := decodeBody[map[string][]device.FeatureInfo](t, w)["feature_info"]
	require.Len(t, infos, 1)
	assert.Equal(t, "Gain", infos[0].Name)
	assert.Equal(t, "dB", infos[0].Unit)

	w = h.do(t, http.MethodPost, "/features/info", FeatureInfoQuery{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody[map[string][]device.FeatureInfo](t, w)["feature_info"], len(names))

	w = h.do(t, http.MethodPost, "/features/info", FeatureInfoQuery{FeatureNames: []string{"Nope"}})
	requireErrorCode(t, w, http.StatusNotFound, device.ErrNotFound)
}

func TestEnumConversion(t *testing.T) {
	h := newHarness(t, sim.Config{})

	w := h.do(t, http.MethodGet, "/features/PixelFormat/enum/as_int?option=Mono16", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, int64(0x01100007), decodeBody[ValueBody[int64]](t, w).Value)

	w = h.do(t, http.MethodGet, "/features/PixelFormat/enum/as_string?value=0x02180014", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "RGB8", decodeBody[ValueBody[string]](t, w).Value)

	// Options without explicit values map to their position.
	w = h.do(t, http.MethodGet, "/features/TriggerMode/enum/as_int?option=On", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decodeBody[ValueBody[int64]](t, w).Value)

	// Conversion never changes the selection.
	w = h.do(t, http.MethodGet, "/features/PixelFormat/enum", nil)
	assert.Equal(t, "Mono8", decodeBody[ValueBody[string]](t, w).Value)

	tests := []struct {
		name   string
		path   string
		status int
		code   device.ErrorCode
	}{
		{"unknown option", "/features/PixelFormat/enum/as_int?option=YUV", http.StatusBadRequest, device.ErrInvalidValue},
		{"unknown value", "/features/PixelFormat/enum/as_string?value=7", http.StatusBadRequest, device.ErrInvalidValue},
		{"missing option", "/features/PixelFormat/enum/as_int", http.StatusBadRequest, device.ErrBadParameter},
		{"value not a number", "/features/PixelFormat/enum/as_string?value=Mono8", http.StatusBadRequest, device.ErrBadParameter},
		{"not an enum", "/features/Gain/enum/as_int?option=Mono8", http.StatusBadRequest, device.ErrWrongType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireErrorCode(t, h.do(t, http.MethodGet, tt.path, nil), tt.status, tt.code)
		})
	}
}

func TestRawFeature(t *testing.T) {
	h := newHarness(t, sim.Config{})

	w := h.do(t, http.MethodGet, "/features/LUTValueAll/raw/info", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]int{"max_length": 4096}, decodeBody[map[string]int](t, w))

	w = h.do(t, http.MethodPut, "/features/LUTValueAll/raw", map[string][]byte{"value": {1, 2, 3, 255}})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = h.do(t, http.MethodGet, "/features/LUTValueAll/raw", nil)
	require.Equal(t, http.StatusOK, w.Code)
	raw := decodeBody[RawBody](t, w)
	assert.Equal(t, []byte{1, 2, 3, 255}, raw.Value)
	assert.Equal(t, 4, raw.BufferSize)

	w = h.do(t, http.MethodPut, "/features/LUTValueAll/raw", map[string][]byte{"value": make([]byte, 4097)})
	requireErrorCode(t, w, http.StatusBadRequest, device.ErrInvalidValue)

	w = h.do(t, http.MethodGet, "/features/Gain/raw", nil)
	requireErrorCode(t, w, http.StatusBadRequest, device.ErrWrongType)
}
