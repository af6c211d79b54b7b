// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/camstream/internal/device"
	"github.com/ManuGH/camstream/internal/dispatch"
	"github.com/ManuGH/camstream/internal/log"
	"github.com/ManuGH/camstream/internal/stream"
)

// ErrorBody is the JSON error envelope of every failed call.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the camera result code and its name.
type ErrorDetail struct {
	Code int32  `json:"code"`
	Text string `json:"text"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a camera result code and an HTTP status.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errorCode(err)
	status := httpStatus(code)
	if status >= http.StatusInternalServerError {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "api.request_failed").
			Int32(log.FieldErrorCode, int32(code)).
			Str(log.FieldPath, r.URL.Path).
			Msg("request failed")
	}
	writeJSON(w, status, ErrorBody{Error: ErrorDetail{Code: int32(code), Text: code.String()}})
}

// errorCode resolves errors without a device code to the closest one.
func errorCode(err error) device.ErrorCode {
	var code device.ErrorCode
	switch {
	case errors.As(err, &code):
		return code
	case errors.Is(err, stream.ErrNotIdle):
		return device.ErrAlready
	case errors.Is(err, stream.ErrClosed):
		return device.ErrDeviceNotOpen
	case errors.Is(err, errBadRequest):
		return device.ErrBadParameter
	case errors.Is(err, context.DeadlineExceeded):
		return device.ErrTimeout
	case errors.Is(err, context.Canceled):
		return device.ErrBusy
	case errors.Is(err, dispatch.ErrUnpinned), errors.Is(err, dispatch.ErrUnknownDomain):
		return device.ErrInternalFault
	}
	return device.ErrUnknown
}

func httpStatus(code device.ErrorCode) int {
	switch code {
	case device.Success:
		return http.StatusOK
	case device.ErrNotFound:
		return http.StatusNotFound
	case device.ErrBadParameter, device.ErrWrongType, device.ErrInvalidValue, device.ErrInsufficientBuf:
		return http.StatusBadRequest
	case device.ErrInvalidAccess, device.ErrInvalidCall, device.ErrAlready, device.ErrInUse:
		return http.StatusConflict
	case device.ErrNotSupported, device.ErrNotImplemented:
		return http.StatusNotImplemented
	case device.ErrTimeout:
		return http.StatusGatewayTimeout
	case device.ErrBusy, device.ErrDeviceNotOpen, device.ErrNotAvailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
