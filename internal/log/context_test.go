// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContextWithRequestID(t *testing.T) {
	tests := []struct {
		name      string
		ctx       context.Context
		requestID string
		want      string
	}{
		{name: "nil context", ctx: nil, requestID: "test-id-123", want: "test-id-123"},
		{name: "background context", ctx: context.Background(), requestID: "req-456", want: "req-456"},
		{name: "empty request ID", ctx: context.Background(), requestID: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := ContextWithRequestID(tt.ctx, tt.requestID)
			require.Equal(t, tt.want, RequestIDFromContext(ctx))
		})
	}
}

func TestFromContext_NilReturnsBase(t *testing.T) {
	require.NotNil(t, FromContext(nil))
	require.Empty(t, RequestIDFromContext(nil))
	require.Empty(t, SessionIDFromContext(nil))
}

func TestWithComponentFromContext_AddsCorrelationFields(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "test"})
	t.Cleanup(func() { Configure(Config{Level: "info"}) })

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithSessionID(ctx, "sess-1")

	logger := WithComponentFromContext(ctx, "stream")
	logger.Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "stream", entry[FieldComponent])
	require.Equal(t, "req-1", entry[FieldRequestID])
	require.Equal(t, "sess-1", entry[FieldSessionID])
	require.Equal(t, "test", entry["service"])
}
