// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package device

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCodeString(t *testing.T) {
	assert.Equal(t, "Busy", ErrBusy.String())
	assert.Equal(t, "ErrorCode(-99)", ErrorCode(-99).String())
	assert.Equal(t, "camera error -24 (Busy)", ErrBusy.Error())
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{name: "nil", err: nil, want: Success},
		{name: "direct", err: ErrNotAvailable, want: ErrNotAvailable},
		{name: "wrapped", err: fmt.Errorf("start: %w", ErrResources), want: ErrResources},
		{name: "foreign", err: errors.New("boom"), want: ErrUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}
