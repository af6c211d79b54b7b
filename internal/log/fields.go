// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID = "session_id"
	FieldRequestID = "request_id"
	FieldCameraID  = "camera_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldDomain    = "domain"
	FieldOp        = "op"

	// Stream fields
	FieldBufferCount = "buffer_count"
	FieldFrameID     = "frame_id"
	FieldMissing     = "missing"
	FieldConsumers   = "consumers"
	FieldTopic       = "topic"
	FieldErrorCode   = "error_code"

	// Feature fields
	FieldFeature = "feature"
	FieldPath    = "path"

	// Server fields
	FieldAddr       = "addr"
	FieldDurationMS = "duration_ms"

	// State fields
	FieldState    = "state"
	FieldOldState = "old_state"
	FieldNewState = "new_state"
)
