// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by spans across the daemon.
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	DispatchOpKey     = "dispatch.op"
	DispatchDomainKey = "dispatch.domain"
	DispatchPolicyKey = "dispatch.policy"

	StreamSessionIDKey   = "stream.session_id"
	StreamBufferCountKey = "stream.buffer_count"
	StreamTriggerKey     = "stream.trigger"

	DeviceErrorCodeKey = "device.error_code"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// DispatchAttributes describes an operation executed in a concurrency domain.
func DispatchAttributes(op, domain, policy string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(DispatchOpKey, op),
		attribute.String(DispatchDomainKey, domain),
		attribute.String(DispatchPolicyKey, policy),
	}
}

// StreamAttributes describes a streaming session. Empty values are omitted.
func StreamAttributes(sessionID string, bufferCount int, trigger string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if sessionID != "" {
		attrs = append(attrs, attribute.String(StreamSessionIDKey, sessionID))
	}
	if bufferCount > 0 {
		attrs = append(attrs, attribute.Int(StreamBufferCountKey, bufferCount))
	}
	if trigger != "" {
		attrs = append(attrs, attribute.String(StreamTriggerKey, trigger))
	}
	return attrs
}

// ErrorAttributes creates error-related span attributes. A non-zero device
// code is attached when the failure came from the camera.
func ErrorAttributes(errorType string, deviceCode int32) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
	if deviceCode != 0 {
		attrs = append(attrs, attribute.Int(DeviceErrorCodeKey, int(deviceCode)))
	}
	return attrs
}
