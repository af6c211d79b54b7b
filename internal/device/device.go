// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package device defines the contract of an opened camera.
//
// A Handle owns the connection to the physical device and is the single
// source of truth for its streaming state. Frames delivered by a Handle are
// on loan: the receiver must call Requeue before the underlying buffer can be
// filled again.
package device

import (
	"context"
	"time"
)

// Frame is one delivered image buffer.
type Frame interface {
	ID() int64
	Timestamp() time.Time
	// Payload is only valid until Requeue is called.
	Payload() []byte
	Requeue() error
}

// FrameHandler receives completed frames on the acquisition goroutine.
// Frames are delivered one at a time, in production order.
type FrameHandler func(Frame)

// Handle is the streaming surface of an opened camera.
type Handle interface {
	StartStreaming(ctx context.Context, bufferCount int, onFrame FrameHandler) error
	StopStreaming(ctx context.Context) error
	IsStreaming() bool
	Close() error
}

// IntInfo is the value range of an integer feature.
type IntInfo struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
	Inc int64 `json:"inc"`
}

// FloatInfo is the value range of a float feature.
type FloatInfo struct {
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Inc          float64 `json:"inc"`
	IncAvailable bool    `json:"inc_available"`
}

// EnumInfo lists the options of an enumeration feature.
type EnumInfo struct {
	Possible  []string `json:"possible_values"`
	Available []string `json:"available_values"`
}

// AccessMode reports whether a feature can currently be read or written.
type AccessMode struct {
	Readable bool `json:"is_readable"`
	Writable bool `json:"is_writeable"`
}

// FeatureFlags mirrors the static flags of a feature.
type FeatureFlags struct {
	Read        bool `json:"flag_read"`
	Write       bool `json:"flag_write"`
	Volatile    bool `json:"flag_volatile"`
	ModifyWrite bool `json:"flag_modify_write"`
}

// FeatureInfo is the static description of a feature.
type FeatureInfo struct {
	Name          string       `json:"name"`
	Category      string       `json:"category"`
	DisplayName   string       `json:"display_name"`
	SFNCNamespace string       `json:"sfnc_namespace"`
	Unit          string       `json:"unit"`
	DataType      string       `json:"data_type"`
	Flags         FeatureFlags `json:"flags"`
	PollingTime   uint32       `json:"polling_time"`
}

// Features gives typed access to the camera feature tree.
// Implementations must tolerate concurrent calls on distinct features.
type Features interface {
	IntGet(ctx context.Context, name string) (int64, error)
	IntSet(ctx context.Context, name string, value int64) error
	IntInfo(ctx context.Context, name string) (IntInfo, error)

	FloatGet(ctx context.Context, name string) (float64, error)
	FloatSet(ctx context.Context, name string, value float64) error
	FloatInfo(ctx context.Context, name string) (FloatInfo, error)

	StringGet(ctx context.Context, name string) (string, error)
	StringSet(ctx context.Context, name string, value string) error
	StringMaxLength(ctx context.Context, name string) (int, error)

	BoolGet(ctx context.Context, name string) (bool, error)
	BoolSet(ctx context.Context, name string, value bool) error

	EnumGet(ctx context.Context, name string) (string, error)
	EnumSet(ctx context.Context, name string, value string) error
	EnumInfo(ctx context.Context, name string) (EnumInfo, error)
	// EnumAsInt and EnumAsString convert between an option name and its
	// integer value without touching the current selection.
	EnumAsInt(ctx context.Context, name, option string) (int64, error)
	EnumAsString(ctx context.Context, name string, value int64) (string, error)

	RawGet(ctx context.Context, name string) ([]byte, error)
	RawSet(ctx context.Context, name string, value []byte) error
	RawMaxLength(ctx context.Context, name string) (int, error)

	CommandRun(ctx context.Context, name string) error
	CommandIsDone(ctx context.Context, name string) (bool, error)

	AccessMode(ctx context.Context, name string) (AccessMode, error)
	FeatureInfoQuery(ctx context.Context, names []string) ([]FeatureInfo, error)
	FeatureList(ctx context.Context) ([]string, error)
}

// Settings persists and restores the writable feature values.
type Settings interface {
	SettingsSave(ctx context.Context, path string) error
	SettingsLoad(ctx context.Context, path string) error
}

// Info is the aggregate description of the camera and its current mode.
type Info struct {
	DisplayName        string  `json:"display_name"`
	ModelName          string  `json:"model_name"`
	FirmwareVersion    string  `json:"device_firmware_version"`
	DeviceID           string  `json:"device_id"`
	DeviceUserID       string  `json:"device_user_id"`
	DeviceSerialNumber string  `json:"device_serial_number"`
	InterfaceID        string  `json:"interface_id"`
	TransportLayerID   string  `json:"transport_layer_id"`
	Streaming          bool    `json:"streaming"`
	Width              int64   `json:"width"`
	Height             int64   `json:"height"`
	FrameRate          float64 `json:"frame_rate"`
	PixelFormat        string  `json:"pixel_format"`
	TriggerMode        string  `json:"trigger_mode"`
	TriggerSource      string  `json:"trigger_source"`
	IPAddress          *string `json:"ip_address,omitempty"`
	MACAddress         *string `json:"mac_address,omitempty"`
}

// Camera is a fully featured opened device.
type Camera interface {
	Handle
	Features
	Settings
	Info(ctx context.Context) (Info, error)
}
