// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sim

import (
	"context"
	"sort"
	"sync"

	"github.com/ManuGH/camstream/internal/device"
)

const (
	featWidth         = "Width"
	featHeight        = "Height"
	featPixelFormat   = "PixelFormat"
	featFrameRate     = "AcquisitionFrameRate"
	featTriggerMode   = "TriggerMode"
	featTriggerSource = "TriggerSource"
	featTriggerSW     = "TriggerSoftware"
	featDeviceUserID  = "DeviceUserID"
	featSerialNumber  = "DeviceSerialNumber"
	featLUT           = "LUTValueAll"
)

type kind int

const (
	kindInt kind = iota
	kindFloat
	kindString
	kindBool
	kindEnum
	kindCommand
	kindRaw
)

func (k kind) String() string {
	switch k {
	case kindInt:
		return "Int"
	case kindFloat:
		return "Float"
	case kindString:
		return "String"
	case kindBool:
		return "Bool"
	case kindEnum:
		return "Enum"
	case kindCommand:
		return "Command"
	case kindRaw:
		return "Raw"
	default:
		return "Unknown"
	}
}

// feature is one node of the simulated feature tree. Each feature carries
// its own lock so distinct features never contend.
type feature struct {
	name        string
	category    string
	displayName string
	unit        string
	kind        kind
	writable    bool
	volatile    bool
	// locked features reject writes while an acquisition runs.
	locked bool

	mu        sync.Mutex
	intVal    int64
	intInfo   device.IntInfo
	floatVal  float64
	floatInfo device.FloatInfo
	strVal    string
	maxLen    int
	boolVal   bool
	enumOpts  []string
	// enumVals holds the integer value of each option; nil means the index.
	enumVals []int64
	rawVal   []byte
}

func (f *feature) enumValue(i int) int64 {
	if f.enumVals != nil {
		return f.enumVals[i]
	}
	return int64(i)
}

func defaultFeatures(id string) map[string]*feature {
	list := []*feature{
		{name: featWidth, category: "ImageFormatControl", displayName: "Width", kind: kindInt, writable: true, locked: true,
			intVal: 640, intInfo: device.IntInfo{Min: 8, Max: 4096, Inc: 8}},
		{name: featHeight, category: "ImageFormatControl", displayName: "Height", kind: kindInt, writable: true, locked: true,
			intVal: 480, intInfo: device.IntInfo{Min: 8, Max: 3072, Inc: 2}},
		{name: "OffsetX", category: "ImageFormatControl", displayName: "Offset X", kind: kindInt, writable: true,
			intVal: 0, intInfo: device.IntInfo{Min: 0, Max: 4088, Inc: 8}},
		{name: featPixelFormat, category: "ImageFormatControl", displayName: "Pixel Format", kind: kindEnum, writable: true, locked: true,
			strVal: "Mono8", enumOpts: []string{"Mono8", "Mono16", "RGB8", "BGR8"},
			enumVals: []int64{0x01080001, 0x01100007, 0x02180014, 0x02180015}},
		{name: "ReverseX", category: "ImageFormatControl", displayName: "Reverse X", kind: kindBool, writable: true},
		{name: featFrameRate, category: "AcquisitionControl", displayName: "Acquisition Frame Rate", unit: "Hz", kind: kindFloat, writable: true,
			floatVal: 30, floatInfo: device.FloatInfo{Min: 1, Max: 240}},
		{name: "ExposureTime", category: "AcquisitionControl", displayName: "Exposure Time", unit: "us", kind: kindFloat, writable: true,
			floatVal: 5000, floatInfo: device.FloatInfo{Min: 10, Max: 1e6, Inc: 1, IncAvailable: true}},
		{name: "Gain", category: "AnalogControl", displayName: "Gain", unit: "dB", kind: kindFloat, writable: true,
			floatVal: 0, floatInfo: device.FloatInfo{Min: 0, Max: 24, Inc: 0.1, IncAvailable: true}},
		{name: featTriggerMode, category: "AcquisitionControl", displayName: "Trigger Mode", kind: kindEnum, writable: true,
			strVal: "Off", enumOpts: []string{"Off", "On"}},
		{name: featTriggerSource, category: "AcquisitionControl", displayName: "Trigger Source", kind: kindEnum, writable: true,
			strVal: "Software", enumOpts: []string{"Software", "Line0", "Line1"}},
		{name: featTriggerSW, category: "AcquisitionControl", displayName: "Trigger Software", kind: kindCommand, writable: true},
		{name: featDeviceUserID, category: "DeviceControl", displayName: "Device User ID", kind: kindString, writable: true,
			maxLen: 64},
		{name: featSerialNumber, category: "DeviceControl", displayName: "Device Serial Number", kind: kindString,
			strVal: "SIM-" + id, maxLen: 64},
		{name: "DeviceTemperature", category: "DeviceControl", displayName: "Device Temperature", unit: "C", kind: kindFloat, volatile: true,
			floatVal: 42.5, floatInfo: device.FloatInfo{Min: -40, Max: 120}},
		{name: featLUT, category: "LUTControl", displayName: "LUT Value All", kind: kindRaw, writable: true,
			rawVal: make([]byte, 256), maxLen: 4096},
	}
	out := make(map[string]*feature, len(list))
	for _, f := range list {
		out[f.name] = f
	}
	return out
}

func (c *Camera) lookup(name string, want kind) (*feature, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	f, ok := c.features[name]
	if !ok {
		return nil, device.ErrNotFound
	}
	if f.kind != want {
		return nil, device.ErrWrongType
	}
	return f, nil
}

func (c *Camera) lookupWritable(name string, want kind) (*feature, error) {
	f, err := c.lookup(name, want)
	if err != nil {
		return nil, err
	}
	if !f.writable || (f.locked && c.IsStreaming()) {
		return nil, device.ErrInvalidAccess
	}
	return f, nil
}

func (c *Camera) IntGet(_ context.Context, name string) (int64, error) {
	f, err := c.lookup(name, kindInt)
	if err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.intVal, nil
}

func (c *Camera) IntSet(_ context.Context, name string, value int64) error {
	f, err := c.lookupWritable(name, kindInt)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	info := f.intInfo
	if value < info.Min || value > info.Max {
		return device.ErrInvalidValue
	}
	if info.Inc > 1 && (value-info.Min)%info.Inc != 0 {
		return device.ErrInvalidValue
	}
	f.intVal = value
	return nil
}

func (c *Camera) IntInfo(_ context.Context, name string) (device.IntInfo, error) {
	f, err := c.lookup(name, kindInt)
	if err != nil {
		return device.IntInfo{}, err
	}
	return f.intInfo, nil
}

func (c *Camera) FloatGet(_ context.Context, name string) (float64, error) {
	f, err := c.lookup(name, kindFloat)
	if err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.floatVal, nil
}

func (c *Camera) FloatSet(_ context.Context, name string, value float64) error {
	f, err := c.lookupWritable(name, kindFloat)
	if err != nil {
		return err
	}
	f.mu.Lock()
	if value < f.floatInfo.Min || value > f.floatInfo.Max {
		f.mu.Unlock()
		return device.ErrInvalidValue
	}
	f.floatVal = value
	f.mu.Unlock()

	if name == featFrameRate {
		c.retime(value)
	}
	return nil
}

func (c *Camera) FloatInfo(_ context.Context, name string) (device.FloatInfo, error) {
	f, err := c.lookup(name, kindFloat)
	if err != nil {
		return device.FloatInfo{}, err
	}
	return f.floatInfo, nil
}

func (c *Camera) StringGet(_ context.Context, name string) (string, error) {
	f, err := c.lookup(name, kindString)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.strVal, nil
}

func (c *Camera) StringSet(_ context.Context, name string, value string) error {
	f, err := c.lookupWritable(name, kindString)
	if err != nil {
		return err
	}
	if len(value) > f.maxLen {
		return device.ErrInvalidValue
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.strVal = value
	return nil
}

func (c *Camera) StringMaxLength(_ context.Context, name string) (int, error) {
	f, err := c.lookup(name, kindString)
	if err != nil {
		return 0, err
	}
	return f.maxLen, nil
}

func (c *Camera) BoolGet(_ context.Context, name string) (bool, error) {
	f, err := c.lookup(name, kindBool)
	if err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.boolVal, nil
}

func (c *Camera) BoolSet(_ context.Context, name string, value bool) error {
	f, err := c.lookupWritable(name, kindBool)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boolVal = value
	return nil
}

func (c *Camera) EnumGet(_ context.Context, name string) (string, error) {
	f, err := c.lookup(name, kindEnum)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.strVal, nil
}

func (c *Camera) EnumSet(_ context.Context, name string, value string) error {
	f, err := c.lookupWritable(name, kindEnum)
	if err != nil {
		return err
	}
	for _, opt := range f.enumOpts {
		if opt == value {
			f.mu.Lock()
			f.strVal = value
			f.mu.Unlock()
			return nil
		}
	}
	return device.ErrInvalidValue
}

func (c *Camera) EnumInfo(_ context.Context, name string) (device.EnumInfo, error) {
	f, err := c.lookup(name, kindEnum)
	if err != nil {
		return device.EnumInfo{}, err
	}
	opts := append([]string(nil), f.enumOpts...)
	return device.EnumInfo{Possible: opts, Available: append([]string(nil), opts...)}, nil
}

func (c *Camera) EnumAsInt(_ context.Context, name, option string) (int64, error) {
	f, err := c.lookup(name, kindEnum)
	if err != nil {
		return 0, err
	}
	for i, opt := range f.enumOpts {
		if opt == option {
			return f.enumValue(i), nil
		}
	}
	return 0, device.ErrInvalidValue
}

func (c *Camera) EnumAsString(_ context.Context, name string, value int64) (string, error) {
	f, err := c.lookup(name, kindEnum)
	if err != nil {
		return "", err
	}
	for i, opt := range f.enumOpts {
		if f.enumValue(i) == value {
			return opt, nil
		}
	}
	return "", device.ErrInvalidValue
}

func (c *Camera) RawGet(_ context.Context, name string) ([]byte, error) {
	f, err := c.lookup(name, kindRaw)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.rawVal...), nil
}

// RawSet replaces the raw buffer. The caller keeps ownership of value.
func (c *Camera) RawSet(_ context.Context, name string, value []byte) error {
	f, err := c.lookupWritable(name, kindRaw)
	if err != nil {
		return err
	}
	if len(value) > f.maxLen {
		return device.ErrInvalidValue
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rawVal = append([]byte(nil), value...)
	return nil
}

func (c *Camera) RawMaxLength(_ context.Context, name string) (int, error) {
	f, err := c.lookup(name, kindRaw)
	if err != nil {
		return 0, err
	}
	return f.maxLen, nil
}

// CommandRun executes a command feature. Commands complete synchronously.
func (c *Camera) CommandRun(_ context.Context, name string) error {
	if _, err := c.lookupWritable(name, kindCommand); err != nil {
		return err
	}
	if name == featTriggerSW {
		c.softwareTrigger()
	}
	return nil
}

func (c *Camera) CommandIsDone(_ context.Context, name string) (bool, error) {
	if _, err := c.lookup(name, kindCommand); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Camera) AccessMode(_ context.Context, name string) (device.AccessMode, error) {
	if err := c.checkOpen(); err != nil {
		return device.AccessMode{}, err
	}
	f, ok := c.features[name]
	if !ok {
		return device.AccessMode{}, device.ErrNotFound
	}
	return device.AccessMode{
		Readable: f.kind != kindCommand,
		Writable: f.writable && !(f.locked && c.IsStreaming()),
	}, nil
}

// FeatureInfoQuery describes the named features, or every feature when
// names is empty.
func (c *Camera) FeatureInfoQuery(ctx context.Context, names []string) ([]device.FeatureInfo, error) {
	if len(names) == 0 {
		all, err := c.FeatureList(ctx)
		if err != nil {
			return nil, err
		}
		names = all
	}
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	out := make([]device.FeatureInfo, 0, len(names))
	for _, name := range names {
		f, ok := c.features[name]
		if !ok {
			return nil, device.ErrNotFound
		}
		out = append(out, device.FeatureInfo{
			Name:          f.name,
			Category:      "/" + f.category,
			DisplayName:   f.displayName,
			SFNCNamespace: "Standard",
			Unit:          f.unit,
			DataType:      f.kind.String(),
			Flags: device.FeatureFlags{
				Read:     f.kind != kindCommand,
				Write:    f.writable,
				Volatile: f.volatile,
			},
		})
	}
	return out, nil
}

func (c *Camera) FeatureList(_ context.Context) ([]string, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(c.features))
	for name := range c.features {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func bytesPerPixel(format string) int64 {
	switch format {
	case "Mono16":
		return 2
	case "RGB8", "BGR8":
		return 3
	default:
		return 1
	}
}
