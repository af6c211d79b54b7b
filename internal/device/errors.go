// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package device

import (
	"errors"
	"fmt"
)

// ErrorCode is a result code reported by the camera API.
// Zero means success; every failure is negative.
type ErrorCode int32

const (
	Success            ErrorCode = 0
	ErrInternalFault   ErrorCode = -1
	ErrApiNotStarted   ErrorCode = -2
	ErrNotFound        ErrorCode = -3
	ErrBadHandle       ErrorCode = -4
	ErrDeviceNotOpen   ErrorCode = -5
	ErrInvalidAccess   ErrorCode = -6
	ErrBadParameter    ErrorCode = -7
	ErrWrongType       ErrorCode = -10
	ErrInvalidValue    ErrorCode = -11
	ErrTimeout         ErrorCode = -12
	ErrOther           ErrorCode = -13
	ErrResources       ErrorCode = -14
	ErrInvalidCall     ErrorCode = -15
	ErrNotImplemented  ErrorCode = -17
	ErrNotSupported    ErrorCode = -18
	ErrIncomplete      ErrorCode = -19
	ErrIO              ErrorCode = -20
	ErrBusy            ErrorCode = -24
	ErrNoData          ErrorCode = -25
	ErrInUse           ErrorCode = -27
	ErrUnknown         ErrorCode = -28
	ErrNotAvailable    ErrorCode = -30
	ErrAlready         ErrorCode = -33
	ErrInsufficientBuf ErrorCode = -41
)

var codeNames = map[ErrorCode]string{
	Success:            "Success",
	ErrInternalFault:   "InternalFault",
	ErrApiNotStarted:   "ApiNotStarted",
	ErrNotFound:        "NotFound",
	ErrBadHandle:       "BadHandle",
	ErrDeviceNotOpen:   "DeviceNotOpen",
	ErrInvalidAccess:   "InvalidAccess",
	ErrBadParameter:    "BadParameter",
	ErrWrongType:       "WrongType",
	ErrInvalidValue:    "InvalidValue",
	ErrTimeout:         "Timeout",
	ErrOther:           "Other",
	ErrResources:       "Resources",
	ErrInvalidCall:     "InvalidCall",
	ErrNotImplemented:  "NotImplemented",
	ErrNotSupported:    "NotSupported",
	ErrIncomplete:      "Incomplete",
	ErrIO:              "IO",
	ErrBusy:            "Busy",
	ErrNoData:          "NoData",
	ErrInUse:           "InUse",
	ErrUnknown:         "Unknown",
	ErrNotAvailable:    "NotAvailable",
	ErrAlready:         "Already",
	ErrInsufficientBuf: "InsufficientBufferCount",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ErrorCode(%d)", int32(c))
}

func (c ErrorCode) Error() string {
	return fmt.Sprintf("camera error %d (%s)", int32(c), c.String())
}

// CodeOf extracts the device error code carried by err.
// Nil maps to Success, errors without a code map to ErrUnknown.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return Success
	}
	var code ErrorCode
	if errors.As(err, &code) {
		return code
	}
	return ErrUnknown
}
