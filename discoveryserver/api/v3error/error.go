// Package v3error describes errors returned by the discovery store and server.
package v3error

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
)

var errorMessages = map[int]string{
	EcodeInvalidArgument: "Invalid argument",
	EcodeNodeNotFound:    "Node not found",
	EcodeNodeExist:       "Node already exists",
	EcodeCorrupt:         "Snapshot corrupt",
	EcodeQuotaExceeded:   "Snapshot quota exceeded",
	EcodeUnavailable:     "Server unavailable",
	EcodeInternal:        "Internal error",
}

var errorCodes = map[int]codes.Code{
	EcodeInvalidArgument: codes.InvalidArgument,
	EcodeNodeNotFound:    codes.NotFound,
	EcodeNodeExist:       codes.AlreadyExists,
	EcodeCorrupt:         codes.DataLoss,
	EcodeQuotaExceeded:   codes.ResourceExhausted,
	EcodeUnavailable:     codes.Unavailable,
	EcodeInternal:        codes.Internal,
}

const (
	EcodeInvalidArgument = 100
	EcodeNodeNotFound    = 101
	EcodeNodeExist       = 102
	EcodeCorrupt         = 103
	EcodeQuotaExceeded   = 104

	EcodeUnavailable = 300
	EcodeInternal    = 301
)

type Error struct {
	ErrorCode int    `json:"errorCode"`
	Message   string `json:"message"`
	Cause     string `json:"cause,omitempty"`
}

func NewError(errorCode int, cause string) *Error {
	return &Error{
		ErrorCode: errorCode,
		Message:   errorMessages[errorCode],
		Cause:     cause,
	}
}

// Errorf is NewError with a formatted cause.
func Errorf(errorCode int, format string, args ...interface{}) *Error {
	return NewError(errorCode, fmt.Sprintf(format, args...))
}

// Error is for the error interface
func (e Error) Error() string {
	if e.Cause == "" {
		return e.Message
	}
	return e.Message + " (" + e.Cause + ")"
}

// Code returns the status code for the error.
func (e Error) Code() codes.Code {
	if c, ok := errorCodes[e.ErrorCode]; ok {
		return c
	}
	return codes.Unknown
}

// Is matches any *Error with the same ErrorCode, so sentinel-style checks work:
//
//	errors.Is(err, v3error.NewError(v3error.EcodeNodeNotFound, ""))
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.ErrorCode == e.ErrorCode
}

// Code maps any error to a status code. nil is OK; unknown errors are Internal.
func Code(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code()
	}
	return codes.Internal
}

// IsCode reports whether err is an *Error carrying errorCode.
func IsCode(err error, errorCode int) bool {
	var e *Error
	return errors.As(err, &e) && e.ErrorCode == errorCode
}
