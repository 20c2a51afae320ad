// Package apperrors defines the error taxonomy of the tracking core.
// Every rejected operation carries a Kind (how the caller should react)
// and a stable machine-readable Code (what exactly was rejected).
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for retry and HTTP-mapping purposes.
type Kind int

const (
	// KindValidation: malformed input, rejected before any state is touched
	KindValidation Kind = iota
	// KindPolicy: business-rule rejection (geofence, accuracy); retry with corrected input
	KindPolicy
	// KindStateConflict: requested transition is illegal from the current state
	KindStateConflict
	// KindNotFound: the addressed entity does not exist
	KindNotFound
	// KindConcurrency: transient lock contention; retry the whole action
	KindConcurrency
)

// Stable error codes surfaced to API clients
const (
	CodeInvalidArgument     = "INVALID_ARGUMENT"
	CodeConfigInvalid       = "CONFIG_INVALID"
	CodeOutsideGeofence     = "OUTSIDE_GEOFENCE"
	CodeAccuracyTooLow      = "ACCURACY_TOO_LOW"
	CodeAlreadyClockedIn    = "ALREADY_CLOCKED_IN"
	CodeAlreadyClockedOut   = "ALREADY_CLOCKED_OUT"
	CodeAlreadyOnLunch      = "ALREADY_ON_LUNCH"
	CodeNotCheckedIn        = "NOT_CHECKED_IN"
	CodeNotOnLunch          = "NOT_ON_LUNCH"
	CodeLunchInProgress     = "LUNCH_IN_PROGRESS"
	CodeAttendanceNotFound  = "ATTENDANCE_NOT_FOUND"
	CodeAttendanceExists    = "ATTENDANCE_EXISTS"
	CodeActiveTaskExists    = "ACTIVE_TASK_EXISTS"
	CodeTaskAlreadyTerminal = "TASK_ALREADY_TERMINAL"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeTaskNotFound        = "TASK_NOT_FOUND"
	CodeProjectNotFound     = "PROJECT_NOT_FOUND"
	CodeConcurrentUpdate    = "CONCURRENT_UPDATE"
)

// Error is the typed error returned by the tracking core.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Validation creates a KindValidation error.
func Validation(msg string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Code: CodeInvalidArgument, Message: fmt.Sprintf(msg, args...)}
}

// Policy creates a KindPolicy error with the given code.
func Policy(code, msg string, args ...interface{}) *Error {
	return &Error{Kind: KindPolicy, Code: code, Message: fmt.Sprintf(msg, args...)}
}

// Conflict creates a KindStateConflict error with the given code.
func Conflict(code, msg string, args ...interface{}) *Error {
	return &Error{Kind: KindStateConflict, Code: code, Message: fmt.Sprintf(msg, args...)}
}

// NotFound creates a KindNotFound error with the given code.
func NotFound(code, msg string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: fmt.Sprintf(msg, args...)}
}

// Concurrency creates a KindConcurrency error.
func Concurrency(msg string, args ...interface{}) *Error {
	return &Error{Kind: KindConcurrency, Code: CodeConcurrentUpdate, Message: fmt.Sprintf(msg, args...)}
}

// CodeOf returns the stable code of err, or empty when err is not an *Error.
func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// HTTPStatus maps an error to the HTTP status the API layer should emit.
func HTTPStatus(err error) int {
	var ae *Error
	if !errors.As(err, &ae) {
		return http.StatusInternalServerError
	}
	switch ae.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindPolicy:
		// Misconfiguration is the operator's fault, not the device's position
		if ae.Code == CodeConfigInvalid {
			return http.StatusBadRequest
		}
		return http.StatusForbidden
	case KindStateConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindConcurrency:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
