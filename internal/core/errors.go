// internal/core/errors.go
package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Storage errors
	ErrStorageRead  = &Error{Code: "STORAGE_READ", Message: "stored value unreadable"}
	ErrStorageWrite = &Error{Code: "STORAGE_WRITE", Message: "storing value failed"}

	// Remote API errors
	ErrNetwork           = &Error{Code: "NETWORK", Message: "remote request failed"}
	ErrMalformedResponse = &Error{Code: "MALFORMED_RESPONSE", Message: "unexpected response format"}
	ErrInvalidResponse   = &Error{Code: "INVALID_RESPONSE", Message: "invalid API response"}

	// Catalog and selection errors
	ErrCoinNotFound           = &Error{Code: "COIN_NOT_FOUND", Message: "coin not found in catalog"}
	ErrNoSelection            = &Error{Code: "NO_SELECTION", Message: "no coins selected"}
	ErrSelectionLimitExceeded = &Error{Code: "SELECTION_LIMIT", Message: "selection limit reached"}
	ErrNotSelected            = &Error{Code: "NOT_SELECTED", Message: "coin is not selected"}

	// Live report errors
	ErrDataQuality     = &Error{Code: "DATA_QUALITY", Message: "no usable price"}
	ErrSessionNotFound = &Error{Code: "SESSION_NOT_FOUND", Message: "live session not found"}
	ErrSessionStopped  = &Error{Code: "SESSION_STOPPED", Message: "live session stopped"}
	ErrSessionRunning  = &Error{Code: "SESSION_RUNNING", Message: "live session already started"}
	ErrTooManySessions = &Error{Code: "TOO_MANY_SESSIONS", Message: "live session limit reached"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}
)
