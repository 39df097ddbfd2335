package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/newthinker/cryptodash/internal/core"
)

// Meta contains response metadata.
type Meta struct {
	Timestamp time.Time `json:"timestamp"`
}

// SuccessResponse is the standard success response format.
type SuccessResponse struct {
	Data any  `json:"data"`
	Meta Meta `json:"meta"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   string `json:"cause,omitempty"`
}

// ErrorResponse is the standard error response format. Details carries
// data the client needs to recover, such as the replace dialog.
type ErrorResponse struct {
	Error   ErrorDetail `json:"error"`
	Details any         `json:"details,omitempty"`
}

// JSON writes a success response with data.
func JSON(w http.ResponseWriter, status int, data any) {
	resp := SuccessResponse{
		Data: data,
		Meta: Meta{Timestamp: time.Now().UTC()},
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// Error writes an error response.
func Error(w http.ResponseWriter, status int, err error) {
	ErrorWithDetails(w, status, err, nil)
}

// ErrorWithDetails writes an error response carrying extra data.
func ErrorWithDetails(w http.ResponseWriter, status int, err error, details any) {
	resp := ErrorResponse{Error: detailOf(err), Details: details}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// Fail writes err with the status its code maps to.
func Fail(w http.ResponseWriter, err error) {
	Error(w, StatusFor(err), err)
}

func detailOf(err error) ErrorDetail {
	detail := ErrorDetail{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
	}

	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		detail.Code = coreErr.Code
		detail.Message = coreErr.Message
		if coreErr.Cause != nil {
			detail.Cause = coreErr.Cause.Error()
		}
	}
	return detail
}

// StatusFor maps an error code to an HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, core.ErrCoinNotFound),
		errors.Is(err, core.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrSelectionLimitExceeded),
		errors.Is(err, core.ErrNotSelected),
		errors.Is(err, core.ErrNoSelection),
		errors.Is(err, core.ErrSessionRunning),
		errors.Is(err, core.ErrSessionStopped):
		return http.StatusConflict
	case errors.Is(err, core.ErrConfigInvalid),
		errors.Is(err, core.ErrConfigMissing):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNetwork),
		errors.Is(err, core.ErrMalformedResponse),
		errors.Is(err, core.ErrInvalidResponse),
		errors.Is(err, core.ErrDataQuality):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrTooManySessions):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
