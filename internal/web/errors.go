package web

// errors.go turns service errors into JSON responses.
//
// The technical error is logged with the request ID; the client receives
// the mapped user message and code from core.MapError.

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/core"
	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/logging"
	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/service"
	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/source"
	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/workpool"
)

var errNoFile = errors.New("no file provided")

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
}

// statusFor picks the HTTP status for a service error.
func statusFor(err error) int {
	var ve core.ValidationError
	var tooBig *http.MaxBytesError
	switch {
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity
	case errors.As(err, &tooBig),
		errors.Is(err, service.ErrFileTooLarge),
		errors.Is(err, source.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, source.ErrUnsupportedImageType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, source.ErrUnreadableFile),
		errors.Is(err, source.ErrMissingHeader),
		errors.Is(err, source.ErrNoDataRows),
		errors.Is(err, service.ErrMissingResident),
		errors.Is(err, errNoFile):
		return http.StatusBadRequest
	case errors.Is(err, source.ErrExtractionFailed):
		return http.StatusBadGateway
	case errors.Is(err, service.ErrSheetsNotConfigured):
		return http.StatusNotImplemented
	case errors.Is(err, workpool.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// fail responds with the status statusFor picks.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "30")
	}
	respondError(w, r, err, status)
}

// respondError logs err and writes the mapped user message.
func respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := core.MapError(err)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logging.FromContext(r.Context()).Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)

	resp := ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}
	var ve core.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}
	writeJSON(w, status, resp)
}
