package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err, statusCode), or statusFor(err) picks the code
//  3. Error is mapped via core.MapError to get a user-friendly message
//  4. Technical error + context is logged with the request ID for correlation
//  5. User message is rendered as JSON for API routes, plain text otherwise

import (
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/cardimport/internal/core"
	"github.com/JonMunkholm/cardimport/internal/logging"
	"github.com/JonMunkholm/cardimport/internal/store"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

var (
	errRateLimited = errors.New("rate limit exceeded")
	errBadForm     = errors.New("invalid form")
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	// Added is set when an import failed after notes were already written.
	Added *int `json:"added,omitempty"`
}

// statusFor maps engine and store errors to HTTP status codes.
func statusFor(err error) int {
	var emitErr *core.RecordEmitError
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs), errors.Is(err, errBadForm):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNoFile), errors.Is(err, core.ErrUnreadable):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrImportBusy):
		return http.StatusServiceUnavailable
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &emitErr):
		return http.StatusInternalServerError
	case errors.Is(err, core.ErrEmptyInput),
		errors.Is(err, core.ErrSchemaResolution),
		errors.Is(err, core.ErrCollectionUnresolved),
		errors.Is(err, core.ErrInvalidSchema),
		errors.Is(err, store.ErrInvalidName):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// respondError logs the technical error server-side and returns a
// user-friendly response.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	logArgs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if statusCode >= http.StatusInternalServerError {
		logger.Error("request error", logArgs...)
	} else {
		logger.Warn("request error", logArgs...)
	}

	if !wantsJSON(r) {
		http.Error(w, userMsg.Message+" ("+userMsg.Code+")", statusCode)
		return
	}

	resp := ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	}
	var emitErr *core.RecordEmitError
	if errors.As(err, &emitErr) {
		resp.Added = &emitErr.Added
	}
	render.Status(r, statusCode)
	render.JSON(w, r, resp)
}

// wantsJSON checks if the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	// API routes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/")
}
