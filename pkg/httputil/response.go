package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/DhruvK0/fynspo-mobile-sub000/pkg/errors"
	"github.com/DhruvK0/fynspo-mobile-sub000/pkg/logger"
	"github.com/DhruvK0/fynspo-mobile-sub000/pkg/validator"
)

// Response is the JSON envelope every endpoint writes.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse is the "error" member of a failed Response.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON writes v as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteData writes v inside the envelope with status 200.
func WriteData(w http.ResponseWriter, v any) {
	WriteJSON(w, http.StatusOK, Response{Data: v})
}

// WriteNoContent writes an empty 204.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteProblem writes an error envelope with an explicit status and code.
func WriteProblem(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, Response{Error: &ErrorResponse{Code: code, Message: message}})
}

// WriteError maps err to a status and error envelope. Server-side failures are
// logged through the request-scoped logger, or fallback when the request
// carries none.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	status, code, message := describe(err)

	if status >= http.StatusInternalServerError {
		l := logger.FromContext(r.Context())
		if l == slog.Default() {
			l = fallback
		}
		l.ErrorContext(r.Context(), "request failed",
			slog.Int("status", status),
			slog.String("code", code),
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	WriteJSON(w, status, Response{Error: &ErrorResponse{
		Code:      code,
		Message:   message,
		RequestID: logger.CorrelationIDFromContext(r.Context()),
	}})
}

// describe never exposes the text of an unclassified error.
func describe(err error) (status int, code, message string) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Status, appErr.Code, appErr.Message
	}

	status = apperrors.HTTPStatus(err)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return status, "NOT_FOUND", "resource not found"
	case errors.Is(err, apperrors.ErrInvalidInput):
		return status, "INVALID_INPUT", err.Error()
	case apperrors.IsStorage(err):
		return status, "STORAGE_ERROR", "preference storage is unavailable"
	default:
		return status, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// WriteValidationError writes a 400 for a body that failed to decode or
// validate, listing offending fields when there are any.
func WriteValidationError(w http.ResponseWriter, err error) {
	var valErr *validator.ValidationError
	if !errors.As(err, &valErr) {
		WriteProblem(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}

	WriteJSON(w, http.StatusBadRequest, Response{Error: &ErrorResponse{
		Code:    "VALIDATION_ERROR",
		Message: "request validation failed",
		Fields:  valErr.Fields(),
	}})
}
