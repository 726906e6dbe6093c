package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels matched with errors.Is.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrStorageRead  = errors.New("storage read failed")
	ErrStorageWrite = errors.New("storage write failed")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// StorageRead creates a 503 error for a failed read from the key-value backend.
// Both ErrStorageRead and the underlying cause match with errors.Is.
func StorageRead(op string, cause error) *AppError {
	return &AppError{
		Code:    "STORAGE_READ_ERROR",
		Message: fmt.Sprintf("%s: stored state could not be read", op),
		Status:  http.StatusServiceUnavailable,
		Err:     errors.Join(ErrStorageRead, cause),
	}
}

// StorageWrite creates a 503 error for a failed write to the key-value backend.
func StorageWrite(op string, cause error) *AppError {
	return &AppError{
		Code:    "STORAGE_WRITE_ERROR",
		Message: fmt.Sprintf("%s: state could not be persisted", op),
		Status:  http.StatusServiceUnavailable,
		Err:     errors.Join(ErrStorageWrite, cause),
	}
}

// IsStorage reports whether err is a storage read or write failure.
func IsStorage(err error) bool {
	return errors.Is(err, ErrStorageRead) || errors.Is(err, ErrStorageWrite)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case IsStorage(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
