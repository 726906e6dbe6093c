package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Sentinel error identity ---

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound, ErrInvalidInput, ErrStorageRead, ErrStorageWrite,
	}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j],
				"sentinels %d and %d should be distinct", i, j)
		}
	}
}

// --- AppError behavior ---

func TestAppError_ErrorString_WithWrappedError(t *testing.T) {
	inner := fmt.Errorf("redis connection lost")
	appErr := &AppError{Code: "INTERNAL_ERROR", Message: "something broke", Err: inner}
	assert.Contains(t, appErr.Error(), "INTERNAL_ERROR")
	assert.Contains(t, appErr.Error(), "something broke")
	assert.Contains(t, appErr.Error(), "redis connection lost")
}

func TestAppError_ErrorString_WithoutWrappedError(t *testing.T) {
	appErr := &AppError{Code: "NOT_FOUND", Message: "key not found"}
	assert.Equal(t, "NOT_FOUND: key not found", appErr.Error())
}

func TestAppError_Unwrap_Nil(t *testing.T) {
	appErr := &AppError{Code: "TEST", Message: "test"}
	assert.Nil(t, appErr.Unwrap())
}

// --- Constructor functions ---

func TestNotFound(t *testing.T) {
	err := NotFound("key", "favorites")
	require.NotNil(t, err)
	assert.Equal(t, "NOT_FOUND", err.Code)
	assert.Equal(t, http.StatusNotFound, err.Status)
	assert.Contains(t, err.Message, "favorites")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestInvalidInput(t *testing.T) {
	err := InvalidInput("item id is required")
	assert.Equal(t, "INVALID_INPUT", err.Code)
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestStorageRead_MatchesSentinelAndCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := StorageRead("get item state", cause)

	assert.Equal(t, "STORAGE_READ_ERROR", err.Code)
	assert.Equal(t, http.StatusServiceUnavailable, err.Status)
	assert.True(t, errors.Is(err, ErrStorageRead))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrStorageWrite))
	assert.Contains(t, err.Message, "get item state")
}

func TestStorageWrite_MatchesSentinelAndCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := StorageWrite("set item state", cause)

	assert.Equal(t, "STORAGE_WRITE_ERROR", err.Code)
	assert.True(t, errors.Is(err, ErrStorageWrite))
	assert.True(t, errors.Is(err, cause))
}

// --- HTTPStatus mapping ---

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error", InvalidInput("bad"), http.StatusBadRequest},
		{"wrapped app error", fmt.Errorf("ctx: %w", StorageWrite("op", errors.New("x"))), http.StatusServiceUnavailable},
		{"bare not found", fmt.Errorf("get: %w", ErrNotFound), http.StatusNotFound},
		{"bare invalid input", ErrInvalidInput, http.StatusBadRequest},
		{"bare storage read", ErrStorageRead, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestIsStorage(t *testing.T) {
	assert.True(t, IsStorage(StorageRead("get", errors.New("x"))))
	assert.True(t, IsStorage(fmt.Errorf("wrapped: %w", ErrStorageWrite)))
	assert.False(t, IsStorage(InvalidInput("bad")))
	assert.False(t, IsStorage(nil))
}
