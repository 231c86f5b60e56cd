package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDomainError(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(ErrorTypeNotFound, "resource not found", baseErr)

	assert.Equal(t, ErrorTypeNotFound, domainErr.Type)
	assert.Equal(t, "resource not found", domainErr.Message)
	assert.Equal(t, baseErr, domainErr.Err)
	assert.NotNil(t, domainErr.Details)
}

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *DomainError
		wantMsg string
	}{
		{
			name: "error with wrapped error",
			err: &DomainError{
				Type:    ErrorTypeStorage,
				Message: "similarity query failed",
				Err:     errors.New("connection refused"),
			},
			wantMsg: "storage: similarity query failed (connection refused)",
		},
		{
			name: "error without wrapped error",
			err: &DomainError{
				Type:    ErrorTypeValidation,
				Message: "invalid input",
				Err:     nil,
			},
			wantMsg: "validation: invalid input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(ErrorTypeInternal, "internal error", baseErr)

	unwrapped := errors.Unwrap(domainErr)
	assert.Equal(t, baseErr, unwrapped)
}

func TestDomainError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{
			name:   "same error type",
			err:    WrapEmbedding("model unreachable", errors.New("dial tcp")),
			target: ErrEmbeddingFailed,
			want:   true,
		},
		{
			name:   "different error type",
			err:    NewDomainError(ErrorTypeValidation, "validation", nil),
			target: ErrStorageQuery,
			want:   false,
		},
		{
			name:   "not a domain error",
			err:    NewDomainError(ErrorTypeNotFound, "not found", nil),
			target: errors.New("regular error"),
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestDomainError_WithDetail(t *testing.T) {
	err := NewDomainError(ErrorTypeValidation, "validation error", nil)

	err.WithDetail("field", "count").WithDetail("value", 0)

	assert.Equal(t, "count", err.Details["field"])
	assert.Equal(t, 0, err.Details["value"])
}

func TestErrorTypeHelpers(t *testing.T) {
	storageErr := WrapStorage("query failed", errors.New("relation does not exist"))
	embeddingErr := WrapEmbedding("embed failed", errors.New("503"))

	tests := []struct {
		name  string
		check func(error) bool
		err   error
		want  bool
	}{
		{"storage error", IsStorageError, storageErr, true},
		{"wrapped storage error", IsStorageError, fmt.Errorf("search: %w", storageErr), true},
		{"embedding is not storage", IsStorageError, embeddingErr, false},
		{"embedding error", IsEmbeddingError, embeddingErr, true},
		{"not found", IsNotFoundError, ErrPassageNotFound, true},
		{"validation", IsValidationError, ErrInvalidMessageFormat, true},
		{"internal", IsInternalError, WrapInternal("boom", nil), true},
		{"external", IsExternalError, WrapExternal("upstream", nil), true},
		{"regular error", IsExternalError, errors.New("regular"), false},
		{"nil error", IsStorageError, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.check(tt.err))
		})
	}
}

func TestGetErrorType(t *testing.T) {
	assert.Equal(t, ErrorTypeStorage, GetErrorType(ErrStorageQuery))
	assert.Equal(t, ErrorTypeEmbedding, GetErrorType(fmt.Errorf("x: %w", ErrEmbeddingFailed)))
	assert.Equal(t, ErrorType(""), GetErrorType(errors.New("plain")))
}

func TestGetErrorDetails(t *testing.T) {
	err := NewDomainError(ErrorTypeValidation, "bad count", nil).WithDetail("max", 50)
	assert.Equal(t, 50, GetErrorDetails(err)["max"])
	assert.Nil(t, GetErrorDetails(errors.New("plain")))
}
