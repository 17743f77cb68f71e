package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestHasCodeWalksNestedAppErrors(t *testing.T) {
	inner := NewAppError(CodeProviderRateLimited, "groq throttled", ErrTransient)
	outer := NewAppError(CodeProvider, "completion failed", fmt.Errorf("wrapped: %w", inner))

	assert.True(t, HasCode(outer, CodeProvider))
	assert.True(t, HasCode(outer, CodeProviderRateLimited))
	assert.False(t, HasCode(outer, CodeValidation))
	assert.Equal(t, CodeProvider, CodeOf(outer))
	assert.Equal(t, "", CodeOf(errors.New("plain")))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), true},
		{"storage transient", NewAppError(CodeStorageFetch, "fetch", ErrTransient), true},
		{"persistence", NewAppError(CodePersistence, "insert", ErrDatabase), true},
		{"validation", NewValidationError("bad id", nil), false},
		{"not found", NewAppError(CodeStorageFetch, "fetch", fmt.Errorf("object %w", ErrNotFound)), false},
		{"rate limited", NewAppError(CodeProviderRateLimited, "429", nil), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{NewValidationError("bad", nil), codes.InvalidArgument},
		{fmt.Errorf("get: %w", ErrNotFound), codes.NotFound},
		{NewAppError(CodeAllProvidersRateLimited, "all limited", nil), codes.ResourceExhausted},
		{NewAppError(CodeProvider, "down", nil), codes.Unavailable},
		{errors.New("other"), codes.Internal},
		{status.Error(codes.Aborted, "kept"), codes.Aborted},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, status.Code(ToStatus(tt.err)), tt.err.Error())
	}
	assert.NoError(t, ToStatus(nil))
}

func TestValidateDocumentID(t *testing.T) {
	assert.NoError(t, ValidateDocumentID("doc_123"))
	for _, bad := range []string{"", " doc", "a/b", "has space"} {
		err := ValidateDocumentID(bad)
		assert.Error(t, err, bad)
		assert.True(t, HasCode(err, CodeValidation), bad)
	}
}

func TestValidateRequired(t *testing.T) {
	assert.NoError(t, ValidateRequired("prompt", "hi", "provider", "groq"))
	err := ValidateRequired("prompt", "hi", "provider", "  ")
	assert.ErrorContains(t, err, "provider is required")
}
