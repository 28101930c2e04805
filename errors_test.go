package iam_test

import (
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-iam"
	"github.com/stretchr/testify/assert"
)

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name     string
		err      *goerrors.Error
		category goerrors.Category
		textCode string
	}{
		{
			name:     "identity not found",
			err:      iam.ErrIdentityNotFound,
			category: goerrors.CategoryNotFound,
			textCode: iam.TextCodeIdentityNotFound,
		},
		{
			name:     "invalid credentials",
			err:      iam.ErrInvalidCredentials,
			category: goerrors.CategoryAuth,
			textCode: iam.TextCodeInvalidCreds,
		},
		{
			name:     "inactive account",
			err:      iam.ErrInactiveAccount,
			category: goerrors.CategoryAuth,
			textCode: iam.TextCodeInactiveAccount,
		},
		{
			name:     "duplicate email",
			err:      iam.ErrDuplicateEmail,
			category: goerrors.CategoryConflict,
			textCode: iam.TextCodeDuplicateEmail,
		},
		{
			name:     "token expired",
			err:      iam.ErrTokenExpired,
			category: goerrors.CategoryAuth,
			textCode: iam.TextCodeTokenExpired,
		},
		{
			name:     "token malformed",
			err:      iam.ErrTokenMalformed,
			category: goerrors.CategoryAuth,
			textCode: iam.TextCodeTokenInvalid,
		},
		{
			name:     "forbidden",
			err:      iam.ErrForbidden,
			category: goerrors.CategoryAuthz,
			textCode: iam.TextCodeForbidden,
		},
		{
			name:     "self action",
			err:      iam.ErrSelfAction,
			category: goerrors.CategoryValidation,
			textCode: iam.TextCodeSelfAction,
		},
		{
			name:     "rate limited",
			err:      iam.ErrRateLimited,
			category: goerrors.CategoryRateLimit,
			textCode: iam.TextCodeRateLimited,
		},
		{
			name:     "password policy",
			err:      iam.ErrPasswordPolicy,
			category: goerrors.CategoryValidation,
			textCode: iam.TextCodePasswordPolicy,
		},
		{
			name:     "empty password",
			err:      iam.ErrNoEmptyString,
			category: goerrors.CategoryValidation,
			textCode: iam.TextCodeEmptyPassword,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.category, tt.err.Category)
			assert.Equal(t, tt.textCode, tt.err.TextCode)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestIsTokenExpiredError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "structured token expired error",
			err:      iam.ErrTokenExpired,
			expected: true,
		},
		{
			name:     "legacy token expired error (string match)",
			err:      errors.New("some wrapper: token is expired"),
			expected: true,
		},
		{
			name:     "different structured error",
			err:      iam.ErrIdentityNotFound,
			expected: false,
		},
		{
			name:     "different legacy error",
			err:      errors.New("invalid token"),
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, iam.IsTokenExpiredError(tt.err))
		})
	}
}

func TestIsMalformedError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "structured malformed error",
			err:      iam.ErrTokenMalformed,
			expected: true,
		},
		{
			name:     "legacy malformed error (string match)",
			err:      errors.New("parse failed: token is malformed"),
			expected: true,
		},
		{
			name:     "missing JWT error",
			err:      errors.New("missing or malformed JWT"),
			expected: true,
		},
		{
			name:     "different error",
			err:      errors.New("token is expired"),
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, iam.IsMalformedError(tt.err))
		})
	}
}

func TestSentinelCloneKeepsTaxonomy(t *testing.T) {
	decorated := iam.ErrRateLimited.Clone()
	decorated.Source = iam.ErrRateLimited
	decorated = decorated.WithMetadata(map[string]any{
		"retry_after": 30,
	})

	assert.NotNil(t, decorated.Metadata)
	assert.Equal(t, iam.TextCodeRateLimited, decorated.TextCode)
	assert.Nil(t, iam.ErrRateLimited.Metadata)
}
