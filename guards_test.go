package iam_test

import (
	"testing"

	"github.com/goliatone/go-iam"
	"github.com/stretchr/testify/assert"
)

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name     string
		claims   iam.AuthClaims
		expected error
	}{
		{
			name:     "nil claims",
			claims:   nil,
			expected: iam.ErrForbidden,
		},
		{
			name:     "standard user",
			claims:   &iam.JWTClaims{Admin: false},
			expected: iam.ErrForbidden,
		},
		{
			name:     "admin user",
			claims:   &iam.JWTClaims{Admin: true},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := iam.RequireAdmin(tt.claims)
			if tt.expected == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestRequireNotSelf(t *testing.T) {
	tests := []struct {
		name     string
		actorID  string
		targetID string
		expected error
	}{
		{
			name:     "different accounts",
			actorID:  "user-1",
			targetID: "user-2",
			expected: nil,
		},
		{
			name:     "same account",
			actorID:  "user-1",
			targetID: "user-1",
			expected: iam.ErrSelfAction,
		},
		{
			name:     "empty actor never matches",
			actorID:  "",
			targetID: "",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := iam.RequireNotSelf(tt.actorID, tt.targetID)
			if tt.expected == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestRequireActive(t *testing.T) {
	tests := []struct {
		name     string
		user     *iam.User
		expected error
	}{
		{
			name:     "nil user",
			user:     nil,
			expected: iam.ErrIdentityNotFound,
		},
		{
			name:     "inactive user",
			user:     &iam.User{Active: false},
			expected: iam.ErrInactiveAccount,
		},
		{
			name:     "active user",
			user:     &iam.User{Active: true},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := iam.RequireActive(tt.user)
			if tt.expected == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}
