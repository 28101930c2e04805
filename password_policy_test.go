package iam_test

import (
	"strings"
	"testing"

	"github.com/goliatone/go-iam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePasswordPolicy(t *testing.T) {
	tests := []struct {
		name     string
		password string
		codes    []string
	}{
		{
			name:     "acceptable password",
			password: "Sup3rS3cret!",
			codes:    nil,
		},
		{
			name:     "too short",
			password: "Ab1!",
			codes:    []string{"min_length"},
		},
		{
			name:     "too long",
			password: "Ab1!" + strings.Repeat("x", 130),
			codes:    []string{"max_length"},
		},
		{
			name:     "missing uppercase",
			password: "sup3rs3cret!",
			codes:    []string{"uppercase"},
		},
		{
			name:     "missing lowercase",
			password: "SUP3RS3CRET!",
			codes:    []string{"lowercase"},
		},
		{
			name:     "missing digit",
			password: "SuperSecret!",
			codes:    []string{"digit"},
		},
		{
			name:     "missing symbol",
			password: "Sup3rS3cret1",
			codes:    []string{"symbol"},
		},
		{
			name:     "symbol outside the accepted set",
			password: "Sup3rS3cret~",
			codes:    []string{"symbol"},
		},
		{
			name:     "reports every violation at once",
			password: "abc",
			codes:    []string{"min_length", "uppercase", "digit", "symbol"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violations := iam.ValidatePasswordPolicy(tt.password)
			if len(tt.codes) == 0 {
				assert.Empty(t, violations)
				return
			}
			assert.Equal(t, tt.codes, iam.PasswordPolicyCodes(violations))
		})
	}
}

func TestValidatePasswordPolicyCustomRules(t *testing.T) {
	rule := iam.PasswordRule{
		Code:        "no_spaces",
		Description: "must not contain spaces",
		Check: func(password string) bool {
			return !strings.Contains(password, " ")
		},
	}

	violations := iam.ValidatePasswordPolicy("has a space", rule)
	require.Len(t, violations, 1)
	assert.Equal(t, "no_spaces", violations[0].Code)

	assert.Empty(t, iam.ValidatePasswordPolicy("nospaces", rule))
}

func TestPasswordPolicyRule(t *testing.T) {
	rule := iam.PasswordPolicyRule()

	assert.NoError(t, rule("Sup3rS3cret!"))

	err := rule("weak")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uppercase")
	assert.Contains(t, err.Error(), "digit")
}

func TestPasswordPolicyCodes(t *testing.T) {
	assert.Empty(t, iam.PasswordPolicyCodes(nil))
}
