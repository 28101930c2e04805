package iam_test

import (
	"testing"

	"github.com/goliatone/go-iam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	t.Run("hashes a valid password", func(t *testing.T) {
		hash, err := iam.HashPassword("Sup3rS3cret!")
		require.NoError(t, err)
		assert.NotEmpty(t, hash)
		assert.NotEqual(t, "Sup3rS3cret!", hash)
	})

	t.Run("salts every hash", func(t *testing.T) {
		first, err := iam.HashPassword("Sup3rS3cret!")
		require.NoError(t, err)

		second, err := iam.HashPassword("Sup3rS3cret!")
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
		assert.True(t, iam.VerifyPassword("Sup3rS3cret!", first))
		assert.True(t, iam.VerifyPassword("Sup3rS3cret!", second))
	})

	t.Run("rejects empty input", func(t *testing.T) {
		hash, err := iam.HashPassword("")
		assert.Empty(t, hash)
		assert.ErrorIs(t, err, iam.ErrNoEmptyString)
	})
}

func TestVerifyPassword(t *testing.T) {
	hash, err := iam.HashPassword("Sup3rS3cret!")
	require.NoError(t, err)

	tests := []struct {
		name     string
		password string
		hash     string
		expected bool
	}{
		{
			name:     "matching password",
			password: "Sup3rS3cret!",
			hash:     hash,
			expected: true,
		},
		{
			name:     "wrong password",
			password: "NotTh3S3cret!",
			hash:     hash,
			expected: false,
		},
		{
			name:     "empty password",
			password: "",
			hash:     hash,
			expected: false,
		},
		{
			name:     "empty hash",
			password: "Sup3rS3cret!",
			hash:     "",
			expected: false,
		},
		{
			name:     "malformed hash",
			password: "Sup3rS3cret!",
			hash:     "not-a-bcrypt-hash",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, iam.VerifyPassword(tt.password, tt.hash))
		})
	}
}

func TestRandomPasswordHash(t *testing.T) {
	hash := iam.RandomPasswordHash()
	assert.NotEmpty(t, hash)
}
