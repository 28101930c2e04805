package iam_test

import (
	"testing"

	"github.com/goliatone/go-iam"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestUserIsAdmin(t *testing.T) {
	assert.True(t, (&iam.User{Role: iam.RoleAdmin}).IsAdmin())
	assert.False(t, (&iam.User{Role: iam.RoleStandard}).IsAdmin())
	assert.False(t, (*iam.User)(nil).IsAdmin())
}

func TestNewIdentityFromUser(t *testing.T) {
	id := uuid.New()
	user := &iam.User{
		ID:    id,
		Email: "user@example.com",
		Role:  iam.RoleAdmin,
	}

	identity := iam.NewIdentityFromUser(user)
	assert.Equal(t, id.String(), identity.ID())
	assert.Equal(t, "user@example.com", identity.Email())
	assert.Equal(t, "admin", identity.Role())
}

func TestNewIdentityFromNilUser(t *testing.T) {
	identity := iam.NewIdentityFromUser(nil)
	assert.Empty(t, identity.ID())
	assert.Empty(t, identity.Email())
	assert.Empty(t, identity.Role())
}
