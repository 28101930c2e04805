package iam

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims represents the verified payload of an access token
type AuthClaims interface {
	Subject() string
	UserID() string
	Role() string
	IsAdmin() bool
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims
type JWTClaims struct {
	jwt.RegisteredClaims
	Admin bool `json:"admin"`
}

// Verify interface compliance
var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user ID carried in the subject claim
func (c *JWTClaims) UserID() string {
	return c.Subject()
}

// Role returns the role implied by the admin claim
func (c *JWTClaims) Role() string {
	if c.Admin {
		return string(RoleAdmin)
	}
	return string(RoleStandard)
}

// IsAdmin reports whether the token was issued for an admin account.
// The flag is authoritative for the token's lifetime: role changes
// take effect on the next issuance.
func (c *JWTClaims) IsAdmin() bool {
	return c.Admin
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
