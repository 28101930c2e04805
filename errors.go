package iam

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-errors"
)

// Text codes surfaced to API clients in error payloads.
const (
	TextCodeInvalidCreds     = "INVALID_CREDENTIALS"
	TextCodeInactiveAccount  = "INACTIVE_ACCOUNT"
	TextCodeDuplicateEmail   = "DUPLICATE_EMAIL"
	TextCodeTokenExpired     = "TOKEN_EXPIRED"
	TextCodeTokenInvalid     = "TOKEN_INVALID"
	TextCodeForbidden        = "FORBIDDEN"
	TextCodeSelfAction       = "SELF_ACTION"
	TextCodeIdentityNotFound = "IDENTITY_NOT_FOUND"
	TextCodeRateLimited      = "RATE_LIMITED"
	TextCodePasswordPolicy   = "PASSWORD_POLICY"
	TextCodeEmptyPassword    = "EMPTY_PASSWORD"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound).
	WithTextCode(TextCodeIdentityNotFound)

// ErrInvalidCredentials covers both unknown identifiers and bad
// passwords so responses never reveal which accounts exist.
var ErrInvalidCredentials = errors.New("the credentials provided are invalid", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidCreds)

// ErrInactiveAccount is returned after credentials verify but the
// account has been deactivated.
var ErrInactiveAccount = errors.New("account is inactive", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeInactiveAccount)

// ErrDuplicateEmail is returned when a registration email is taken.
var ErrDuplicateEmail = errors.New("email already registered", errors.CategoryConflict).
	WithCode(errors.CodeBadRequest).
	WithTextCode(TextCodeDuplicateEmail)

// ErrTokenExpired is returned for tokens past their expiration.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenMalformed covers signature mismatches and structural
// problems with a presented token.
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenInvalid)

// ErrForbidden is returned when the caller lacks the required role.
var ErrForbidden = errors.New("insufficient permissions", errors.CategoryAuthz).
	WithCode(errors.CodeForbidden).
	WithTextCode(TextCodeForbidden)

// ErrSelfAction rejects destructive operations against the caller's
// own account regardless of role.
var ErrSelfAction = errors.New("action not allowed on own account", errors.CategoryValidation).
	WithCode(errors.CodeBadRequest).
	WithTextCode(TextCodeSelfAction)

// ErrRateLimited is returned when a client exceeds its request window.
var ErrRateLimited = errors.New("too many requests", errors.CategoryRateLimit).
	WithCode(http.StatusTooManyRequests).
	WithTextCode(TextCodeRateLimited)

// ErrPasswordPolicy is returned when a password fails the policy rules.
var ErrPasswordPolicy = errors.New("password does not meet policy requirements", errors.CategoryValidation).
	WithCode(http.StatusUnprocessableEntity).
	WithTextCode(TextCodePasswordPolicy)

// ErrNoEmptyString is returned when hashing an empty password.
var ErrNoEmptyString = errors.New("password cannot be empty", errors.CategoryValidation).
	WithCode(errors.CodeBadRequest).
	WithTextCode(TextCodeEmptyPassword)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
