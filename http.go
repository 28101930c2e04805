package iam

import (
	"strconv"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// ErrTokenMissingOrMalformed is returned when no bearer token can be
// extracted from the request.
var ErrTokenMissingOrMalformed = errors.New("missing or malformed JWT", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenInvalid)

// ExtractBearerToken pulls the raw token out of the Authorization
// header, honoring the configured auth scheme.
func ExtractBearerToken(ctx router.Context, cfg Config) (string, error) {
	authScheme := cfg.GetAuthScheme()
	if authScheme == "" {
		authScheme = "Bearer"
	}
	authScheme = strings.TrimSpace(authScheme)

	a := ctx.GetString(router.HeaderAuthorization, "")
	l := len(authScheme)
	if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) {
		return strings.TrimSpace(a[l:]), nil
	}

	return "", ErrTokenMissingOrMalformed
}

// ProtectedRoute validates the bearer token and stores the claims
// under the configured context key for downstream handlers.
func ProtectedRoute(validator TokenService, cfg Config, errorHandler router.ErrorHandler) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			raw, err := ExtractBearerToken(ctx, cfg)
			if err != nil {
				return errorHandler(ctx, err)
			}

			claims, err := validator.Validate(raw)
			if err != nil {
				return errorHandler(ctx, err)
			}

			ctx.Locals(cfg.GetContextKey(), claims)
			ctx.SetContext(WithClaimsContext(ctx.Context(), claims))

			return next(ctx)
		}
	}
}

// AdminRoute rejects requests whose validated claims lack the admin
// flag. It must run after ProtectedRoute.
func AdminRoute(cfg Config, errorHandler router.ErrorHandler) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			claims, ok := GetRouterClaims(ctx, cfg.GetContextKey())
			if !ok {
				return errorHandler(ctx, ErrTokenMissingOrMalformed)
			}

			if err := RequireAdmin(claims); err != nil {
				return errorHandler(ctx, err)
			}

			return next(ctx)
		}
	}
}

// RateLimit throttles requests per client key. Denials carry a
// Retry-After header with the seconds until the window frees up.
func RateLimit(limiter RateLimiter, errorHandler router.ErrorHandler) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if limiter == nil {
				return next(ctx)
			}

			decision := limiter.Check(ClientKey(ctx))
			if decision.Allowed {
				return next(ctx)
			}

			retryAfter := int(decision.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}

			ctx.SetHeader("Retry-After", strconv.Itoa(retryAfter))

			limited := ErrRateLimited.Clone()
			if limited == nil {
				return errorHandler(ctx, ErrRateLimited)
			}
			limited.Source = ErrRateLimited
			return errorHandler(ctx, limited.WithMetadata(map[string]any{
				"retry_after": retryAfter,
			}))
		}
	}
}

// MakeAuthErrorHandler normalizes token failures into structured
// errors before delegating to the configured handler.
func MakeAuthErrorHandler(logger Logger, errorHandler router.ErrorHandler) router.ErrorHandler {
	if logger == nil {
		logger = defLogger{}
	}

	return func(ctx router.Context, err error) error {
		var richErr *errors.Error

		if errors.As(err, &richErr) {
			return errorHandler(ctx, richErr)
		}

		if IsTokenExpiredError(err) {
			richErr = ErrTokenExpired
		} else if IsMalformedError(err) {
			richErr = ErrTokenMalformed
		} else {
			richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
				WithCode(errors.CodeUnauthorized)
		}

		logger.Debug("auth error", "error", richErr.Message)

		return errorHandler(ctx, richErr)
	}
}
