package iam

import "time"

// SimpleConfig is a plain struct implementation of the Config
// interface, handy for tests and small deployments.
type SimpleConfig struct {
	SigningKey        string
	ContextKey        string
	TokenExpiration   int
	AuthScheme        string
	Issuer            string
	Audience          []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

var _ Config = (*SimpleConfig)(nil)

// NewDefaultConfig returns a config with sane defaults for everything
// but the signing key.
func NewDefaultConfig(signingKey string) *SimpleConfig {
	return &SimpleConfig{
		SigningKey:        signingKey,
		ContextKey:        "user",
		TokenExpiration:   30,
		AuthScheme:        "Bearer",
		RateLimitRequests: DefaultRateLimitRequests,
		RateLimitWindow:   DefaultRateLimitWindow,
	}
}

func (c *SimpleConfig) GetSigningKey() string {
	return c.SigningKey
}

func (c *SimpleConfig) GetContextKey() string {
	if c.ContextKey == "" {
		return "user"
	}
	return c.ContextKey
}

func (c *SimpleConfig) GetTokenExpiration() int {
	if c.TokenExpiration <= 0 {
		return 30
	}
	return c.TokenExpiration
}

func (c *SimpleConfig) GetAuthScheme() string {
	if c.AuthScheme == "" {
		return "Bearer"
	}
	return c.AuthScheme
}

func (c *SimpleConfig) GetIssuer() string {
	return c.Issuer
}

func (c *SimpleConfig) GetAudience() []string {
	return c.Audience
}

func (c *SimpleConfig) GetRateLimitRequests() int {
	if c.RateLimitRequests <= 0 {
		return DefaultRateLimitRequests
	}
	return c.RateLimitRequests
}

func (c *SimpleConfig) GetRateLimitWindow() time.Duration {
	if c.RateLimitWindow <= 0 {
		return DefaultRateLimitWindow
	}
	return c.RateLimitWindow
}
