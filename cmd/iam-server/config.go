package main

import (
	"fmt"
	"time"

	"github.com/goliatone/go-iam"
)

// BaseConfig is the root configuration loaded by the config container.
type BaseConfig struct {
	Server      Server      `json:"server"`
	Auth        Auth        `json:"auth"`
	Persistence Persistence `json:"persistence"`
	Bootstrap   Bootstrap   `json:"bootstrap"`
}

func (c *BaseConfig) Validate() error {
	if c.Auth.SigningKey == "" {
		return fmt.Errorf("auth.signing_key is required")
	}
	return nil
}

func (c *BaseConfig) GetServer() Server {
	return c.Server
}

func (c *BaseConfig) GetAuth() Auth {
	return c.Auth
}

func (c *BaseConfig) GetPersistence() Persistence {
	return c.Persistence
}

func (c *BaseConfig) GetBootstrap() Bootstrap {
	return c.Bootstrap
}

// Server holds the HTTP listener options.
type Server struct {
	Addr string `json:"addr"`
}

func (s Server) GetAddr() string {
	if s.Addr == "" {
		return ":8080"
	}
	return s.Addr
}

// Auth holds token and throttle options.
type Auth struct {
	SigningKey                string   `json:"signing_key"`
	ContextKey                string   `json:"context_key"`
	TokenExpiration           int      `json:"token_expiration"`
	AuthScheme                string   `json:"auth_scheme"`
	Issuer                    string   `json:"issuer"`
	Audience                  []string `json:"audience"`
	RateLimitRequests         int      `json:"rate_limit_requests"`
	RateLimitWindowExpression string   `json:"rate_limit_window"`
}

// AuthConfig converts the raw section into the service config.
func (a Auth) AuthConfig() *iam.SimpleConfig {
	cfg := iam.NewDefaultConfig(a.SigningKey)
	if a.ContextKey != "" {
		cfg.ContextKey = a.ContextKey
	}
	if a.TokenExpiration > 0 {
		cfg.TokenExpiration = a.TokenExpiration
	}
	if a.AuthScheme != "" {
		cfg.AuthScheme = a.AuthScheme
	}
	cfg.Issuer = a.Issuer
	cfg.Audience = a.Audience
	if a.RateLimitRequests > 0 {
		cfg.RateLimitRequests = a.RateLimitRequests
	}
	if a.RateLimitWindowExpression != "" {
		if dur, err := time.ParseDuration(a.RateLimitWindowExpression); err == nil {
			cfg.RateLimitWindow = dur
		}
	}
	return cfg
}

// Persistence holds database options.
type Persistence struct {
	DSN                   string `json:"dsn"`
	Debug                 bool   `json:"debug"`
	PingTimeoutExpression string `json:"ping_timeout"`
}

func (p Persistence) GetDSN() string {
	if p.DSN == "" {
		return "file::memory:?cache=shared"
	}
	return p.DSN
}

func (p Persistence) GetDebug() bool {
	return p.Debug
}

func (p Persistence) GetPingTimeout() time.Duration {
	if p.PingTimeoutExpression == "" {
		return 5 * time.Second
	}
	dur, err := time.ParseDuration(p.PingTimeoutExpression)
	if err != nil {
		panic(
			fmt.Sprintf("unable to parse time: expr %s", p.PingTimeoutExpression),
		)
	}
	return dur
}

// Bootstrap seeds the first admin account on an empty directory.
type Bootstrap struct {
	AdminEmail    string `json:"admin_email"`
	AdminFullName string `json:"admin_full_name"`
	AdminPassword string `json:"admin_password"`
}
