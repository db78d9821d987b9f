package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	apperrors "github.com/jrsteele09/sade-booster/internal/errors"
)

type Config interface {
	EnvConfig
	CorsConfig
	IdentityConfig
	StorageConfig
	SecurityConfig
	TelemetryConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetBaseURL() string
	IsDev() bool
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Identity
	Storage
	Security
	Telemetry
}

var _ Config = (*mainConfig)(nil)

// Option overrides a loaded value, typically from a command line flag.
type Option func(*mainConfig)

// WithPort overrides PORT
func WithPort(port string) Option {
	return func(c *mainConfig) {
		if port != "" {
			c.EnvVars.Port = port
		}
	}
}

// WithIdentityProvider overrides IDENTITY_PROVIDER
func WithIdentityProvider(name string) Option {
	return func(c *mainConfig) {
		if name != "" {
			c.Identity.Provider = name
		}
	}
}

// Load reads the configuration from the process environment.
func Load(opts ...Option) (Config, error) {
	return load(env.Options{}, opts...)
}

// LoadFrom reads the configuration from the given variables only.
func LoadFrom(environ map[string]string, opts ...Option) (Config, error) {
	return load(env.Options{Environment: environ}, opts...)
}

func load(envOpts env.Options, opts ...Option) (Config, error) {
	cfg := &mainConfig{}
	if err := env.ParseWithOptions(cfg, envOpts); err != nil {
		return nil, fmt.Errorf("[Config Load] parse env: %w", err)
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("[Config Load] %w", err)
	}
	return cfg, nil
}

func (c *mainConfig) validate() error {
	switch strings.ToLower(c.Identity.Provider) {
	case ProviderMemory:
	case ProviderCognito:
		if c.Identity.CognitoRegion == "" || c.Identity.CognitoClientID == "" {
			return apperrors.Wrapf(apperrors.ErrInvalidConfig, "COGNITO_REGION and COGNITO_CLIENT_ID are required for the cognito provider")
		}
	default:
		return apperrors.Wrapf(apperrors.ErrInvalidConfig, "unknown identity provider %q", c.Identity.Provider)
	}
	if c.Security.SignInBurst < 1 {
		return apperrors.Wrapf(apperrors.ErrInvalidConfig, "SIGN_IN_BURST must be at least 1")
	}
	return nil
}
