package config

import "time"

type SecurityConfig interface {
	GetClientIdleTimeout() time.Duration
	GetEnableRateLimiting() bool
	GetSignInRate() float64
	GetSignInBurst() int
}

type Security struct {
	ClientIdleTimeout  time.Duration `env:"CLIENT_IDLE_TIMEOUT"  envDefault:"30m"`
	EnableRateLimiting bool          `env:"ENABLE_RATE_LIMITING" envDefault:"true"`
	SignInRate         float64       `env:"SIGN_IN_RATE"         envDefault:"0.2"`
	SignInBurst        int           `env:"SIGN_IN_BURST"        envDefault:"5"`
}

var _ SecurityConfig = Security{}

// GetClientIdleTimeout is how long an unused client instance is kept
func (s Security) GetClientIdleTimeout() time.Duration {
	return s.ClientIdleTimeout
}

func (s Security) GetEnableRateLimiting() bool {
	return s.EnableRateLimiting
}

// GetSignInRate is the sustained sign-in attempts per second per client
func (s Security) GetSignInRate() float64 {
	return s.SignInRate
}

func (s Security) GetSignInBurst() int {
	return s.SignInBurst
}
