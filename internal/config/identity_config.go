package config

import "strings"

// Identity provider backends
const (
	ProviderCognito = "cognito"
	ProviderMemory  = "memory"
)

type IdentityConfig interface {
	GetIdentityProvider() string
	GetCognitoRegion() string
	GetCognitoUserPoolID() string
	GetCognitoClientID() string
	GetCognitoClientSecret() string
	GetCognitoEndpoint() string
	GetVerifyIDTokens() bool
	GetDemoUser() (email, password string)
}

type Identity struct {
	Provider            string `env:"IDENTITY_PROVIDER"        envDefault:"memory"`
	CognitoRegion       string `env:"COGNITO_REGION"`
	CognitoUserPoolID   string `env:"COGNITO_USER_POOL_ID"`
	CognitoClientID     string `env:"COGNITO_CLIENT_ID"`
	CognitoClientSecret string `env:"COGNITO_CLIENT_SECRET"`
	CognitoEndpoint     string `env:"COGNITO_ENDPOINT"`
	VerifyIDTokens      bool   `env:"COGNITO_VERIFY_ID_TOKENS" envDefault:"false"`
	DemoUserEmail       string `env:"DEMO_USER_EMAIL"`
	DemoUserPassword    string `env:"DEMO_USER_PASSWORD"`
}

var _ IdentityConfig = Identity{}

func (i Identity) GetIdentityProvider() string {
	return strings.ToLower(i.Provider)
}

func (i Identity) GetCognitoRegion() string {
	return i.CognitoRegion
}

func (i Identity) GetCognitoUserPoolID() string {
	return i.CognitoUserPoolID
}

func (i Identity) GetCognitoClientID() string {
	return i.CognitoClientID
}

func (i Identity) GetCognitoClientSecret() string {
	return i.CognitoClientSecret
}

func (i Identity) GetCognitoEndpoint() string {
	return i.CognitoEndpoint
}

func (i Identity) GetVerifyIDTokens() bool {
	return i.VerifyIDTokens
}

// GetDemoUser returns the account seeded into the in-process directory.
// Both values are empty when no demo user is configured.
func (i Identity) GetDemoUser() (string, string) {
	if i.DemoUserEmail == "" || i.DemoUserPassword == "" {
		return "", ""
	}
	return i.DemoUserEmail, i.DemoUserPassword
}
