package config

import "strings"

type EnvVars struct {
	Port    string `env:"PORT"     envDefault:"8080"`
	AppName string `env:"APP_NAME" envDefault:"Sade Booster"`
	Env     string `env:"ENV"      envDefault:"DEV"`
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`
}

var _ EnvConfig = EnvVars{}

// GetPort returns the listen address, e.g. ":8080"
func (e EnvVars) GetPort() string {
	if strings.HasPrefix(e.Port, ":") {
		return e.Port
	}
	return ":" + e.Port
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	return e.Env
}

func (e EnvVars) IsDev() bool {
	return strings.EqualFold(e.Env, "DEV")
}

// GetBaseURL returns the public URL of the portal (e.g., "https://account.example.com")
func (e EnvVars) GetBaseURL() string {
	return strings.TrimSuffix(e.BaseURL, "/")
}
