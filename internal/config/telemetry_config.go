package config

type TelemetryConfig interface {
	GetOtelEndpoint() string
}

type Telemetry struct {
	OtelEndpoint string `env:"OTEL_ENDPOINT"`
}

var _ TelemetryConfig = Telemetry{}

// GetOtelEndpoint returns the OTLP/HTTP collector endpoint, "" disables tracing
func (t Telemetry) GetOtelEndpoint() string {
	return t.OtelEndpoint
}
