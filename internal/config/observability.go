package config

// TracingConfig configures OTLP trace export.
//
// Traces are sent to an OpenTelemetry collector over OTLP/HTTP. Export is
// disabled by default; enable it with FARO_TRACING_ENABLED=true or the
// tracing.enabled config key.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
	Endpoint    string `mapstructure:"endpoint" json:"endpoint"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	Environment string `mapstructure:"environment" json:"environment"`
}
