package telemetry

// Config holds the telemetry configuration
type Config struct {
	// Enabled determines if telemetry is active
	Enabled bool

	// ServiceName is the name of the service for tracing
	ServiceName string

	// ServiceVersion is the version of the service
	ServiceVersion string

	// Endpoint is the OTLP collector endpoint (host:port)
	Endpoint string

	// Insecure determines if TLS should be disabled
	Insecure bool

	// SampleRate is the trace sampling rate (0.0 to 1.0)
	SampleRate float64
}

// DefaultConfig returns the default telemetry configuration
func DefaultConfig() Config {
	return Config{
		Enabled:        false,
		ServiceName:    "vingest",
		ServiceVersion: "dev",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SampleRate:     1.0,
	}
}
