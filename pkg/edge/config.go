package edge

import "time"

// HealthConfig tunes the active backend health checks.
type HealthConfig struct {
	// Interval is the time between probe rounds.
	// Default: 10s
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`

	// Timeout bounds a single probe.
	// Default: 5s
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// UnhealthyThreshold is the number of consecutive failed probes after
	// which a backend leaves the rotation.
	// Default: 3
	UnhealthyThreshold int `mapstructure:"unhealthy_threshold" validate:"omitempty,min=1" yaml:"unhealthy_threshold"`

	// HealthyThreshold is the number of consecutive passed probes after
	// which an ejected backend rejoins the rotation.
	// Default: 2
	HealthyThreshold int `mapstructure:"healthy_threshold" validate:"omitempty,min=1" yaml:"healthy_threshold"`
}

// applyDefaults fills in zero values with sensible defaults.
func (c *HealthConfig) applyDefaults() {
	if c.Interval == 0 {
		c.Interval = 10 * time.Second
	}
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Second
	}
	if c.UnhealthyThreshold <= 0 {
		c.UnhealthyThreshold = 3
	}
	if c.HealthyThreshold <= 0 {
		c.HealthyThreshold = 2
	}
}

// Config configures the edge router.
type Config struct {
	// Host is the address the router binds to. Empty means all interfaces.
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the HTTP port clients connect to.
	// Default: 8000
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`

	// Backends are the ingest replica base URLs traffic is spread over.
	// Each URL carries scheme and host only; at least one is required.
	Backends []string `mapstructure:"backends" yaml:"backends"`

	// Health tunes the active health checks.
	Health HealthConfig `mapstructure:"health" yaml:"health"`

	// RequestTimeout bounds how long the router waits for a backend to
	// start answering one request. It must leave room for the response of
	// a completing chunk, which is written only after assembly.
	// Default: 5m
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`

	// ReadTimeout is the maximum duration for reading an entire client
	// request, including a full chunk body on a slow link.
	// Default: 2m
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response.
	// Default: 10m
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next
	// request when keep-alives are enabled.
	// Default: 60s
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown once Stop is called.
	// Default: 10s
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// applyDefaults fills in zero values with sensible defaults.
func (c *Config) applyDefaults() {
	if c.Port <= 0 {
		c.Port = 8000
	}
	c.Health.applyDefaults()
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 5 * time.Minute
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 2 * time.Minute
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Minute
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}
