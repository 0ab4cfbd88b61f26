package telemetry

import (
	"fmt"
	"runtime"

	"github.com/grafana/pyroscope-go"
)

// ProfilingConfig holds the continuous profiling configuration
type ProfilingConfig struct {
	// Enabled determines if profiling is active
	Enabled bool

	// ServiceName is the application name reported to the profiler
	ServiceName string

	// ServiceVersion is the version tag attached to profiles
	ServiceVersion string

	// Endpoint is the Pyroscope server address
	Endpoint string

	// ProfileTypes lists the profile types to collect
	ProfileTypes []string
}

// DefaultProfilingConfig returns the default profiling configuration
func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		Enabled:        false,
		ServiceName:    "vingest",
		ServiceVersion: "dev",
		Endpoint:       "http://localhost:4040",
		ProfileTypes:   []string{"cpu", "alloc_objects", "alloc_space", "inuse_objects", "inuse_space"},
	}
}

var profiler *pyroscope.Profiler

// InitProfiling starts the continuous profiler.
// Returns a stop function that should be called on shutdown.
func InitProfiling(cfg ProfilingConfig) (stop func() error, err error) {
	if !cfg.Enabled {
		return func() error { return nil }, nil
	}

	types := make([]pyroscope.ProfileType, 0, len(cfg.ProfileTypes))
	for _, t := range cfg.ProfileTypes {
		pt, err := parseProfileType(t)
		if err != nil {
			return nil, err
		}
		types = append(types, pt)
	}

	// Mutex and block profiling need explicit sampling rates
	for _, t := range types {
		switch t {
		case pyroscope.ProfileMutexCount, pyroscope.ProfileMutexDuration:
			runtime.SetMutexProfileFraction(5)
		case pyroscope.ProfileBlockCount, pyroscope.ProfileBlockDuration:
			runtime.SetBlockProfileRate(5)
		}
	}

	p, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.ServiceName,
		ServerAddress:   cfg.Endpoint,
		Tags: map[string]string{
			"version": cfg.ServiceVersion,
		},
		ProfileTypes: types,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start profiler: %w", err)
	}

	profiler = p

	return func() error {
		if profiler == nil {
			return nil
		}
		return profiler.Stop()
	}, nil
}

// IsProfilingEnabled returns whether the profiler is running
func IsProfilingEnabled() bool {
	return profiler != nil
}

func parseProfileType(s string) (pyroscope.ProfileType, error) {
	switch s {
	case "cpu":
		return pyroscope.ProfileCPU, nil
	case "alloc_objects":
		return pyroscope.ProfileAllocObjects, nil
	case "alloc_space":
		return pyroscope.ProfileAllocSpace, nil
	case "inuse_objects":
		return pyroscope.ProfileInuseObjects, nil
	case "inuse_space":
		return pyroscope.ProfileInuseSpace, nil
	case "goroutines":
		return pyroscope.ProfileGoroutines, nil
	case "mutex_count":
		return pyroscope.ProfileMutexCount, nil
	case "mutex_duration":
		return pyroscope.ProfileMutexDuration, nil
	case "block_count":
		return pyroscope.ProfileBlockCount, nil
	case "block_duration":
		return pyroscope.ProfileBlockDuration, nil
	default:
		return "", fmt.Errorf("unknown profile type: %q", s)
	}
}
