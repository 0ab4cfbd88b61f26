package edge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServerRequiresBackends(t *testing.T) {
	_, err := NewServer(Config{}, nil)
	require.Error(t, err)

	_, err = NewServer(Config{Backends: []string{"ftp://host:1"}}, nil)
	require.Error(t, err)
}

func TestNewServerDefaults(t *testing.T) {
	srv, err := NewServer(Config{Backends: []string{"http://a:5000"}}, nil)
	require.NoError(t, err)

	assert.Equal(t, 8000, srv.Port())
	assert.Equal(t, 1, srv.Pool().HealthyCount())
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.applyDefaults()

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.Health.Interval)
	assert.Equal(t, 5*time.Second, cfg.Health.Timeout)
	assert.Equal(t, 3, cfg.Health.UnhealthyThreshold)
	assert.Equal(t, 2, cfg.Health.HealthyThreshold)
	assert.Equal(t, 5*time.Minute, cfg.RequestTimeout)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}
