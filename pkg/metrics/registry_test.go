package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactoriesReturnNilWhenDisabled(t *testing.T) {
	// Registry is process-global; these assertions must run before InitRegistry.
	if IsEnabled() {
		t.Skip("registry already initialized by another test")
	}

	assert.Nil(t, NewUploadMetrics())
	assert.Nil(t, NewPoolMetrics())
	assert.Nil(t, NewEdgeMetrics())
	assert.Nil(t, GetRegistry())

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}

func TestInitRegistryIdempotent(t *testing.T) {
	InitRegistry()
	first := GetRegistry()
	require.NotNil(t, first)

	InitRegistry()
	assert.Same(t, first, GetRegistry())
	assert.True(t, IsEnabled())

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.NotEmpty(t, rec.Body.String())
}
