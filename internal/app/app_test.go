package app

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_BuildsWorkingRouter(t *testing.T) {
	t.Setenv("ATTENDASH_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("ATTENDASH_SECURITY_RATE_LIMIT_ENABLED", "false")

	a, err := New()
	require.NoError(t, err)
	require.NotNil(t, a.Server)
	assert.Equal(t, ":8080", a.Server.Addr)

	rec := httptest.NewRecorder()
	a.Server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"empty"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Setenv("ATTENDASH_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("ATTENDASH_SERVER_PORT", "-1")

	_, err := New()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config")
}
