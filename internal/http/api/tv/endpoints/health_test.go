package endpoints

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/adcast/internal/http/api"
)

func ping(t *testing.T, checks map[string]Pinger) (*httptest.ResponseRecorder, pingResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api.MountGroup(r, api.GroupConfig{Prefix: "/api/tv"}, HealthModule(checks))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/tv/ping", nil))

	var resp pingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestPingHealthy(t *testing.T) {
	ok := func(ctx context.Context) error { return nil }
	w, resp := ping(t, map[string]Pinger{"database": ok, "redis": ok})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]string{"database": "ok", "redis": "ok"}, resp.Checks)
}

func TestPingDegraded(t *testing.T) {
	w, resp := ping(t, map[string]Pinger{
		"database": func(ctx context.Context) error { return nil },
		"broker":   func(ctx context.Context) error { return errors.New("not connected") },
	})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "unavailable", resp.Checks["broker"])
}
