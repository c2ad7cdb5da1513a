package endpoints

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Nixie-Tech-LLC/adcast/internal/http/api"
	"github.com/Nixie-Tech-LLC/adcast/internal/http/api/auth/packets"
	"github.com/Nixie-Tech-LLC/adcast/internal/http/middleware"
)

func setupRouter(t *testing.T, keyHash string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api.MountGroup(r, api.GroupConfig{Prefix: "/api/admin"}, AuthModule("supersecret", keyHash, time.Hour))

	// a protected route to prove the issued token works
	api.MountGroup(r, api.GroupConfig{Prefix: "/api/admin", Auth: true, SecretKey: "supersecret"},
		api.ModuleFunc(func(c *api.Controller) {
			c.GET("/whoami", func(ctx *gin.Context) (any, *api.APIError) {
				sub, _ := middleware.Subject(ctx)
				return gin.H{"subject": sub}, nil
			})
		}),
	)
	return r
}

func requestToken(r *gin.Engine, body map[string]string) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/auth/token", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIssueToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("let-me-in"), bcrypt.MinCost)
	require.NoError(t, err)
	r := setupRouter(t, string(hash))

	w := requestToken(r, map[string]string{"operator": "ops", "key": "let-me-in"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp packets.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	assert.NotEmpty(t, resp.ExpiresAt)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"subject":"ops"}`, w.Body.String())
}

func TestIssueTokenRejects(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("let-me-in"), bcrypt.MinCost)
	require.NoError(t, err)
	r := setupRouter(t, string(hash))

	assert.Equal(t, http.StatusUnauthorized, requestToken(r, map[string]string{"operator": "ops", "key": "guess"}).Code)
	assert.Equal(t, http.StatusBadRequest, requestToken(r, map[string]string{"operator": "ops"}).Code)

	unconfigured := setupRouter(t, "")
	assert.Equal(t, http.StatusServiceUnavailable, requestToken(unconfigured, map[string]string{"operator": "ops", "key": "x"}).Code)
}

func TestHashOperatorKey(t *testing.T) {
	hash, err := HashOperatorKey("k")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("k")))
}
