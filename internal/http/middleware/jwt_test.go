package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/whoami", JWTMiddleware(secret), func(c *gin.Context) {
		sub, ok := Subject(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, sub)
	})
	return r
}

func TestJWTMiddleware(t *testing.T) {
	r := newRouter("secret")

	token, err := GenerateJWT("ops@example.com", "secret", time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		code   int
	}{
		{"valid", "Bearer " + token, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Token " + token, http.StatusUnauthorized},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.code, w.Code)
			assert.NotEmpty(t, w.Header().Get(requestIDHeader))
			if tc.code == http.StatusOK {
				assert.Equal(t, "ops@example.com", w.Body.String())
			}
		})
	}
}

func TestExpiredToken(t *testing.T) {
	r := newRouter("secret")
	token, err := GenerateJWT("ops", "secret", -time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequestIDPassthrough(t *testing.T) {
	r := newRouter("secret")
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(requestIDHeader, "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get(requestIDHeader))
}
