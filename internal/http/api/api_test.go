package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestMountGroupAndResolveEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	var order []string
	mw := func(c *gin.Context) { order = append(order, "mw"); c.Next() }

	MountGroup(r, GroupConfig{Prefix: "/api/tv", Middleware: []gin.HandlerFunc{mw}},
		ModuleFunc(func(c *Controller) {
			c.GET("/ok", func(ctx *gin.Context) (any, *APIError) {
				order = append(order, "handler")
				return gin.H{"status": "ok"}, nil
			})
			c.POST("/fail", func(ctx *gin.Context) (any, *APIError) {
				return nil, BadRequest("nope")
			})
			c.DELETE("/custom", func(ctx *gin.Context) (any, *APIError) {
				ctx.JSON(http.StatusAccepted, gin.H{"custom": true})
				return nil, nil
			})
		}),
	)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/tv/ok", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.Equal(t, []string{"mw", "handler"}, order)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/tv/fail", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"nope"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/tv/custom", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"custom":true}`, w.Body.String())
}
