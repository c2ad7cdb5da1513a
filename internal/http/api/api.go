package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string { return e.Message }

func BadRequest(msg string) *APIError { return &APIError{Code: http.StatusBadRequest, Message: msg} }
func NotFound(msg string) *APIError   { return &APIError{Code: http.StatusNotFound, Message: msg} }
func Internal(msg string) *APIError   { return &APIError{Code: http.StatusInternalServerError, Message: msg} }

type HandlerFunc func(ctx *gin.Context) (any, *APIError)

func ResolveEndpoint(h HandlerFunc) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		result, apiErr := h(ctx)
		if apiErr != nil {
			ctx.JSON(apiErr.Code, gin.H{"error": apiErr.Message})
			return
		}
		// handler wrote its own response
		if ctx.Writer.Written() {
			return
		}

		ctx.JSON(http.StatusOK, result)
	}
}

// Controller is the route group a Module mounts its endpoints on.
type Controller struct {
	Group *gin.RouterGroup
}

func (c *Controller) GET(path string, h HandlerFunc) {
	c.Group.GET(path, ResolveEndpoint(h))
}

func (c *Controller) POST(path string, h HandlerFunc) {
	c.Group.POST(path, ResolveEndpoint(h))
}

func (c *Controller) DELETE(path string, h HandlerFunc) {
	c.Group.DELETE(path, ResolveEndpoint(h))
}
