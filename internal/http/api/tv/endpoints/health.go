package endpoints

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/adcast/internal/http/api"
)

// Pinger is any dependency whose reachability the ping endpoint reports.
type Pinger func(ctx context.Context) error

type pingResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Time   string            `json:"time"`
}

// HealthModule serves GET /ping for players and load balancers.
func HealthModule(checks map[string]Pinger) api.Module {
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/ping", func(ctx *gin.Context) (any, *api.APIError) {
			pctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
			defer cancel()

			resp := pingResponse{Status: "ok", Checks: make(map[string]string, len(checks)), Time: time.Now().UTC().Format(time.RFC3339)}
			for name, ping := range checks {
				if err := ping(pctx); err != nil {
					log.Warn().Err(err).Str("check", name).Msg("health check failed")
					resp.Checks[name] = "unavailable"
					resp.Status = "degraded"
					continue
				}
				resp.Checks[name] = "ok"
			}
			if resp.Status != "ok" {
				ctx.JSON(http.StatusServiceUnavailable, resp)
				return nil, nil
			}
			return resp, nil
		})
	})
}
