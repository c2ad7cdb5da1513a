package main

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Nixie-Tech-LLC/adcast/internal/config"
	"github.com/Nixie-Tech-LLC/adcast/internal/http/api"
	adminapi "github.com/Nixie-Tech-LLC/adcast/internal/http/api/admin/control/endpoints"
	authapi "github.com/Nixie-Tech-LLC/adcast/internal/http/api/auth/endpoints"
	clientapi "github.com/Nixie-Tech-LLC/adcast/internal/http/api/tv/endpoints"
	"github.com/Nixie-Tech-LLC/adcast/internal/http/middleware"
)

type healthChecks = map[string]clientapi.Pinger

// Services are the produced interfaces the HTTP surface exposes.
type Services struct {
	Schedules   adminapi.ScheduleService
	Pusher      adminapi.Pusher
	Devices     adminapi.DeviceFinder
	Impressions adminapi.Recomputer
	Reports     adminapi.ImpressionReader
	Health      healthChecks
}

// NewRouter sets up all application routes
func NewRouter(cfg *config.Config, svc Services) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())

	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool { return true },
		AllowMethods: []string{
			"GET",
			"POST",
			"DELETE",
			"OPTIONS",
			"HEAD",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Authorization",
			"Accept",
			"X-Request-ID",
		},
		ExposeHeaders: []string{
			"Content-Length",
			"X-Request-ID",
		},
		AllowCredentials: false,
	}))

	api.MountGroup(r, api.GroupConfig{
		Prefix: "/api/admin",
	},
		authapi.AuthModule(cfg.JWTSecret, cfg.Auth.OperatorKeyHash, cfg.Auth.TokenTTL),
	)

	api.MountGroup(r, api.GroupConfig{
		Prefix:    "/api/admin",
		Auth:      true,
		SecretKey: cfg.JWTSecret,
	},
		adminapi.ScheduleModule(svc.Schedules),
		adminapi.PushModule(svc.Pusher, svc.Devices),
		adminapi.ImpressionModule(svc.Impressions, svc.Reports),
	)

	api.MountGroup(r, api.GroupConfig{
		Prefix: "/api/tv",
	},
		clientapi.HealthModule(svc.Health),
	)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// local media is served by the API itself
	if !cfg.Storage.UseSpaces {
		r.Static("/uploads", "./uploads")
	}
	return r
}

func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
