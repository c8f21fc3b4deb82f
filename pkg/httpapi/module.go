// Package httpapi owns the gin engine every service registers its routes on.
package httpapi

import (
	"habitquest/pkg/config"
	"habitquest/pkg/health"
	"habitquest/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

var Module = fx.Module("httpapi",
	health.Module,
	fx.Provide(NewEngine),
	fx.Invoke(registerHealthEndpoints),
)

const APIPrefix = "/v1"

func NewEngine(cfg *config.Config) *gin.Engine {
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.Trace(),
		middleware.Logger(),
		middleware.Error(),
	)
	return r
}

// V1 is the group every versioned API route hangs off.
func V1(r *gin.Engine) *gin.RouterGroup {
	return r.Group(APIPrefix)
}

func registerHealthEndpoints(r *gin.Engine, h health.HealthService) {
	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
