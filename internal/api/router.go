package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/globe-observations/internal/config"
	"github.com/jengzang/globe-observations/internal/handler"
	"github.com/jengzang/globe-observations/internal/metrics"
	"github.com/jengzang/globe-observations/internal/middleware"
	"github.com/jengzang/globe-observations/internal/service"
)

// SetupRouter 设置路由. limiter may be nil to disable rate limiting.
func SetupRouter(cfg *config.Config, svc *service.HeatmapService, logger *slog.Logger, limiter *middleware.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(logger))
	r.Use(metrics.Middleware())
	r.Use(middleware.CORS())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"datasets": svc.Datasets(),
		})
	})
	r.GET("/metrics", metrics.Handler())

	obs := handler.NewObservationHandler(svc, logger)

	// 观测数据接口: /birdcollision, /caterpillar, /spider ...
	api := r.Group("")
	if limiter != nil {
		api.Use(middleware.RateLimit(limiter))
	}
	if cfg.Auth.JWTSecret != "" {
		api.Use(middleware.BearerAuth([]byte(cfg.Auth.JWTSecret)))
	}
	{
		api.GET("/datasets", obs.ListDatasets)

		for _, name := range svc.Datasets() {
			dataset := api.Group("/" + name)
			{
				dataset.GET("", obs.GetBins(name))
				dataset.GET("/heat", obs.GetHeat(name))
				dataset.GET("/range", obs.GetRange(name))
			}
		}
	}

	return r
}
