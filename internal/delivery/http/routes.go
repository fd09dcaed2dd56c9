package http

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tilbudsradar/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, logger zerolog.Logger) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RequestIDMiddleware())
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggerMiddleware(logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(NewIPRateLimiter(cfg.RateLimit.PerIP)))
	{
		prices := v1.Group("/prices")
		{
			prices.GET("", handler.ListPrices)
			prices.GET("/lookup", handler.LookupPrice)
		}

		v1.POST("/match", handler.Match)

		runs := v1.Group("/runs")
		{
			runs.POST("", handler.StartRun)
			runs.GET("/latest", handler.LatestRun)
		}
	}

	return router
}
