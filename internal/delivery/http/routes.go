package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/receiptlens/backend/config"
	"github.com/rs/zerolog"
)

// SetupRouter creates and configures the Gin router. metricsHandler may be
// nil, in which case /metrics is not mounted.
func SetupRouter(cfg *config.Config, handler *Handler, metricsHandler http.Handler, logger zerolog.Logger) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RequestIDMiddleware())
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggerMiddleware(logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/", handler.Root)
	router.GET("/health", handler.HealthCheck)
	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP, cfg.RateLimit.Burst))
	{
		receipts := v1.Group("/receipts")
		{
			receipts.POST("/extract", handler.ExtractReceipt)
			receipts.POST("/extract-batch", handler.ExtractBatch)
			receipts.POST("/parse", handler.ParseLines)
		}
	}

	return router
}
