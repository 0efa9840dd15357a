package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, handlers *Handlers) {
	router.Use(CORSMiddleware())
	router.Use(RequestIDMiddleware())
	router.Use(MetricsMiddleware(handlers.metricsCollector))
	router.Use(ErrorHandlerMiddleware())

	// 100 requests per client per minute
	router.Use(RateLimitMiddleware(100))

	router.GET("/", handlers.Root)

	router.GET("/health", handlers.Health)
	router.GET("/health/live", handlers.Liveness)
	router.GET("/health/ready", handlers.Readiness)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.Health)

		suggestions := v1.Group("/suggestions")
		{
			suggestions.GET("/:ticker", handlers.GetSuggestion)
			suggestions.POST("", handlers.PostSuggestion)
			suggestions.POST("/batch", handlers.BatchSuggest)
		}

		v1.GET("/sectors", handlers.GetSectors)

		companies := v1.Group("/companies")
		{
			companies.GET("/:ticker/financials", handlers.GetCompanyFinancials)
		}

		system := v1.Group("/system")
		{
			system.GET("/metrics", handlers.GetMetrics)
			system.GET("/status", handlers.GetSystemStatus)
		}
	}
}
