package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fmeca-service/logger"
)

// NewRouter wires every route of the service.
func NewRouter(log *logger.Logger, h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	router.GET("/healthcheck", HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/components", h.ListComponents)
	components := router.Group("/components/:id")
	{
		components.GET("/rows", h.GetRows)
		components.PATCH("/rows/:cf_id", h.EditCell)
		components.GET("/stats", h.GetStats)
		components.GET("/defaults", h.GetDefaults)
		components.GET("/charts/:kind", h.GetChart)
		components.GET("/charts/:kind/image", h.GetChartImage)
	}

	router.GET("/threshold", h.GetThreshold)
	router.PUT("/threshold", h.SetThreshold)
	router.POST("/reset", h.Reset)
	router.POST("/save", h.Save)
	router.GET("/detectability", h.DetectabilityQuestions)
	router.POST("/detectability", h.RecommendDetectability)
	router.POST("/exit", h.Exit)

	return router
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.Nop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
