// Package api exposes the insights service over HTTP.
package api

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type RouterOptions struct {
	AllowedOrigin  string
	RequestTimeout time.Duration
	// Healthy reflects the last platform health check, nil means always healthy.
	Healthy *atomic.Bool
}

func NewRouter(analyzer Analyzer, opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), RequestLogger())

	h := NewInsightsHandler(analyzer, opts.RequestTimeout)

	api := router.Group("/api")
	api.Use(cors.New(cors.Config{
		AllowOrigins:  []string{opts.AllowedOrigin},
		AllowMethods:  []string{http.MethodGet, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", RequestIDHeader},
		ExposeHeaders: []string{RequestIDHeader},
		MaxAge:        5 * time.Minute,
	}))
	{
		api.GET("/youtube", h.GetYouTubeInsights)
		api.OPTIONS("/youtube", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	}

	router.GET("/health", func(c *gin.Context) {
		if opts.Healthy != nil && !opts.Healthy.Load() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return router
}
