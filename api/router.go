package api

import (
	"brandcut/config"
	"brandcut/registry"

	"github.com/gin-gonic/gin"
)

func SetupRouter(runner Runner, reg *registry.Registry, store StorageLister, cfg *config.Config) *gin.Engine {
	r := gin.Default()
	h := NewHandler(runner, reg, store)

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	v1.Use(AuthMiddleware(cfg))
	{
		// The pipeline runs synchronously inside the request.
		v1.POST("/split", h.handleSplit)

		// Operational endpoints.
		v1.POST("/cleanup", h.handleCleanup)
		v1.GET("/uploads", h.handleListUploads)
	}
	return r
}
