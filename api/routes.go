package api

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/ai-godfather/rec-conv-transcriptor/api/health"
	pipelineRoutes "github.com/ai-godfather/rec-conv-transcriptor/api/pipeline"
	recordingRoutes "github.com/ai-godfather/rec-conv-transcriptor/api/recordings"
	searchRoutes "github.com/ai-godfather/rec-conv-transcriptor/api/search"
	statsRoutes "github.com/ai-godfather/rec-conv-transcriptor/api/stats"
	"github.com/ai-godfather/rec-conv-transcriptor/api/types"
	"github.com/ai-godfather/rec-conv-transcriptor/api/version"
	"github.com/ai-godfather/rec-conv-transcriptor/api/ws"
)

// RegisterRoutes registers all API routes.
func RegisterRoutes(engine *gin.Engine, deps *types.Dependencies, limiters *RateLimiters) error {
	if deps == nil {
		return fmt.Errorf("handler dependencies are required")
	}

	// public routes, no rate limiting
	health.RegisterRoutes(engine, deps)
	version.RegisterRoutes(engine, deps)
	ws.RegisterRoutes(engine, deps)

	engine.NoRoute(NotFoundHandler())

	v1 := engine.Group("/api/v1")

	// recordings carry uploads, keep the limit moderate (10 req/s, burst 20)
	recordingGroup := v1.Group("/recordings")
	recordingGroup.Use(limiters.Limit(10, 20))
	recordingRoutes.RegisterRoutes(recordingGroup, deps)

	// search hits LIKE scans over text columns (5 req/s, burst 10)
	searchGroup := v1.Group("/search")
	searchGroup.Use(limiters.Limit(5, 10))
	searchRoutes.RegisterRoutes(searchGroup, deps)

	statsGroup := v1.Group("/stats")
	statsGroup.Use(limiters.Limit(10, 20))
	statsRoutes.RegisterRoutes(statsGroup, deps)

	if deps.Pipeline != nil {
		pipelineGroup := v1.Group("/pipeline")
		pipelineGroup.Use(limiters.Limit(5, 10))
		pipelineRoutes.RegisterRoutes(pipelineGroup, deps)
	}

	return nil
}

// NotFoundHandler handles 404 errors
func NotFoundHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(404, gin.H{
			"status":  "error",
			"message": "The requested endpoint was not found",
			"path":    c.Request.URL.Path,
		})
	}
}
