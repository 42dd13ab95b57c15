// Package pipeline exposes control over the folder watcher and the ingest
// queue.
package pipeline

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ai-godfather/rec-conv-transcriptor/api/types"
)

// RegisterRoutes registers pipeline control routes on the given group.
func RegisterRoutes(group *gin.RouterGroup, deps *types.Dependencies) {
	group.GET("/status", Status(deps))
	group.POST("/start", Start(deps))
	group.POST("/stop", Stop(deps))
}

// Status handles GET /api/v1/pipeline/status.
func Status(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, deps.Pipeline.Status())
	}
}

// Start handles POST /api/v1/pipeline/start and begins folder watching.
func Start(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := deps.Pipeline.StartWatching(); err != nil {
			types.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, deps.Pipeline.Status())
	}
}

// Stop handles POST /api/v1/pipeline/stop. Queued jobs keep draining, only
// discovery of new files stops.
func Stop(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := deps.Pipeline.StopWatching(); err != nil {
			types.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, deps.Pipeline.Status())
	}
}
