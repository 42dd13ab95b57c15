// Package stats exposes aggregate counters over the recording store.
package stats

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ai-godfather/rec-conv-transcriptor/api/types"
)

// RegisterRoutes registers stats routes on the given group.
func RegisterRoutes(group *gin.RouterGroup, deps *types.Dependencies) {
	group.GET("", Get(deps))
}

// Get handles GET /api/v1/stats.
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := deps.Recordings.Stats(c.Request.Context())
		if err != nil {
			types.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}
