// Package search exposes full-text lookup over transcripts and segments.
package search

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ai-godfather/rec-conv-transcriptor/api/types"
)

// RegisterRoutes registers search routes on the given group.
func RegisterRoutes(group *gin.RouterGroup, deps *types.Dependencies) {
	group.GET("", Search(deps))
}

// Search handles GET /api/v1/search?q=...&limit=...
func Search(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
		if err != nil {
			limit = 20
		}

		hits, err := deps.Recordings.Search(c.Request.Context(), c.Query("q"), limit)
		if err != nil {
			types.RespondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"query":   c.Query("q"),
			"results": hits,
			"count":   len(hits),
		})
	}
}
