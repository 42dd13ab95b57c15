// Package recordings exposes the recording resource: listing, inspection,
// upload, lifecycle actions and audio download.
package recordings

import (
	"github.com/gin-gonic/gin"

	"github.com/ai-godfather/rec-conv-transcriptor/api/types"
)

// RegisterRoutes registers recording routes on the given group.
func RegisterRoutes(group *gin.RouterGroup, deps *types.Dependencies) {
	group.GET("", List(deps))
	group.POST("", Upload(deps))
	group.GET("/:id", Get(deps))
	group.GET("/:id/segments", GetSegments(deps))
	group.GET("/:id/audio", GetAudio(deps))
	group.POST("/:id/reprocess", Reprocess(deps))
	group.POST("/:id/swap-speakers", SwapSpeakers(deps))
	group.DELETE("/:id", Delete(deps))
}
