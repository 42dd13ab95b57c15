// Package version reports build information.
package version

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ai-godfather/rec-conv-transcriptor/api/types"
	"github.com/ai-godfather/rec-conv-transcriptor/pkg/version"
)

// RegisterRoutes registers the version route.
func RegisterRoutes(engine *gin.Engine, deps *types.Dependencies) {
	engine.GET("/version", Get(deps))
}

// Get handles GET /version.
func Get(_ *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, version.Info())
	}
}
