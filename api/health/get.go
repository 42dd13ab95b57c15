package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ai-godfather/rec-conv-transcriptor/api/types"
)

// Get handles health check requests
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		response := gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"database":  databaseStatus(deps),
		}
		if deps != nil && deps.Pipeline != nil {
			response["pipeline"] = deps.Pipeline.Status()
		}
		c.JSON(http.StatusOK, response)
	}
}

func databaseStatus(deps *types.Dependencies) gin.H {
	if deps == nil || deps.DB == nil || deps.DB.DB == nil {
		return gin.H{"status": "not configured"}
	}
	if err := deps.DB.HealthCheck(); err != nil {
		return gin.H{"status": "unhealthy", "error": err.Error()}
	}
	return gin.H{"status": "healthy"}
}
