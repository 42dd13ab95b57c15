package recordings

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ai-godfather/rec-conv-transcriptor/api/types"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/models"
	recordingsService "github.com/ai-godfather/rec-conv-transcriptor/internal/services/recordings"
	apperrors "github.com/ai-godfather/rec-conv-transcriptor/pkg/errors"
)

// ListResponse is the paginated recording collection.
type ListResponse struct {
	Recordings []models.Recording `json:"recordings"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	PerPage    int                `json:"per_page"`
}

// List handles GET /api/v1/recordings with optional status filter,
// ordering and pagination.
func List(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		opts := recordingsService.ListOptions{
			SortBy:  c.DefaultQuery("sort_by", "created_at"),
			Order:   c.DefaultQuery("order", "desc"),
			Page:    intQuery(c, "page", 1),
			PerPage: intQuery(c, "per_page", 20),
		}

		if status := c.Query("status"); status != "" {
			switch models.RecordingStatus(status) {
			case models.StatusPending, models.StatusProcessing, models.StatusDone, models.StatusError:
				opts.Status = models.RecordingStatus(status)
			default:
				types.RespondError(c, apperrors.Newf(apperrors.ErrCodeValidation, "unknown status %q", status))
				return
			}
		}

		items, total, err := deps.Recordings.List(c.Request.Context(), opts)
		if err != nil {
			types.RespondError(c, err)
			return
		}

		c.JSON(http.StatusOK, ListResponse{
			Recordings: items,
			Total:      total,
			Page:       opts.Page,
			PerPage:    opts.PerPage,
		})
	}
}

func intQuery(c *gin.Context, key string, fallback int) int {
	value, err := strconv.Atoi(c.DefaultQuery(key, strconv.Itoa(fallback)))
	if err != nil {
		return fallback
	}
	return value
}
