package recordings

import (
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ai-godfather/rec-conv-transcriptor/api/types"
	apperrors "github.com/ai-godfather/rec-conv-transcriptor/pkg/errors"
)

func recordingID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, apperrors.Newf(apperrors.ErrCodeValidation, "invalid recording id %q", c.Param("id"))
	}
	return uint(id), nil
}

// Get handles GET /api/v1/recordings/:id, returning the recording with its
// transcript and speaker roles.
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := recordingID(c)
		if err != nil {
			types.RespondError(c, err)
			return
		}

		recording, err := deps.Recordings.Get(c.Request.Context(), id)
		if err != nil {
			types.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, recording)
	}
}

// GetSegments handles GET /api/v1/recordings/:id/segments, ordered by
// start time.
func GetSegments(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := recordingID(c)
		if err != nil {
			types.RespondError(c, err)
			return
		}

		segments, err := deps.Recordings.GetSegments(c.Request.Context(), id)
		if err != nil {
			types.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"recording_id": id, "segments": segments})
	}
}

// GetAudio handles GET /api/v1/recordings/:id/audio and serves the original
// file from disk.
func GetAudio(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := recordingID(c)
		if err != nil {
			types.RespondError(c, err)
			return
		}

		recording, err := deps.Recordings.Get(c.Request.Context(), id)
		if err != nil {
			types.RespondError(c, err)
			return
		}

		if _, err := os.Stat(recording.Filepath); err != nil {
			types.RespondError(c, apperrors.Newf(apperrors.ErrCodeNotFound,
				"audio file for recording %d is missing on disk", id))
			return
		}
		c.FileAttachment(recording.Filepath, recording.Filename)
	}
}
