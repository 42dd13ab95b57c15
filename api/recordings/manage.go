package recordings

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ai-godfather/rec-conv-transcriptor/api/types"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/models"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/ingest"
	apperrors "github.com/ai-godfather/rec-conv-transcriptor/pkg/errors"
)

const cancelDrainTimeout = 5 * time.Second

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Reprocess handles POST /api/v1/recordings/:id/reprocess. A waiting or
// running job for the recording is cancelled first, then the recording is
// reset to pending and queued again.
func Reprocess(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := recordingID(c)
		if err != nil {
			types.RespondError(c, err)
			return
		}

		if deps.Queue.Cancel(id) {
			if !waitIdle(deps.Queue, id, cancelDrainTimeout) {
				types.RespondError(c, apperrors.Newf(apperrors.ErrCodeJobConflict,
					"recording %d did not stop processing in time", id))
				return
			}
		}

		recording, err := deps.Recordings.Get(c.Request.Context(), id)
		if err != nil {
			types.RespondError(c, err)
			return
		}
		if recording.IsTerminal() {
			recording, err = deps.Recordings.PrepareReprocess(c.Request.Context(), id)
			if err != nil {
				types.RespondError(c, err)
				return
			}
		} else if recording.Status != models.StatusPending {
			types.RespondError(c, apperrors.Newf(apperrors.ErrCodeJobConflict,
				"recording %d is %s and cannot be reprocessed now", id, recording.Status))
			return
		}

		err = deps.Queue.Enqueue(c.Request.Context(), ingest.Job{
			RecordingID: recording.ID,
			Filepath:    recording.Filepath,
			Filename:    recording.Filename,
		})
		if err != nil {
			types.RespondError(c, err)
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"status":       "queued",
			"recording_id": recording.ID,
		})
	}
}

// waitIdle polls until the queue has no job for the recording.
func waitIdle(queue *ingest.Queue, id uint, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !queue.IsBusy(id) {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return !queue.IsBusy(id)
}

// SwapSpeakers handles POST /api/v1/recordings/:id/swap-speakers, flipping
// agent and customer on every segment and speaker of a finished recording.
func SwapSpeakers(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := recordingID(c)
		if err != nil {
			types.RespondError(c, err)
			return
		}

		if err := deps.Recordings.SwapSpeakers(c.Request.Context(), id); err != nil {
			types.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "swapped", "recording_id": id})
	}
}

// Delete handles DELETE /api/v1/recordings/:id. An active job is cancelled
// first. The database rows go away; the audio file on disk is kept.
func Delete(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := recordingID(c)
		if err != nil {
			types.RespondError(c, err)
			return
		}

		if deps.Queue != nil && deps.Queue.Cancel(id) {
			if !waitIdle(deps.Queue, id, cancelDrainTimeout) {
				types.RespondError(c, apperrors.Newf(apperrors.ErrCodeJobConflict,
					"recording %d did not stop processing in time", id))
				return
			}
		}

		if err := deps.Recordings.Delete(c.Request.Context(), id); err != nil {
			types.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "deleted", "recording_id": id})
	}
}
