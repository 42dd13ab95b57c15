package recordings

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ai-godfather/rec-conv-transcriptor/api/types"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/ingest"
	apperrors "github.com/ai-godfather/rec-conv-transcriptor/pkg/errors"
)

// Upload handles POST /api/v1/recordings. The multipart "file" field is
// stored in the watch directory under a collision-free name, registered and
// queued immediately.
func Upload(deps *types.Dependencies) gin.HandlerFunc {
	allowed := make(map[string]bool, len(deps.Config.Watcher.Extensions))
	for _, ext := range deps.Config.Watcher.Extensions {
		allowed[strings.ToLower(ext)] = true
	}

	return func(c *gin.Context) {
		file, err := c.FormFile("file")
		if err != nil {
			types.RespondError(c, apperrors.Wrap(err, apperrors.ErrCodeValidation, "multipart field 'file' is required"))
			return
		}

		ext := strings.ToLower(filepath.Ext(file.Filename))
		if !allowed[ext] {
			types.RespondError(c, apperrors.Newf(apperrors.ErrCodeValidation,
				"unsupported file extension %q", ext))
			return
		}

		destination := uniquePath(deps.Config.Watcher.Dir, filepath.Base(file.Filename))
		if err := c.SaveUploadedFile(file, destination); err != nil {
			types.RespondError(c, apperrors.IOFailure(destination, err))
			return
		}

		recording, needsRun, err := deps.Recordings.Register(c.Request.Context(), destination)
		if err != nil {
			types.RespondError(c, err)
			return
		}
		if needsRun {
			err = deps.Queue.Enqueue(c.Request.Context(), ingest.Job{
				RecordingID: recording.ID,
				Filepath:    recording.Filepath,
				Filename:    recording.Filename,
			})
			if err != nil && !apperrors.Is(err, apperrors.ErrCodeJobConflict) {
				types.RespondError(c, err)
				return
			}
		}

		c.JSON(http.StatusCreated, recording)
	}
}

// uniquePath appends a numeric suffix until the name is free in dir.
func uniquePath(dir, name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	candidate := filepath.Join(dir, name)
	for i := 1; pathExists(candidate); i++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, i, ext))
	}
	return candidate
}
