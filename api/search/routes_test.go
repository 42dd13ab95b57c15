package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ai-godfather/rec-conv-transcriptor/api/types"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/database"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/models"
	recordingsService "github.com/ai-godfather/rec-conv-transcriptor/internal/services/recordings"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newSearchRouter(t *testing.T) *gin.Engine {
	t.Helper()
	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"), false)
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	repo := recordingsService.NewRepository(db.DB)
	ctx := context.Background()

	rec := &models.Recording{Filename: "call.wav", Filepath: "/inbox/call.wav", Status: models.StatusPending}
	require.NoError(t, repo.Create(ctx, rec))
	ok, err := repo.UpdateStatus(ctx, rec.ID, models.StatusPending, models.StatusProcessing, "")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, repo.SaveResult(ctx, rec.ID, &recordingsService.PipelineResult{
		Duration:   10,
		Transcript: models.Transcript{FullText: "[Agent] we ship the premium package tomorrow"},
		Segments: []models.Segment{
			{SpeakerLabel: "L", Role: models.RoleAgent, Text: "we ship the premium package tomorrow", StartTime: 0, EndTime: 4},
		},
	}))

	deps := &types.Dependencies{
		Recordings: recordingsService.NewService(repo, zap.NewNop()),
		Logger:     zap.NewNop(),
	}
	engine := gin.New()
	RegisterRoutes(engine.Group("/api/v1/search"), deps)
	return engine
}

func get(engine *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestSearchFindsTranscriptText(t *testing.T) {
	engine := newSearchRouter(t)

	w := get(engine, "/api/v1/search?q=premium")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Results []recordingsService.SearchHit `json:"results"`
		Count   int                           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotZero(t, resp.Count)
	assert.Equal(t, "call.wav", resp.Results[0].Filename)
	assert.Contains(t, resp.Results[0].Snippet, "premium")
}

func TestSearchNoMatches(t *testing.T) {
	engine := newSearchRouter(t)

	w := get(engine, "/api/v1/search?q=zebra")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":0`)
}

func TestSearchMissingQuery(t *testing.T) {
	engine := newSearchRouter(t)
	w := get(engine, "/api/v1/search")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
