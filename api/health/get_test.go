package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-godfather/rec-conv-transcriptor/api/types"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/database"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubController struct{}

func (stubController) StartWatching() error { return nil }
func (stubController) StopWatching() error  { return nil }
func (stubController) Status() types.PipelineStatus {
	return types.PipelineStatus{Watching: true, Workers: 1}
}

func getHealth(t *testing.T, deps *types.Dependencies) (int, map[string]interface{}) {
	t.Helper()
	engine := gin.New()
	RegisterRoutes(engine, deps)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestHealthWithDatabase(t *testing.T) {
	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	code, body := getHealth(t, &types.Dependencies{DB: db, Pipeline: stubController{}})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "healthy", body["database"].(map[string]interface{})["status"])

	pipeline := body["pipeline"].(map[string]interface{})
	assert.Equal(t, true, pipeline["watching"])
}

func TestHealthWithoutDatabase(t *testing.T) {
	code, body := getHealth(t, &types.Dependencies{})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "not configured", body["database"].(map[string]interface{})["status"])
	assert.NotContains(t, body, "pipeline")
}
