package pipeline

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ai-godfather/rec-conv-transcriptor/api/types"
	apperrors "github.com/ai-godfather/rec-conv-transcriptor/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeController struct {
	watching bool
	startErr error
}

func (f *fakeController) StartWatching() error {
	if f.startErr != nil {
		return f.startErr
	}
	f.watching = true
	return nil
}

func (f *fakeController) StopWatching() error {
	f.watching = false
	return nil
}

func (f *fakeController) Status() types.PipelineStatus {
	return types.PipelineStatus{Watching: f.watching, Workers: 2}
}

func newPipelineRouter(ctrl types.PipelineController) *gin.Engine {
	engine := gin.New()
	RegisterRoutes(engine.Group("/api/v1/pipeline"), &types.Dependencies{
		Pipeline: ctrl,
		Logger:   zap.NewNop(),
	})
	return engine
}

func do(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestPipelineStatus(t *testing.T) {
	engine := newPipelineRouter(&fakeController{watching: true})

	w := do(engine, http.MethodGet, "/api/v1/pipeline/status")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"watching":true`)
	assert.Contains(t, w.Body.String(), `"workers":2`)
}

func TestPipelineStartStop(t *testing.T) {
	ctrl := &fakeController{}
	engine := newPipelineRouter(ctrl)

	w := do(engine, http.MethodPost, "/api/v1/pipeline/start")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, ctrl.watching)

	w = do(engine, http.MethodPost, "/api/v1/pipeline/stop")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, ctrl.watching)
	assert.Contains(t, w.Body.String(), `"watching":false`)
}

func TestPipelineStartFailure(t *testing.T) {
	ctrl := &fakeController{startErr: apperrors.New(apperrors.ErrCodeInternal, "watch dir unavailable")}
	engine := newPipelineRouter(ctrl)

	w := do(engine, http.MethodPost, "/api/v1/pipeline/start")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "watch dir unavailable")
}
