package recordings_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ai-godfather/rec-conv-transcriptor/api"
	"github.com/ai-godfather/rec-conv-transcriptor/api/types"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/database"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/models"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/analyzer"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/classifier"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/engines"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/ingest"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/pipeline"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/progress"
	recordingsService "github.com/ai-godfather/rec-conv-transcriptor/internal/services/recordings"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/supervisor"
	"github.com/ai-godfather/rec-conv-transcriptor/pkg/config"
	"github.com/ai-godfather/rec-conv-transcriptor/pkg/ffmpeg"
)

// IntegrationTestSuite wires the full service with real HTTP engine stubs.
// Only ffmpeg is replaced: routing and channel splitting are faked since
// the test fixtures are not real audio.
type IntegrationTestSuite struct {
	t        *testing.T
	router   *gin.Engine
	deps     *types.Dependencies
	queue    *ingest.Queue
	watchDir string
}

// stubRouter routes by filename so fixtures can choose their path.
type stubRouter struct{}

func (stubRouter) Analyze(ctx context.Context, filePath string) (*analyzer.Decision, error) {
	metadata := &ffmpeg.AudioMetadata{
		Duration:   30,
		SampleRate: 16000,
		Channels:   2,
		Format:     "wav",
	}
	if strings.Contains(filepath.Base(filePath), "mono") {
		metadata.Channels = 1
		return &analyzer.Decision{Route: analyzer.RouteDiarize, Metadata: metadata}, nil
	}
	return &analyzer.Decision{
		Route:    analyzer.RouteSplit,
		Metadata: metadata,
		Energy: &ffmpeg.EnergyProfile{
			RMS:         []float64{0.2, 0.18},
			ActiveRatio: []float64{0.6, 0.5},
		},
	}, nil
}

// stubSplitter copies the source bytes into mono channel files.
type stubSplitter struct{}

func (stubSplitter) SplitChannels(ctx context.Context, inputFile, workDir string) (*ffmpeg.ChannelSplit, error) {
	data, err := os.ReadFile(inputFile)
	if err != nil {
		return nil, err
	}
	split := &ffmpeg.ChannelSplit{
		LeftPath:  filepath.Join(workDir, "left.wav"),
		RightPath: filepath.Join(workDir, "right.wav"),
	}
	if err := os.WriteFile(split.LeftPath, data, 0o644); err != nil {
		return nil, err
	}
	if err := os.WriteFile(split.RightPath, data, 0o644); err != nil {
		return nil, err
	}
	return split, nil
}

func transcriptionFor(filename string) map[string]interface{} {
	switch {
	case strings.Contains(filename, "left"):
		return map[string]interface{}{
			"language": "en",
			"duration": 30.0,
			"segments": []map[string]interface{}{
				{"start": 0.0, "end": 4.0, "text": "Thank you for calling, my name is Anna, how can I help?"},
				{"start": 8.0, "end": 14.0, "text": "I can offer free shipping on the premium package today."},
			},
		}
	case strings.Contains(filename, "right"):
		return map[string]interface{}{
			"language": "en",
			"duration": 30.0,
			"segments": []map[string]interface{}{
				{"start": 4.5, "end": 6.0, "text": "Hello."},
				{"start": 14.5, "end": 16.0, "text": "How much?"},
			},
		}
	default:
		// mono path: one stream covering both speakers
		return map[string]interface{}{
			"language": "en",
			"duration": 30.0,
			"segments": []map[string]interface{}{
				{"start": 0.0, "end": 4.0, "text": "Thank you for calling, my name is Anna, how can I help?"},
				{"start": 4.5, "end": 6.0, "text": "Hello."},
				{"start": 8.0, "end": 14.0, "text": "I can offer free shipping on the premium package today."},
				{"start": 14.5, "end": 16.0, "text": "How much?"},
			},
		}
	}
}

func newEngineServers(t *testing.T) (whisperURL, pyannoteURL string) {
	t.Helper()

	whisper := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(32<<20))
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		json.NewEncoder(w).Encode(transcriptionFor(header.Filename))
	}))
	t.Cleanup(whisper.Close)

	pyannote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"num_speakers": 2,
			"turns": []map[string]interface{}{
				{"speaker": "SPEAKER_00", "start": 0.0, "end": 4.2},
				{"speaker": "SPEAKER_01", "start": 4.4, "end": 6.2},
				{"speaker": "SPEAKER_00", "start": 7.8, "end": 14.2},
				{"speaker": "SPEAKER_01", "start": 14.4, "end": 16.2},
			},
		})
	}))
	t.Cleanup(pyannote.Close)

	return whisper.URL, pyannote.URL
}

func setupIntegrationTestSuite(t *testing.T) *IntegrationTestSuite {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	watchDir := filepath.Join(t.TempDir(), "inbox")
	require.NoError(t, os.MkdirAll(watchDir, 0o755))

	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"), false)
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	repo := recordingsService.NewRepository(db.DB)
	svc := recordingsService.NewService(repo, logger)
	broadcaster := progress.NewBroadcaster(logger)

	whisperURL, pyannoteURL := newEngineServers(t)
	orchestrator := pipeline.New(pipeline.Options{
		Repository: repo,
		Router:     stubRouter{},
		Splitter:   stubSplitter{},
		Transcriber: engines.NewWhisperClient(engines.WhisperConfig{
			BaseURL: whisperURL,
			Model:   "base",
			Timeout: 10 * time.Second,
		}),
		Diarizer: engines.NewPyannoteClient(engines.PyannoteConfig{
			BaseURL: pyannoteURL,
			Timeout: 10 * time.Second,
		}),
		Classifier:   classifier.New(classifier.DefaultWeights(), logger),
		Broadcaster:  broadcaster,
		Logger:       logger,
		StageTimeout: 10 * time.Second,
		TempDir:      t.TempDir(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	queue := ingest.NewQueue(16, 1, orchestrator, logger)
	queue.Start(ctx)
	t.Cleanup(queue.Stop)

	watcherCfg := config.WatcherConfig{
		Dir:          watchDir,
		ScanInterval: 50 * time.Millisecond,
		Debounce:     20 * time.Millisecond,
		Extensions:   []string{".wav", ".mp3"},
	}
	controller := supervisor.New(ctx, watcherCfg, 1, queue, svc, broadcaster, logger)

	deps := &types.Dependencies{
		DB:          db,
		Config:      &config.Config{Watcher: watcherCfg},
		Recordings:  svc,
		Queue:       queue,
		Broadcaster: broadcaster,
		Pipeline:    controller,
		Logger:      logger,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	limiters := api.NewRateLimiters()
	t.Cleanup(limiters.Stop)
	require.NoError(t, api.RegisterRoutes(router, deps, limiters))

	return &IntegrationTestSuite{
		t:        t,
		router:   router,
		deps:     deps,
		queue:    queue,
		watchDir: watchDir,
	}
}

func (suite *IntegrationTestSuite) request(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *IntegrationTestSuite) upload(filename string) *models.Recording {
	suite.t.Helper()

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(suite.t, err)
	_, err = part.Write([]byte("fake audio payload"))
	require.NoError(suite.t, err)
	require.NoError(suite.t, writer.Close())

	w := suite.request(http.MethodPost, "/api/v1/recordings", body, writer.FormDataContentType())
	require.Equal(suite.t, http.StatusCreated, w.Code, w.Body.String())

	var recording models.Recording
	require.NoError(suite.t, json.Unmarshal(w.Body.Bytes(), &recording))
	return &recording
}

func (suite *IntegrationTestSuite) waitDone(id uint) *models.Recording {
	suite.t.Helper()

	var recording models.Recording
	require.Eventually(suite.t, func() bool {
		w := suite.request(http.MethodGet, fmt.Sprintf("/api/v1/recordings/%d", id), nil, "")
		if w.Code != http.StatusOK {
			return false
		}
		if err := json.Unmarshal(w.Body.Bytes(), &recording); err != nil {
			return false
		}
		return recording.Status == models.StatusDone
	}, 10*time.Second, 25*time.Millisecond, "recording %d never reached done", id)
	return &recording
}

func TestStereoUploadEndToEnd(t *testing.T) {
	suite := setupIntegrationTestSuite(t)

	uploaded := suite.upload("stereo_call.wav")
	recording := suite.waitDone(uploaded.ID)

	require.NotNil(t, recording.Transcript)
	assert.Contains(t, recording.Transcript.FullText, "[Agent]")
	assert.Contains(t, recording.Transcript.FullText, "[Customer]")
	require.NotNil(t, recording.Duration)
	assert.InDelta(t, 30.0, *recording.Duration, 0.01)

	w := suite.request(http.MethodGet, fmt.Sprintf("/api/v1/recordings/%d/segments", recording.ID), nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var segments []models.Segment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &segments))
	require.Len(t, segments, 4)

	// sorted by start time, alternating channels
	assert.Equal(t, "L", segments[0].SpeakerLabel)
	assert.Equal(t, models.RoleAgent, segments[0].Role)
	assert.Equal(t, "R", segments[1].SpeakerLabel)
	assert.Equal(t, models.RoleCustomer, segments[1].Role)
}

func TestMonoUploadEndToEnd(t *testing.T) {
	suite := setupIntegrationTestSuite(t)

	uploaded := suite.upload("mono_call.wav")
	recording := suite.waitDone(uploaded.ID)

	require.NotNil(t, recording.Transcript)
	assert.Contains(t, recording.Transcript.FullText, "[Agent] Thank you for calling")
	assert.Contains(t, recording.Transcript.FullText, "[Customer] How much?")
}

func TestSearchAndStatsAfterProcessing(t *testing.T) {
	suite := setupIntegrationTestSuite(t)

	uploaded := suite.upload("stereo_call.wav")
	suite.waitDone(uploaded.ID)

	w := suite.request(http.MethodGet, "/api/v1/search?q=premium", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var searchResp struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &searchResp))
	assert.NotZero(t, searchResp.Count)

	w = suite.request(http.MethodGet, "/api/v1/stats", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats recordingsService.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.Total)
	assert.Equal(t, int64(1), stats.ByStatus[models.StatusDone])
}

func TestReprocessEndToEnd(t *testing.T) {
	suite := setupIntegrationTestSuite(t)

	uploaded := suite.upload("stereo_call.wav")
	first := suite.waitDone(uploaded.ID)
	require.NotNil(t, first.Transcript)

	w := suite.request(http.MethodPost, fmt.Sprintf("/api/v1/recordings/%d/reprocess", uploaded.ID), nil, "")
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	second := suite.waitDone(uploaded.ID)
	require.NotNil(t, second.Transcript)
	assert.Equal(t, first.Transcript.FullText, second.Transcript.FullText)
}

func TestWatcherDiscoversDroppedFile(t *testing.T) {
	suite := setupIntegrationTestSuite(t)

	w := suite.request(http.MethodPost, "/api/v1/pipeline/start", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	path := filepath.Join(suite.watchDir, "dropped_call.wav")
	require.NoError(t, os.WriteFile(path, []byte("fake audio payload"), 0o644))

	var listed struct {
		Recordings []models.Recording `json:"recordings"`
	}
	require.Eventually(t, func() bool {
		resp := suite.request(http.MethodGet, "/api/v1/recordings?status=done", nil, "")
		if resp.Code != http.StatusOK {
			return false
		}
		if err := json.Unmarshal(resp.Body.Bytes(), &listed); err != nil {
			return false
		}
		return len(listed.Recordings) == 1
	}, 10*time.Second, 50*time.Millisecond)

	assert.Equal(t, "dropped_call.wav", listed.Recordings[0].Filename)

	w = suite.request(http.MethodPost, "/api/v1/pipeline/stop", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
}
