package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ai-godfather/rec-conv-transcriptor/api/types"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/progress"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func dialProgress(t *testing.T, broadcaster *progress.Broadcaster) *websocket.Conn {
	t.Helper()
	engine := gin.New()
	RegisterRoutes(engine, &types.Dependencies{
		Broadcaster: broadcaster,
		Logger:      zap.NewNop(),
	})
	server := httptest.NewServer(engine)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/progress"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestProgressStreamsEvents(t *testing.T) {
	broadcaster := progress.NewBroadcaster(zap.NewNop())
	conn := dialProgress(t, broadcaster)

	require.Eventually(t, func() bool {
		return broadcaster.SubscriberCount() == 1
	}, time.Second, 10*time.Millisecond)

	broadcaster.Progress(7, "call.wav", "transcribe", 45)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event progress.Event
	require.NoError(t, conn.ReadJSON(&event))

	assert.Equal(t, progress.EventProgress, event.Type)
	assert.Equal(t, uint(7), event.RecordingID)
	assert.Equal(t, "call.wav", event.Filename)
	assert.Equal(t, "transcribe", event.Step)
	assert.Equal(t, 45, event.Percent)
}

func TestProgressUnsubscribesOnDisconnect(t *testing.T) {
	broadcaster := progress.NewBroadcaster(zap.NewNop())
	conn := dialProgress(t, broadcaster)

	require.Eventually(t, func() bool {
		return broadcaster.SubscriberCount() == 1
	}, time.Second, 10*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool {
		return broadcaster.SubscriberCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
