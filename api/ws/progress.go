// Package ws serves live pipeline progress over websockets.
package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ai-godfather/rec-conv-transcriptor/api/types"
	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/progress"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// progress events are public to anyone who can reach the API
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RegisterRoutes registers the progress websocket endpoint.
func RegisterRoutes(engine *gin.Engine, deps *types.Dependencies) {
	engine.GET("/ws/progress", Progress(deps))
}

// Progress upgrades the connection and streams broadcaster events until the
// client disconnects.
func Progress(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			deps.Logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		id, events := deps.Broadcaster.Subscribe()
		deps.Logger.Info("progress client connected", zap.String("subscriber", id))

		go writeLoop(conn, events, deps.Logger.With(zap.String("subscriber", id)))
		readLoop(conn)

		deps.Broadcaster.Unsubscribe(id)
		conn.Close()
		deps.Logger.Info("progress client disconnected", zap.String("subscriber", id))
	}
}

// readLoop drains client frames so close and pong handling work. Clients
// are not expected to send anything meaningful.
func readLoop(conn *websocket.Conn) {
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeLoop(conn *websocket.Conn, events <-chan progress.Event, logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
