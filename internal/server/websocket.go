package server

import (
	"net/http"
	"strings"
	"time"

	"flotilla/internal/events"
	"flotilla/internal/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	// eventStreamBuffer bounds the per-connection backlog; a consumer that
	// falls further behind starts losing events
	eventStreamBuffer = 64

	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		// Allow connections without origin header (e.g., CLI tools)
		if origin == "" {
			return true
		}

		allowedOrigins := []string{
			"http://localhost",
			"https://localhost",
			"http://127.0.0.1",
			"https://127.0.0.1",
			"http://[::1]",
			"https://[::1]",
		}
		for _, allowed := range allowedOrigins {
			if strings.HasPrefix(origin, allowed) {
				return true
			}
		}

		logger.WithFields(logger.Fields{
			"origin": origin,
			"remote": r.RemoteAddr,
		}).Warn("WebSocket connection rejected - invalid origin")
		return false
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// handleEventStream streams live lifecycle events over a websocket. Each
// connection gets its own bus subscription which is dropped on disconnect.
func (s *Server) handleEventStream(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.WithError(err).Error("Failed to upgrade WebSocket connection")
		return err
	}
	defer ws.Close()

	stream := make(chan events.Event, eventStreamBuffer)
	unsubscribe := s.bus.Subscribe(func(event events.Event) {
		select {
		case stream <- event:
		default:
			logger.WithFields(logger.Fields{
				"event_type": string(event.Type),
				"remote":     ws.RemoteAddr().String(),
			}).Warn("Dropping event for slow websocket consumer")
		}
	})
	defer unsubscribe()

	// Reader goroutine: the client sends nothing meaningful, but reading is
	// required to notice closes and answer control frames.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return nil
		case <-c.Request().Context().Done():
			return nil
		case event := <-stream:
			ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := ws.WriteJSON(event); err != nil {
				return nil
			}
		case <-ping.C:
			ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}
