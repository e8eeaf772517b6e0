package handlers

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"page-composer-backend/internal/composer"
	"page-composer-backend/internal/session"
	"page-composer-backend/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// EventsHandler streams a session's bus events to the builder client over
// websocket, one frame per event.
type EventsHandler struct {
	manager  *session.Manager
	upgrader websocket.Upgrader
}

func NewEventsHandler(manager *session.Manager) *EventsHandler {
	return &EventsHandler{
		manager: manager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// streamClient decouples bus fan-out from the socket: events are enqueued
// non-blocking and a slow consumer loses frames instead of stalling the
// publisher.
type streamClient struct {
	conn   *websocket.Conn
	send   chan composer.Event
	closed atomic.Bool
}

func (cl *streamClient) enqueue(ev composer.Event) {
	if cl.closed.Load() {
		return
	}
	select {
	case cl.send <- ev:
	default:
	}
}

func (cl *streamClient) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()

	for {
		select {
		case ev := <-cl.send:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Stream upgrades the connection and forwards bus events until the client
// disconnects.
// GET /api/builder/sessions/:id/events
func (h *EventsHandler) Stream(c *gin.Context) {
	s, ok := h.manager.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error(err, "Websocket upgrade failed", map[string]interface{}{"session_id": s.ID})
		return
	}

	client := &streamClient{
		conn: conn,
		send: make(chan composer.Event, 32),
	}
	subscription := s.Bus().Subscribe(client.enqueue)
	defer s.Bus().Unsubscribe(subscription)

	go client.writeLoop()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	client.closed.Store(true)
	conn.Close()
}
