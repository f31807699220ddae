package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"spinwin-backend/internal/logging"
	"spinwin-backend/internal/models"
	"spinwin-backend/internal/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	sessions *services.SessionManager
	hub      *WebSocketHub
}

type WebSocketHub struct {
	clients    map[string]*websocket.Conn
	register   chan *Client
	unregister chan *Client
	outbound   chan *Message
}

type Client struct {
	UserID string
	Conn   *websocket.Conn
}

type Message struct {
	Type   string      `json:"type"`
	UserID string      `json:"user_id,omitempty"`
	Data   interface{} `json:"data"`
}

func NewWebSocketHandler(sessions *services.SessionManager, events *services.Emitter) *WebSocketHandler {
	hub := &WebSocketHub{
		clients:    make(map[string]*websocket.Conn),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		outbound:   make(chan *Message, 100),
	}

	go hub.run()
	go forwardPermissionEvents(hub, events)

	return &WebSocketHandler{
		sessions: sessions,
		hub:      hub,
	}
}

// forwardPermissionEvents surfaces store permission diagnostics to live
// clients. The events carry no user id, so they fan out to every connection.
func forwardPermissionEvents(hub *WebSocketHub, events *services.Emitter) {
	for pe := range events.Subscribe() {
		hub.outbound <- &Message{
			Type: "permission_error",
			Data: pe,
		}
	}
}

// NotifyBalance pushes the authoritative user record to its owner after a
// ledger mutation.
func (h *WebSocketHandler) NotifyBalance(userID string, user *models.User) {
	select {
	case h.hub.outbound <- &Message{
		Type:   "balance",
		UserID: userID,
		Data: gin.H{
			"points":      user.Points,
			"daily_spins": user.DailySpins,
		},
	}:
	default:
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID := c.GetString("user_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Sugar.Warnw("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		UserID: userID,
		Conn:   conn,
	}

	h.hub.register <- client

	defer func() {
		h.hub.unregister <- client
		conn.Close()
	}()

	// Initial snapshot so the client renders without a second round trip.
	if sess, loadErr := h.sessions.GetOrLoad(c.Request.Context(), userID); loadErr == nil {
		if user, ok := sess.User(); ok {
			conn.WriteJSON(&Message{
				Type:   "balance",
				UserID: userID,
				Data: gin.H{
					"points":      user.Points,
					"daily_spins": user.DailySpins,
				},
			})
		}
	}

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	}
}

func (hub *WebSocketHub) run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case client := <-hub.register:
			hub.clients[client.UserID] = client.Conn

		case client := <-hub.unregister:
			if conn, ok := hub.clients[client.UserID]; ok && conn == client.Conn {
				delete(hub.clients, client.UserID)
			}

		case msg := <-hub.outbound:
			if msg.UserID != "" {
				if conn, ok := hub.clients[msg.UserID]; ok {
					if err := conn.WriteJSON(msg); err != nil {
						conn.Close()
						delete(hub.clients, msg.UserID)
					}
				}
				continue
			}
			for userID, conn := range hub.clients {
				if err := conn.WriteJSON(msg); err != nil {
					conn.Close()
					delete(hub.clients, userID)
				}
			}

		case <-ticker.C:
			for userID, conn := range hub.clients {
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					conn.Close()
					delete(hub.clients, userID)
				}
			}
		}
	}
}
