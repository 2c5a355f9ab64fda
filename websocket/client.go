package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"safewatch/models"
	"safewatch/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Client struct {
	conn         *websocket.Conn
	hub          *Hub
	userID       string
	connectionID string
	connectedAt  time.Time

	// sendMutex guards send against close; closed is set once send is closed
	send      chan models.WSMessage
	sendMutex sync.Mutex
	closed    bool
}

func newClient(conn *websocket.Conn, hub *Hub, userID string) *Client {
	return &Client{
		conn:         conn,
		hub:          hub,
		userID:       userID,
		connectionID: utils.GenerateUUID(),
		connectedAt:  time.Now(),
		send:         make(chan models.WSMessage, sendBufferSize),
	}
}

// ServeWS upgrades an authenticated request and registers the connection for
// the user's event streams.
func (h *Hub) ServeWS(c *gin.Context) {
	userID := utils.GetUserID(c)
	if userID == "" {
		utils.UnauthorizedResponse(c, "Authentication required")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.Errorf("WebSocket upgrade failed for user %s: %v", userID, err)
		return
	}

	client := newClient(conn, h, userID)
	select {
	case h.register <- client:
	case <-h.ctx.Done():
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

// SendMessage queues message without blocking. It reports false when the
// client is too slow and the message was dropped, or already closed.
func (c *Client) SendMessage(message models.WSMessage) bool {
	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- message:
		return true
	default:
		logrus.Warnf("Send buffer full for user %s, dropping %s", c.userID, message.Type)
		return false
	}
}

func (c *Client) close() {
	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump only handles keepalive traffic; the streams are server to client.
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.Errorf("WebSocket error for user %s: %v", c.userID, err)
			}
			return
		}

		var request models.WSRequest
		if err := json.Unmarshal(data, &request); err != nil {
			c.SendMessage(models.WSMessage{Type: models.WSTypeError, Data: "Invalid message format", Timestamp: time.Now()})
			continue
		}

		if request.Type == models.WSTypePing {
			c.SendMessage(models.WSMessage{Type: models.WSTypePong, RequestID: request.RequestID, Timestamp: time.Now()})
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				logrus.Errorf("Write error for user %s: %v", c.userID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
