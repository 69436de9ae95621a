package websocket

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/HSouheill/leadbridge_admin/models"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 32
)

var errHubStopped = errors.New("operator feed is shutting down")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one connected operator console.
type Client struct {
	OperatorID string
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
}

// HandleWebSocket upgrades an authenticated operator request and attaches it to the hub.
func HandleWebSocket(c echo.Context, hub *Hub, session *models.Session) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &Client{
		OperatorID: session.OperatorID,
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBuffer),
	}

	select {
	case hub.register <- client:
	case <-hub.done:
		conn.Close()
		return errHubStopped
	}

	go client.writePump()
	go client.readPump()
	return nil
}

// readPump only watches for disconnects and answers "ping" text frames.
func (c *Client) readPump() {
	defer c.hub.leave(c)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("operator socket closed", zap.String("operator_id", c.OperatorID), zap.Error(err))
			}
			return
		}
		if messageType == websocket.TextMessage && strings.EqualFold(strings.TrimSpace(string(message)), "ping") {
			c.hub.enqueue(c, models.Notification{Type: NotificationTypePong, OperatorID: c.OperatorID, At: time.Now().UTC()})
		}
	}
}

func (c *Client) writePump() {
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
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
