package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/HSouheill/leadbridge_admin/models"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startFeed(t *testing.T) (*Hub, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(nil, zap.NewNop())
	go hub.Run(ctx)

	e := echo.New()
	e.GET("/ws", func(c echo.Context) error {
		return HandleWebSocket(c, hub, &models.Session{OperatorID: c.QueryParam("op"), Role: models.RoleAdmin})
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readNotification(t *testing.T, conn *websocket.Conn) models.Notification {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var n models.Notification
	require.NoError(t, json.Unmarshal(raw, &n))
	return n
}

func TestHubBroadcastsToOperators(t *testing.T) {
	hub, url := startFeed(t)

	first := dial(t, url+"?op=op-1")
	second := dial(t, url+"?op=op-2")

	welcome := readNotification(t, first)
	assert.Equal(t, NotificationTypeConnected, welcome.Type)
	assert.Equal(t, "op-1", welcome.OperatorID)
	assert.Equal(t, NotificationTypeConnected, readNotification(t, second).Type)

	hub.Publish("lead_approved", "Lead l1 approved", map[string]string{"leadId": "l1"})

	for _, conn := range []*websocket.Conn{first, second} {
		n := readNotification(t, conn)
		assert.Equal(t, "lead_approved", n.Type)
		assert.Equal(t, "Lead l1 approved", n.Message)
		assert.False(t, n.At.IsZero())
	}
}

func TestHubSendToOperator(t *testing.T) {
	hub, url := startFeed(t)

	conn := dial(t, url+"?op=op-7")
	readNotification(t, conn)

	require.NoError(t, hub.SendToOperator("op-7", models.Notification{Type: "direct", Message: "hello"}))
	assert.Equal(t, "direct", readNotification(t, conn).Type)

	assert.ErrorIs(t, hub.SendToOperator("nobody", models.Notification{Type: "direct"}), ErrOperatorNotConnected)
}

func TestHubAnswersPing(t *testing.T) {
	_, url := startFeed(t)

	conn := dial(t, url+"?op=op-3")
	readNotification(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))
	assert.Equal(t, NotificationTypePong, readNotification(t, conn).Type)
}

func TestHubUnregistersClosedConsoles(t *testing.T) {
	hub, url := startFeed(t)

	conn := dial(t, url+"?op=op-9")
	readNotification(t, conn)
	assert.Equal(t, 1, hub.Connected())

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Connected() == 0 }, 2*time.Second, 10*time.Millisecond)
}
