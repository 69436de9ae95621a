package controllers

import (
	"net/http"

	"github.com/HSouheill/leadbridge_admin/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// NotificationController serves the operators' live feed.
type NotificationController struct {
	hub    *websocket.Hub
	logger *zap.Logger
}

func NewNotificationController(hub *websocket.Hub, logger *zap.Logger) *NotificationController {
	return &NotificationController{hub: hub, logger: logger}
}

// Feed upgrades the request to a websocket that receives approval and payout events.
func (nc *NotificationController) Feed(c echo.Context) error {
	sess := session(c)
	if sess == nil {
		return fail(c, http.StatusUnauthorized, "Unauthorized")
	}
	if err := websocket.HandleWebSocket(c, nc.hub, sess); err != nil {
		nc.logger.Warn("operator feed upgrade failed", zap.String("operator_id", sess.OperatorID), zap.Error(err))
		return nil
	}
	return nil
}

// Online reports how many operator consoles are connected.
func (nc *NotificationController) Online(c echo.Context) error {
	return ok(c, "Operators online", map[string]int{"connected": nc.hub.Connected()})
}
