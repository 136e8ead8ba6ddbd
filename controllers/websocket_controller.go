package controllers

import (
	"PinguinGuard/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type WebSocketController struct {
	Hub    *websocket.Hub
	Logger *zap.Logger
}

func NewWebSocketController(hub *websocket.Hub, logger *zap.Logger) *WebSocketController {
	return &WebSocketController{Hub: hub, Logger: logger}
}

// ServeWs upgrades the request to the live event feed of the caller.
func (wc *WebSocketController) ServeWs(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	if err := websocket.ServeWs(wc.Hub, c.Writer, c.Request, s); err != nil {
		// The upgrader has already answered the client.
		wc.Logger.Info("websocket upgrade failed", zap.String("user_id", s.UserID), zap.Error(err))
	}
}
