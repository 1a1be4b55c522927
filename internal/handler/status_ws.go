package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"botdesk/internal/auth"
	"botdesk/internal/service"
)

// StatusFeedHandler streams the reconciled bot status view over a WebSocket
// so dashboards do not have to poll. Each connection gets its own ticker.
type StatusFeedHandler struct {
	Status   *service.StatusService
	Logger   *zap.Logger
	Interval time.Duration
}

func (h *StatusFeedHandler) Register(r *gin.Engine) {
	r.GET("/config/bot-status/ws", h.feed)
}

// @Summary Live bot status feed
// @Tags config
// @Success 101 {string} string "switching protocols"
// @Router /config/bot-status/ws [get]
func (h *StatusFeedHandler) feed(c *gin.Context) {
	userID := auth.UserID(c)
	conn, err := websocket.Accept(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closed")

	ctx := c.Request.Context()
	interval := h.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		views, err := h.Status.UserBotStatus(ctx, userID)
		if err != nil {
			h.Logger.Warn("status feed fetch failed",
				zap.String("user_id", userID),
				zap.Error(err),
			)
			conn.Close(websocket.StatusInternalError, "status fetch failed")
			return
		}
		if err := wsjson.Write(ctx, conn, gin.H{"success": true, "data": views}); err != nil {
			// Client went away.
			return
		}
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "shutdown")
			return
		case <-ticker.C:
		}
	}
}
