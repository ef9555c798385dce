package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"hangout/config"
	"hangout/internal/auth"
	"hangout/internal/blocking"
	"hangout/internal/domain"
	"hangout/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// NotificationGateway serves /ws/notifications/. The channel is server to
// client only; the single inbound frame it answers is ping.
type NotificationGateway struct {
	verifier   auth.Verifier
	pool       *blocking.Pool
	layer      ws.Layer
	timing     ws.Timing
	sendBuffer int
	log        *slog.Logger
}

func NewNotificationGateway(verifier auth.Verifier, pool *blocking.Pool, layer ws.Layer, cfg *config.ChatConfig, log *slog.Logger) *NotificationGateway {
	return &NotificationGateway{
		verifier:   verifier,
		pool:       pool,
		layer:      layer,
		timing:     timingFrom(cfg),
		sendBuffer: cfg.SendBuffer,
		log:        log,
	}
}

var pongFrame = []byte(`{"type":"pong"}`)

func (g *NotificationGateway) Serve(c *gin.Context) {
	user, err := verify(c.Request.Context(), g.pool, g.verifier, c.Query("token"))
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidToken) {
			g.log.Error("Failed to verify notification token", "error", err)
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	conn, err := ws.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.log.Debug("Notification upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(user.UserID, g.sendBuffer)
	group := domain.UserGroup(user.UserID)
	log := g.log.With("user_id", user.UserID, "client_id", client.ID)
	g.layer.Join(group, client)

	done := make(chan struct{})
	go func() {
		ws.WritePump(conn, client, g.timing)
		close(done)
	}()
	defer func() {
		g.layer.Leave(group, client)
		client.Close()
		<-done
	}()
	log.Info("Notifications connected")

	ws.PrepareRead(conn, g.timing)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Debug("Notification read ended", "error", err)
			}
			return
		}
		var in struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(raw, &in) == nil && in.Type == "ping" {
			client.Deliver(pongFrame)
		}
	}
}
