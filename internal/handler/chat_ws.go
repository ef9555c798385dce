package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"hangout/config"
	"hangout/internal/auth"
	"hangout/internal/blocking"
	"hangout/internal/domain"
	"hangout/internal/models"
	"hangout/internal/ratelimit"
	"hangout/internal/service"
	"hangout/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// ChatGateway serves /ws/plan/:plan_id/. Only leaders and participants of the
// plan get a session; everyone else receives an error frame and a 1008 close.
type ChatGateway struct {
	chat       *service.ChatService
	verifier   auth.Verifier
	pool       *blocking.Pool
	layer      ws.Layer
	throttle   *ratelimit.Limiter
	timing     ws.Timing
	sendBuffer int
	log        *slog.Logger
}

func NewChatGateway(chat *service.ChatService, verifier auth.Verifier, pool *blocking.Pool, layer ws.Layer, cfg *config.ChatConfig, log *slog.Logger) *ChatGateway {
	g := &ChatGateway{
		chat:       chat,
		verifier:   verifier,
		pool:       pool,
		layer:      layer,
		timing:     timingFrom(cfg),
		sendBuffer: cfg.SendBuffer,
		log:        log,
	}
	if cfg.MaxMessagesPerMinute > 0 {
		g.throttle = ratelimit.New(cfg.MaxMessagesPerMinute, time.Minute)
	}
	return g
}

func timingFrom(cfg *config.ChatConfig) ws.Timing {
	return ws.Timing{WriteWait: cfg.WriteWait, PongWait: cfg.PongWait, MaxFrame: cfg.MaxFrameBytes}
}

// Close stops the send throttle.
func (g *ChatGateway) Close() {
	if g.throttle != nil {
		g.throttle.Stop()
	}
}

type chatSession struct {
	conn     *websocket.Conn
	client   *ws.Client
	user     auth.Principal
	thread   *models.ChatThread
	group    string
	chat     *service.ChatService
	layer    ws.Layer
	throttle *ratelimit.Limiter
	log      *slog.Logger
}

// Serve upgrades first so that every rejection can be explained in-band.
func (g *ChatGateway) Serve(c *gin.Context) {
	conn, err := ws.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.log.Debug("Chat upgrade failed", "error", err)
		return
	}
	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request.Context()))
	defer cancel()

	s, reason := g.open(ctx, conn, c.Param("plan_id"), c.Query("token"))
	if s == nil && reason == "" {
		return
	}
	if s == nil {
		g.log.Info("Chat connection rejected", "plan_id", c.Param("plan_id"), "reason", reason)
		ws.Reject(conn, reason, g.timing.WriteWait)
		return
	}
	s.run(ctx, g.timing)
}

func (g *ChatGateway) open(ctx context.Context, conn *websocket.Conn, rawPlanID, token string) (*chatSession, string) {
	id, err := strconv.ParseUint(rawPlanID, 10, 64)
	if err != nil || id == 0 {
		return nil, "Invalid plan ID."
	}
	planID := uint(id)

	user, err := verify(ctx, g.pool, g.verifier, token)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidToken) {
			g.log.Error("Failed to verify chat token", "plan_id", planID, "error", err)
		}
		return nil, "You must log in to join this chat."
	}
	ok, err := g.chat.VerifyAccess(ctx, planID, user.UserID)
	if err != nil {
		return nil, somethingWentWrong(err)
	}
	if !ok {
		return nil, "Please join this plan before accessing its chat."
	}
	thread, err := g.chat.GetOrCreateThread(ctx, planID, user.UserID)
	if errors.Is(err, service.ErrPlanNotFound) {
		return nil, "Plan not found or access denied."
	}
	if err != nil {
		return nil, somethingWentWrong(err)
	}
	if err := g.chat.EnsureMember(ctx, thread.ID, user.UserID); err != nil {
		return nil, somethingWentWrong(err)
	}

	s := &chatSession{
		conn:     conn,
		client:   ws.NewClient(user.UserID, g.sendBuffer),
		user:     *user,
		thread:   thread,
		group:    domain.PlanGroup(planID),
		chat:     g.chat,
		layer:    g.layer,
		throttle: g.throttle,
	}
	s.log = g.log.With("plan_id", planID, "user_id", user.UserID, "client_id", s.client.ID)
	g.layer.Join(s.group, s.client)

	// History is read after joining so nothing sent in between is lost.
	history, err := g.chat.History(ctx, thread.ID)
	if err != nil {
		s.leave()
		return nil, somethingWentWrong(err)
	}
	connected := gin.H{"status": "connected", "plan_id": planID, "message": "Connected as " + user.DisplayName}
	if err := ws.WriteJSON(conn, g.timing.WriteWait, connected); err != nil {
		s.leave()
		_ = conn.Close()
		return nil, ""
	}
	if err := ws.WriteJSON(conn, g.timing.WriteWait, gin.H{"type": "chat_history", "messages": history}); err != nil {
		s.leave()
		_ = conn.Close()
		return nil, ""
	}
	s.log.Info("Chat connected", "thread_id", thread.ID, "history", len(history))
	return s, ""
}

func somethingWentWrong(err error) string {
	return fmt.Sprintf("Something went wrong: %v", err)
}

func verify(ctx context.Context, pool *blocking.Pool, v auth.Verifier, token string) (*auth.Principal, error) {
	return blocking.Call(ctx, pool, func(ctx context.Context) (*auth.Principal, error) {
		return v.Verify(ctx, token)
	})
}

func (s *chatSession) run(ctx context.Context, t ws.Timing) {
	done := make(chan struct{})
	go func() {
		ws.WritePump(s.conn, s.client, t)
		close(done)
	}()
	ws.PrepareRead(s.conn, t)
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				s.log.Debug("Chat read ended", "error", err)
			}
			break
		}
		s.dispatch(ctx, raw)
	}
	s.leave()
	<-done
	s.log.Info("Chat disconnected")
}

// leave is safe to call more than once.
func (s *chatSession) leave() {
	s.layer.Leave(s.group, s.client)
	if s.throttle != nil {
		s.throttle.Forget(s.client.ID)
	}
	s.client.Close()
}

func (s *chatSession) publish(ctx context.Context, event any) {
	if err := s.layer.Publish(ctx, s.group, event); err != nil {
		s.log.Warn("Failed to publish chat event", "error", err)
	}
}

func (s *chatSession) replyError(msg string) {
	data, _ := json.Marshal(gin.H{"error": msg})
	if !s.client.Deliver(data) {
		s.log.Warn("Dropped chat error frame", "error_message", msg)
	}
}
