package handler_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hangout/config"
	"hangout/internal/auth"
	"hangout/internal/database"
	"hangout/internal/database/dbtest"
	"hangout/internal/models"
	"hangout/internal/router"
	"hangout/internal/ws"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const planEventsSecret = "plan-events-secret"

type env struct {
	srv    *httptest.Server
	db     *gorm.DB
	hub    *ws.Hub
	cfg    *config.Config
	leader *models.User
	guest  *models.User
	plan   *models.Plan
}

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Env: "test", RateLimit: 1000, RateWindow: time.Minute},
		Database: config.DatabaseConfig{Driver: "sqlite", Workers: 4},
		JWT:      config.JWTConfig{AccessSecret: "test-secret", AccessExpiry: time.Hour, Issuer: "hangout"},
		Chat: config.ChatConfig{
			Timezone:             "Asia/Bangkok",
			SendBuffer:           64,
			MaxMessagesPerMinute: 60,
			WriteWait:            time.Second,
			PongWait:             10 * time.Second,
			MaxFrameBytes:        1 << 16,
		},
		Internal: config.InternalConfig{PlanEventsSecret: planEventsSecret},
	}
}

func newEnv(t *testing.T, opts ...func(*config.Config)) *env {
	t.Helper()
	req := require.New(t)
	cfg := testConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	e := &env{db: dbtest.New(t), hub: ws.NewHub(log), cfg: cfg}
	engine, cleanup := router.Setup(cfg, e.db, e.hub, nil, log)
	e.srv = httptest.NewServer(engine)
	t.Cleanup(cleanup)
	t.Cleanup(e.srv.Close)

	var err error
	e.leader, err = database.CreateUser(e.db, "ann", "")
	req.NoError(err)
	e.guest, err = database.CreateUser(e.db, "bob", "")
	req.NoError(err)
	e.plan, err = database.CreatePlan(e.db, "Night market", e.leader.ID, nil)
	req.NoError(err)
	req.NoError(database.AddParticipant(e.db, e.plan.ID, e.guest.ID))
	return e
}

func (e *env) token(t *testing.T, u *models.User) string {
	t.Helper()
	token, err := auth.GenerateAccessToken(&e.cfg.JWT, u.ID, u.Username)
	require.NoError(t, err)
	return token
}

func (e *env) wsURL(path, token string) string {
	return "ws" + strings.TrimPrefix(e.srv.URL, "http") + path + "?token=" + token
}

func (e *env) dial(t *testing.T, path, token string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(e.wsURL(path, token), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

type frame map[string]any

func read(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

func (e *env) do(t *testing.T, method, path, token string, body any) (int, frame) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = strings.NewReader(string(b))
	}
	httpReq, err := http.NewRequest(method, e.srv.URL+path, r)
	require.NoError(t, err)
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(httpReq)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out frame
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}
