package handler_test

import (
	"net/http"
	"testing"

	"hangout/internal/domain"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestNotificationGateway_PingAndDelivery(t *testing.T) {
	req := require.New(t)
	e := newEnv(t)
	inbox := e.dial(t, "/ws/notifications/", e.token(t, e.leader))
	req.Eventually(func() bool { return e.hub.Size(domain.UserGroup(e.leader.ID)) == 1 }, timeout, tick)

	send(t, inbox, map[string]any{"type": "ping"})
	req.Equal(frame{"type": "pong"}, read(t, inbox))

	// other inbound traffic is ignored
	send(t, inbox, map[string]any{"type": "subscribe"})

	bob, _ := e.connect(t, e.guest)
	send(t, bob, map[string]any{"message": "are you coming?"})

	ev := read(t, inbox)
	req.Equal("notification", ev["type"])
	n := ev["notification"].(map[string]any)
	req.Equal(string(domain.NotificationNewMessage), n["notification_type"])
	req.Equal(string(domain.TopicChat), n["topic"])
	req.Equal("bob: are you coming?", n["message"])
	req.Equal("Night market", n["plan_title"])
	req.Equal("bob", n["actor"].(map[string]any)["username"])
	req.Equal(false, n["is_read"])
}

func TestNotificationGateway_DisconnectLeavesGroup(t *testing.T) {
	req := require.New(t)
	e := newEnv(t)
	inbox := e.dial(t, "/ws/notifications/", e.token(t, e.leader))
	group := domain.UserGroup(e.leader.ID)
	req.Eventually(func() bool { return e.hub.Size(group) == 1 }, timeout, tick)

	req.NoError(inbox.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	req.Eventually(func() bool { return e.hub.Size(group) == 0 }, timeout, tick)
}

func TestNotificationGateway_RejectsAnonymous(t *testing.T) {
	e := newEnv(t)
	_, resp, err := websocket.DefaultDialer.Dial(e.wsURL("/ws/notifications", "garbage"), nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Zero(t, e.hub.Size(domain.UserGroup(e.leader.ID)))
}
