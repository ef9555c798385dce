package handler_test

import (
	"fmt"
	"testing"
	"time"

	"hangout/config"
	"hangout/internal/database"
	"hangout/internal/domain"
	"hangout/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func (e *env) chatPath() string {
	return fmt.Sprintf("/ws/plan/%d/", e.plan.ID)
}

// connect opens a chat session and consumes the connected and history frames.
func (e *env) connect(t *testing.T, u *models.User) (*websocket.Conn, []any) {
	t.Helper()
	conn := e.dial(t, e.chatPath(), e.token(t, u))
	hello := read(t, conn)
	require.Equal(t, "connected", hello["status"])
	require.Equal(t, float64(e.plan.ID), hello["plan_id"])
	require.Equal(t, "Connected as "+u.Name(), hello["message"])
	history := read(t, conn)
	require.Equal(t, "chat_history", history["type"])
	return conn, history["messages"].([]any)
}

func TestChatGateway_Conversation(t *testing.T) {
	req := require.New(t)
	e := newEnv(t)

	// Given ann and bob connected to the same plan
	ann, history := e.connect(t, e.leader)
	req.Empty(history)
	bob, _ := e.connect(t, e.guest)

	// When bob says hi, both receive it through the group
	send(t, bob, map[string]any{"message": "hi"})
	for _, conn := range []*websocket.Conn{ann, bob} {
		ev := read(t, conn)
		req.Equal("new_message", ev["type"])
		req.Equal("hi", ev["message"])
		req.Equal(float64(e.guest.ID), ev["user_id"])
		req.Equal("bob", ev["username"])
		req.NotEmpty(ev["timestamp"])
	}

	var msg models.ChatMessage
	req.NoError(e.db.First(&msg).Error)

	send(t, bob, map[string]any{"action": "edit_message", "message_id": msg.ID, "message": "hi there"})
	for _, conn := range []*websocket.Conn{ann, bob} {
		ev := read(t, conn)
		req.Equal("message_edited", ev["type"])
		req.Equal(float64(msg.ID), ev["message_id"])
		req.Equal("hi there", ev["message"])
	}

	send(t, bob, map[string]any{"action": "delete_message", "message_id": msg.ID})
	for _, conn := range []*websocket.Conn{ann, bob} {
		ev := read(t, conn)
		req.Equal("message_deleted", ev["type"])
		req.Equal(float64(msg.ID), ev["message_id"])
	}

	// Then a fresh connection sees an empty history
	_, history = e.connect(t, e.leader)
	req.Empty(history)

	// And ann kept her notification with the message reference cleared
	var n models.Notification
	req.NoError(e.db.Where("user_id = ? AND type = ?", e.leader.ID, domain.NotificationNewMessage).First(&n).Error)
	req.Nil(n.ChatMessageID)
	req.Equal("bob: hi", n.Message)
}

func TestChatGateway_HistoryCarriesReceipts(t *testing.T) {
	req := require.New(t)
	e := newEnv(t)
	bob, _ := e.connect(t, e.guest)
	send(t, bob, map[string]any{"message": "first"})
	ev := read(t, bob)
	msgID := ev["message_id"]

	ann, history := e.connect(t, e.leader)
	req.Len(history, 1)
	entry := history[0].(map[string]any)
	req.Equal("first", entry["message"])
	req.Equal("bob", entry["user"])
	req.Empty(entry["read_receipts"])

	// message ids may arrive as strings
	send(t, ann, map[string]any{"action": "mark_read", "message_ids": []any{fmt.Sprint(msgID)}})
	for _, conn := range []*websocket.Conn{ann, bob} {
		ev := read(t, conn)
		req.Equal("read_receipt", ev["type"])
		req.Equal(msgID, ev["message_id"])
		req.Equal([]any{msgID}, ev["message_ids"])
		req.Equal(float64(e.leader.ID), ev["user_id"])
		receipts := ev["receipts"].([]any)
		req.Len(receipts, 1)
		req.Equal("ann", receipts[0].(map[string]any)["username"])
	}

	_, history = e.connect(t, e.guest)
	receipts := history[0].(map[string]any)["read_receipts"].([]any)
	req.Len(receipts, 1)
	req.Equal("ann", receipts[0].(map[string]any)["username"])
}

func TestChatGateway_InBandErrors(t *testing.T) {
	req := require.New(t)
	e := newEnv(t)
	ann, _ := e.connect(t, e.leader)
	bob, _ := e.connect(t, e.guest)

	send(t, bob, map[string]any{"message": "mine"})
	ev := read(t, bob)
	read(t, ann)
	msgID := ev["message_id"]

	cases := []struct {
		name  string
		frame any
		want  string
	}{
		{"empty body", map[string]any{"message": "   "}, "Message cannot be empty."},
		{"edit without id", map[string]any{"action": "edit_message", "message": "x"}, "Message ID is required."},
		{"edit without body", map[string]any{"action": "edit_message", "message_id": msgID, "message": " "}, "Message content cannot be empty."},
		{"delete without id", map[string]any{"action": "delete_message"}, "Message ID is required."},
		{"mark read without ids", map[string]any{"action": "mark_read", "message_ids": []any{}}, "Message IDs are required."},
		{"edit foreign message", map[string]any{"action": "edit_message", "message_id": msgID, "message": "x"}, "You can only edit your own messages."},
		{"delete foreign message", map[string]any{"action": "delete_message", "message_id": msgID}, "You can only delete your own messages."},
		{"missing message", map[string]any{"action": "delete_message", "message_id": 99999}, "Message not found."},
		{"unknown action", map[string]any{"action": "shout"}, "Unknown action."},
		{"bad id", map[string]any{"action": "delete_message", "message_id": "abc"}, "Invalid message format."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			send(t, ann, tc.frame)
			require.Equal(t, tc.want, read(t, ann)["error"])
		})
	}

	req.NoError(ann.WriteMessage(websocket.TextMessage, []byte("not json")))
	req.Equal("Invalid message format.", read(t, ann)["error"])

	// the session survives every error
	send(t, ann, map[string]any{"message": "still here"})
	req.Equal("new_message", read(t, ann)["type"])

	var count int64
	req.NoError(e.db.Model(&models.ChatMessage{}).Count(&count).Error)
	req.Equal(int64(2), count)
}

func TestChatGateway_Throttle(t *testing.T) {
	e := newEnv(t, func(c *config.Config) { c.Chat.MaxMessagesPerMinute = 2 })
	bob, _ := e.connect(t, e.guest)
	for i := 0; i < 2; i++ {
		send(t, bob, map[string]any{"message": fmt.Sprint("n", i)})
		require.Equal(t, "new_message", read(t, bob)["type"])
	}
	send(t, bob, map[string]any{"message": "one too many"})
	require.Equal(t, "You are sending messages too quickly.", read(t, bob)["error"])
}

func requireRejected(t *testing.T, conn *websocket.Conn, want string) {
	t.Helper()
	require.Equal(t, want, read(t, conn)["error"])
	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	require.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)
	require.Equal(t, want, closeErr.Text)
}

func TestChatGateway_Rejections(t *testing.T) {
	e := newEnv(t)
	stranger, err := database.CreateUser(e.db, "eve", "")
	require.NoError(t, err)

	t.Run("garbage token", func(t *testing.T) {
		conn := e.dial(t, e.chatPath(), "garbage")
		requireRejected(t, conn, "You must log in to join this chat.")
		require.Zero(t, e.hub.Size(domain.PlanGroup(e.plan.ID)))
	})
	t.Run("missing token", func(t *testing.T) {
		requireRejected(t, e.dial(t, e.chatPath(), ""), "You must log in to join this chat.")
	})
	t.Run("bad plan id", func(t *testing.T) {
		requireRejected(t, e.dial(t, "/ws/plan/abc/", e.token(t, e.leader)), "Invalid plan ID.")
	})
	t.Run("not a participant", func(t *testing.T) {
		requireRejected(t, e.dial(t, e.chatPath(), e.token(t, stranger)), "Please join this plan before accessing its chat.")
		var members int64
		require.NoError(t, e.db.Model(&models.ChatMember{}).Where("user_id = ?", stranger.ID).Count(&members).Error)
		require.Zero(t, members)
	})
	t.Run("path without trailing slash", func(t *testing.T) {
		conn := e.dial(t, fmt.Sprintf("/ws/plan/%d", e.plan.ID), e.token(t, e.leader))
		require.Equal(t, "connected", read(t, conn)["status"])
	})
}

func TestChatGateway_DisconnectLeavesGroup(t *testing.T) {
	e := newEnv(t)
	conn, _ := e.connect(t, e.leader)
	group := domain.PlanGroup(e.plan.ID)
	require.Equal(t, 1, e.hub.Size(group))

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	require.Eventually(t, func() bool { return e.hub.Size(group) == 0 }, 2*time.Second, 10*time.Millisecond)
}
