package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestCloseReason(t *testing.T) {
	require.Equal(t, "short", CloseReason("short"))

	long := strings.Repeat("a", 200)
	require.Len(t, CloseReason(long), maxCloseReason)

	// 122 ASCII bytes followed by a 3-byte rune must not be split.
	mixed := strings.Repeat("a", 122) + "ไทย"
	got := CloseReason(mixed)
	require.Equal(t, strings.Repeat("a", 122), got)
}

func TestReject(t *testing.T) {
	req := require.New(t)
	reason := "Something went wrong: " + strings.Repeat("x", 200)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		Reject(conn, reason, time.Second)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	req.NoError(err)
	defer conn.Close()

	var frame map[string]string
	req.NoError(conn.ReadJSON(&frame))
	req.Equal(reason, frame["error"])

	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	req.ErrorAs(err, &closeErr)
	req.Equal(websocket.ClosePolicyViolation, closeErr.Code)
	req.Equal(CloseReason(reason), closeErr.Text)
}

func TestWritePump_DeliversAndCloses(t *testing.T) {
	req := require.New(t)
	client := NewClient(1, 4)
	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer close(done)
		WritePump(conn, client, Timing{WriteWait: time.Second, PongWait: time.Minute})
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	req.NoError(err)
	defer conn.Close()

	req.True(client.Deliver([]byte(`{"type":"pong"}`)))
	_, data, err := conn.ReadMessage()
	req.NoError(err)
	req.JSONEq(`{"type":"pong"}`, string(data))

	client.Close()
	_, _, err = conn.ReadMessage()
	req.True(websocket.IsCloseError(err, websocket.CloseNormalClosure))
	<-done
}
