package ws

import (
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
)

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Timing of a connection's keepalive and writes.
type Timing struct {
	WriteWait time.Duration
	PongWait  time.Duration
	MaxFrame  int64
}

func (t Timing) pingPeriod() time.Duration {
	return (t.PongWait * 9) / 10
}

// PrepareRead applies the frame limit and extends the read deadline on every pong.
func PrepareRead(conn *websocket.Conn, t Timing) {
	if t.MaxFrame > 0 {
		conn.SetReadLimit(t.MaxFrame)
	}
	_ = conn.SetReadDeadline(time.Now().Add(t.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(t.PongWait))
	})
}

// WritePump copies frames from c.Send to conn until Send is closed or a write fails.
// It is the only writer of conn once started.
func WritePump(conn *websocket.Conn, c *Client, t Timing) {
	ticker := time.NewTicker(t.pingPeriod())
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(t.WriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(t.WriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// WriteJSON writes one frame directly; only valid before WritePump starts.
func WriteJSON(conn *websocket.Conn, writeWait time.Duration, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// maxCloseReason is the control frame payload limit minus the two-byte close code.
const maxCloseReason = 123

// Reject sends {"error": msg}, closes with 1008 and always releases the transport.
func Reject(conn *websocket.Conn, msg string, writeWait time.Duration) {
	_ = WriteJSON(conn, writeWait, map[string]string{"error": msg})
	frame := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, CloseReason(msg))
	_ = conn.WriteControl(websocket.CloseMessage, frame, time.Now().Add(writeWait))
	_ = conn.Close()
}

// CloseReason cuts msg to fit a close frame without splitting a UTF-8 sequence.
func CloseReason(msg string) string {
	if len(msg) <= maxCloseReason {
		return msg
	}
	cut := maxCloseReason
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}
