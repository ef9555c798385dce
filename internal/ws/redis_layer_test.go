package ws

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestRedisLayer_SharesGroupsAcrossInstances(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	s := miniredis.RunT(t)

	newLayer := func() *RedisLayer {
		rdb, err := NewRedisClient(ctx, "redis://"+s.Addr())
		req.NoError(err)
		l, err := NewRedisLayer(ctx, rdb, "test:group:", log)
		req.NoError(err)
		t.Cleanup(func() {
			_ = l.Close()
			_ = rdb.Close()
		})
		return l
	}
	east, west := newLayer(), newLayer()

	// Given a subscriber connected to the west instance only
	c := NewClient(7, 4)
	west.Join("user_7", c)
	req.Equal(1, west.Size("user_7"))
	req.Zero(east.Size("user_7"))

	// When the east instance publishes
	req.NoError(east.Publish(ctx, "user_7", map[string]string{"type": "notification"}))

	// Then the west client receives it
	select {
	case got := <-c.Send:
		req.JSONEq(`{"type":"notification"}`, string(got))
	case <-time.After(2 * time.Second):
		req.Fail("frame was not relayed")
	}

	west.Leave("user_7", c)
	req.NoError(east.Publish(ctx, "user_7", map[string]string{"type": "late"}))
	time.Sleep(50 * time.Millisecond)
	req.Empty(c.Send)
}

func TestNewRedisClient_BadURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "://nope")
	require.Error(t, err)
}
