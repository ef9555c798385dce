package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient parses a redis:// URL and checks the server is reachable.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

// RedisLayer shares groups between server instances. Publishes go through
// Redis and every instance delivers them to its own local members.
type RedisLayer struct {
	local  *Hub
	rdb    *redis.Client
	prefix string
	pubsub *redis.PubSub
	done   chan struct{}
	log    *slog.Logger
}

// NewRedisLayer subscribes to <prefix>* and returns once the subscription is active.
func NewRedisLayer(ctx context.Context, rdb *redis.Client, prefix string, log *slog.Logger) (*RedisLayer, error) {
	ps := rdb.PSubscribe(ctx, prefix+"*")
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s*: %w", prefix, err)
	}
	l := &RedisLayer{
		local:  NewHub(log),
		rdb:    rdb,
		prefix: prefix,
		pubsub: ps,
		done:   make(chan struct{}),
		log:    log,
	}
	go l.run()
	return l, nil
}

func (l *RedisLayer) run() {
	defer close(l.done)
	for msg := range l.pubsub.Channel() {
		group := strings.TrimPrefix(msg.Channel, l.prefix)
		l.local.Broadcast(group, []byte(msg.Payload))
	}
	l.log.Debug("Redis subscription closed")
}

func (l *RedisLayer) Join(group string, c *Client)  { l.local.Join(group, c) }
func (l *RedisLayer) Leave(group string, c *Client) { l.local.Leave(group, c) }
func (l *RedisLayer) Size(group string) int         { return l.local.Size(group) }

func (l *RedisLayer) Publish(ctx context.Context, group string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := l.rdb.Publish(ctx, l.prefix+group, data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", group, err)
	}
	return nil
}

// Close stops the subscriber and waits for it to drain.
func (l *RedisLayer) Close() error {
	err := l.pubsub.Close()
	<-l.done
	return err
}
