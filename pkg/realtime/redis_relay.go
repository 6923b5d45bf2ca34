package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type relayFrame struct {
	Origin  string          `json:"origin"`
	Message json.RawMessage `json:"message"`
}

// RedisRelay shares events between server instances over a Redis pub/sub channel.
// Each instance tags what it publishes so it can skip its own echoes.
type RedisRelay struct {
	client  *redis.Client
	channel string
	origin  string
	logger  *logrus.Logger
}

// NewRedisRelay creates a relay on the given channel
func NewRedisRelay(client *redis.Client, channel string, logger *logrus.Logger) *RedisRelay {
	return &RedisRelay{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		logger:  logger,
	}
}

// Publish sends an encoded event to the other instances
func (r *RedisRelay) Publish(ctx context.Context, msg []byte) error {
	frame, err := json.Marshal(relayFrame{Origin: r.origin, Message: msg})
	if err != nil {
		return fmt.Errorf("failed to marshal relay frame: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, frame).Err(); err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}
	return nil
}

// Run forwards events published by other instances to deliver until ctx is done
func (r *RedisRelay) Run(ctx context.Context, deliver func([]byte)) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}
	r.logger.WithField("channel", r.channel).Info("Redis event relay subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			if msg, ok := r.decode(m.Payload); ok {
				deliver(msg)
			}
		}
	}
}

func (r *RedisRelay) decode(payload string) ([]byte, bool) {
	var frame relayFrame
	if err := json.Unmarshal([]byte(payload), &frame); err != nil {
		r.logger.WithError(err).Warn("Ignoring malformed relay frame")
		return nil, false
	}
	if frame.Origin == r.origin {
		return nil, false
	}
	return frame.Message, true
}

// NewRedisClient creates a Redis client from connection settings
func NewRedisClient(addr, password string, db, poolSize int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: poolSize,
	})
}

// Ping checks the Redis connection
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}
