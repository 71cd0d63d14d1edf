package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type RedisClient struct {
	client *redis.Client
}

func NewRedisClient(ctx context.Context, redisURL string) (*RedisClient, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisClient{client: client}, nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

func matchChannel(pingID uuid.UUID) string {
	return fmt.Sprintf("match:%s", pingID)
}

// PublishMatchUpdate fans an update out to everyone subscribed to the ping's
// channel. Called after the row commit so subscribers never see uncommitted
// state.
func (r *RedisClient) PublishMatchUpdate(ctx context.Context, update MatchUpdate) error {
	update.SentAt = time.Now().UTC()
	data, err := json.Marshal(update)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, matchChannel(update.PingID), data).Err()
}

type RedisSubscriber struct {
	*redis.PubSub
}

// ReceiveUpdate blocks until the next frame on the channel and decodes it.
func (rs *RedisSubscriber) ReceiveUpdate(ctx context.Context) (*MatchUpdate, error) {
	msg, err := rs.PubSub.ReceiveMessage(ctx)
	if err != nil {
		return nil, err
	}
	var update MatchUpdate
	if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
		return nil, err
	}
	return &update, nil
}

// SubscribeToMatch opens a subscription scoped to one ping. Callers own the
// subscription and must Close it when they stop viewing the match.
func (r *RedisClient) SubscribeToMatch(ctx context.Context, pingID uuid.UUID) *RedisSubscriber {
	return &RedisSubscriber{PubSub: r.client.Subscribe(ctx, matchChannel(pingID))}
}
