package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/flicky/storefront-api/internal/model"
)

func UserChannel(userID uuid.UUID) string {
	return "events:user:" + userID.String()
}

// RedisPusher fans events out over Redis pub/sub so any API instance holding
// the user's stream can forward them.
type RedisPusher struct {
	client *redis.Client
	log    *slog.Logger
}

func NewRedisPusher(client *redis.Client, log *slog.Logger) *RedisPusher {
	return &RedisPusher{client: client, log: log}
}

func (p *RedisPusher) PushToUser(ctx context.Context, userID uuid.UUID, event model.PushEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		p.log.Error("encode push event", "user_id", userID, "error", err)
		return
	}
	if err := p.client.Publish(ctx, UserChannel(userID), data).Err(); err != nil {
		p.log.Error("publish push event", "user_id", userID, "error", err)
	}
}

func (p *RedisPusher) Subscribe(ctx context.Context, userID uuid.UUID) *redis.PubSub {
	return p.client.Subscribe(ctx, UserChannel(userID))
}
