package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/flicky/storefront-api/internal/middleware"
)

const keepAliveInterval = 25 * time.Second

// Subscriber is satisfied by notify.RedisPusher.
type Subscriber interface {
	Subscribe(ctx context.Context, userID uuid.UUID) *redis.PubSub
}

// EventsHandler streams the caller's push events as server-sent events.
type EventsHandler struct {
	subscriber Subscriber
	log        *slog.Logger
}

func NewEventsHandler(subscriber Subscriber, log *slog.Logger) *EventsHandler {
	return &EventsHandler{subscriber: subscriber, log: log}
}

func (h *EventsHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetPrincipal(c).UserID

	// Streams outlive the server's write timeout.
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	sub := h.subscriber.Subscribe(ctx, userID)
	defer sub.Close()
	messages := sub.Channel()

	h.log.Info("event stream opened", "user_id", userID)
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case msg, ok := <-messages:
			if !ok {
				return false
			}
			c.SSEvent("order", msg.Payload)
			return true
		case <-ticker.C:
			c.SSEvent("ping", "")
			return true
		}
	})
	h.log.Info("event stream closed", "user_id", userID)
}
