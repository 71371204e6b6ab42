// Package notify delivers the side effects of order and shipment changes:
// emails (queued on RabbitMQ, sent over SMTP by the worker) and real-time
// events (Redis pub/sub, streamed to clients over SSE).
package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/flicky/storefront-api/internal/model"
)

// ErrDelivery wraps every failure to hand an email to its transport.
var ErrDelivery = errors.New("email delivery failed")

type Mailer interface {
	SendEmail(ctx context.Context, to, subject, html string) error
}

type Pusher interface {
	PushToUser(ctx context.Context, userID uuid.UUID, event model.PushEvent)
}

// Dispatcher joins a Mailer and a Pusher behind one value.
type Dispatcher struct {
	mailer Mailer
	pusher Pusher
}

func NewDispatcher(mailer Mailer, pusher Pusher) *Dispatcher {
	return &Dispatcher{mailer: mailer, pusher: pusher}
}

func (d *Dispatcher) SendEmail(ctx context.Context, to, subject, html string) error {
	return d.mailer.SendEmail(ctx, to, subject, html)
}

func (d *Dispatcher) PushToUser(ctx context.Context, userID uuid.UUID, event model.PushEvent) {
	d.pusher.PushToUser(ctx, userID, event)
}

// BestEffort runs a side effect whose outcome must not affect the caller.
// Errors and panics are logged and dropped.
func BestEffort(log *slog.Logger, action string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("side effect panicked", "action", action, "panic", r)
		}
	}()
	if err := fn(); err != nil {
		log.Error("side effect failed", "action", action, "error", err)
	}
}
