package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/flicky/storefront-api/internal/model"
)

const QueueName = "notifications"

// Publisher is satisfied by *amqp.Channel.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// QueueMailer enqueues emails; the notification worker sends them.
type QueueMailer struct {
	ch Publisher
}

func NewQueueMailer(ch Publisher) *QueueMailer {
	return &QueueMailer{ch: ch}
}

func (m *QueueMailer) SendEmail(ctx context.Context, to, subject, html string) error {
	body, err := json.Marshal(model.EmailMessage{ID: uuid.New(), To: to, Subject: subject, HTML: html})
	if err != nil {
		return fmt.Errorf("%w: encode email: %w", ErrDelivery, err)
	}
	err = m.ch.PublishWithContext(ctx, "", QueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
	})
	if err != nil {
		return fmt.Errorf("%w: publish email: %w", ErrDelivery, err)
	}
	return nil
}
