package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/flicky/storefront-api/internal/model"
	"github.com/flicky/storefront-api/internal/notify"
)

const (
	dlxExchange    = "notifications.dlx"
	dlqQueueName   = "notifications.dlq"
	idempotencyTTL = 24 * time.Hour
)

// SentLog remembers which email jobs were already delivered.
type SentLog interface {
	Sent(ctx context.Context, id uuid.UUID) (bool, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
}

type RedisSentLog struct {
	client *redis.Client
}

func NewRedisSentLog(client *redis.Client) *RedisSentLog {
	return &RedisSentLog{client: client}
}

func sentKey(id uuid.UUID) string {
	return "notification_sent:" + id.String()
}

func (l *RedisSentLog) Sent(ctx context.Context, id uuid.UUID) (bool, error) {
	n, err := l.client.Exists(ctx, sentKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("check sent key: %w", err)
	}
	return n > 0, nil
}

func (l *RedisSentLog) MarkSent(ctx context.Context, id uuid.UUID) error {
	if err := l.client.Set(ctx, sentKey(id), "1", idempotencyTTL).Err(); err != nil {
		return fmt.Errorf("set sent key: %w", err)
	}
	return nil
}

// NotificationWorker drains the email queue into the SMTP mailer.
type NotificationWorker struct {
	channel *amqp.Channel
	mailer  notify.Mailer
	sent    SentLog
	log     *slog.Logger
	done    chan struct{}
}

func NewNotificationWorker(ch *amqp.Channel, mailer notify.Mailer, sent SentLog, log *slog.Logger) *NotificationWorker {
	return &NotificationWorker{
		channel: ch,
		mailer:  mailer,
		sent:    sent,
		log:     log,
		done:    make(chan struct{}),
	}
}

// SetupRabbitMQ declares exchanges, queues, and bindings (DLX/DLQ).
func SetupRabbitMQ(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(dlxExchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLX: %w", err)
	}
	if _, err := ch.QueueDeclare(dlqQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare DLQ: %w", err)
	}
	if err := ch.QueueBind(dlqQueueName, notify.QueueName, dlxExchange, false, nil); err != nil {
		return fmt.Errorf("bind DLQ: %w", err)
	}
	if _, err := ch.QueueDeclare(notify.QueueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    dlxExchange,
		"x-dead-letter-routing-key": notify.QueueName,
	}); err != nil {
		return fmt.Errorf("declare notification queue: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}
	return nil
}

func (w *NotificationWorker) Start(ctx context.Context) error {
	msgs, err := w.channel.Consume(notify.QueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				w.processMessage(ctx, msg)
			case <-w.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	w.log.Info("notification worker started")
	return nil
}

func (w *NotificationWorker) Stop() { close(w.done) }

func (w *NotificationWorker) processMessage(ctx context.Context, msg amqp.Delivery) {
	var email model.EmailMessage
	if err := json.Unmarshal(msg.Body, &email); err != nil {
		w.log.Error("unmarshal email message", "error", err)
		_ = msg.Nack(false, false)
		return
	}

	log := w.log.With("email_id", email.ID, "to", email.To)

	sent, err := w.sent.Sent(ctx, email.ID)
	if err != nil {
		log.Error("check idempotency key", "error", err)
		_ = msg.Nack(false, true)
		return
	}
	if sent {
		log.Info("email already sent, skipping")
		_ = msg.Ack(false)
		return
	}

	if err := w.mailer.SendEmail(ctx, email.To, email.Subject, email.HTML); err != nil {
		log.Error("send email failed", "error", err)
		_ = msg.Nack(false, false) // -> DLQ
		return
	}

	if err := w.sent.MarkSent(ctx, email.ID); err != nil {
		log.Error("set idempotency key", "error", err)
	}

	_ = msg.Ack(false)
	log.Info("email sent", "subject", email.Subject)
}
