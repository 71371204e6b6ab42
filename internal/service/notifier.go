package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/flicky/storefront-api/internal/model"
)

// Notifier is the outbound side-effect port used by the order and shipment
// flows. notify.Dispatcher implements it.
type Notifier interface {
	SendEmail(ctx context.Context, to, subject, html string) error
	PushToUser(ctx context.Context, userID uuid.UUID, event model.PushEvent)
}

const (
	EventOrderCreated       = "order_created"
	EventOrderStatusChanged = "order_status_changed"
)
