// Package messages is the quick-message channel between the client and
// the courier of one order. Messages are appended to the order's sequence
// and mirrored as notifications so the counterpart dashboard sees them
// without re-querying the store.
package messages

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vrtelolleva/platform/internal/bus"
	"github.com/vrtelolleva/platform/internal/domain"
	"github.com/vrtelolleva/platform/internal/store"
	"github.com/vrtelolleva/platform/internal/telemetry"
)

type Channel struct {
	store    store.OrderStore
	bus      *bus.Bus
	counters *telemetry.Counters
	logger   *slog.Logger
}

func NewChannel(st store.OrderStore, b *bus.Bus, counters *telemetry.Counters, logger *slog.Logger) *Channel {
	return &Channel{store: st, bus: b, counters: counters, logger: logger}
}

// Participant identifies one side of the conversation.
type Participant struct {
	ID   string
	Name string
	Role domain.Role
}

// Send appends text as a quick message from sender to recipient on the
// order, then emits one notification to the recipient's role carrying the
// text and a confirmation to the sender's role. The channel accepts any
// number of messages; throttling is a dashboard concern.
func (c *Channel) Send(ctx context.Context, orderID string, sender, recipient Participant, text string) (*domain.Order, error) {
	msg := domain.QuickMessage{
		ID:          uuid.New().String(),
		OrderID:     orderID,
		SenderID:    sender.ID,
		RecipientID: recipient.ID,
		Message:     text,
		CreatedAt:   time.Now().UTC(),
		IsRead:      false,
	}

	order, err := c.store.AppendMessage(ctx, orderID, msg)
	if err != nil {
		return nil, fmt.Errorf("append quick message: %w", err)
	}

	c.counters.RecordMessage(ctx)
	c.logger.Info("quick message sent", "order_id", orderID, "sender_id", sender.ID, "recipient_id", recipient.ID)

	c.bus.Publish(domain.Notification{
		Role:    recipient.Role,
		OrderID: orderID,
		Order:   order,
		Title:   titleFor(sender.Role),
		Message: fmt.Sprintf("%s: %q", sender.Name, text),
		Type:    domain.NotificationInfo,
		Icon:    "message-square",
	})
	c.counters.RecordNotification(ctx, string(recipient.Role))

	c.bus.Publish(domain.Notification{
		Role:    sender.Role,
		OrderID: orderID,
		Title:   "Mensaje enviado",
		Message: fmt.Sprintf("Tu mensaje %q fue enviado.", text),
		Type:    domain.NotificationSuccess,
		Icon:    "check",
	})
	c.counters.RecordNotification(ctx, string(sender.Role))

	return order, nil
}

func titleFor(senderRole domain.Role) string {
	switch senderRole {
	case domain.RoleDelivery:
		return "Mensaje del Repartidor"
	case domain.RoleClient:
		return "Mensaje del Cliente"
	default:
		return "Mensaje"
	}
}
