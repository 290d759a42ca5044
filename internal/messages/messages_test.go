package messages

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/vrtelolleva/platform/internal/bus"
	"github.com/vrtelolleva/platform/internal/domain"
	"github.com/vrtelolleva/platform/internal/store"
)

func setup(t *testing.T) (*Channel, *store.MemoryStore, *[]domain.Notification) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.NewMemoryStore()
	b := bus.New(logger)

	var notes []domain.Notification
	b.Subscribe(func(n domain.Notification) { notes = append(notes, n) })

	return NewChannel(st, b, nil, logger), st, &notes
}

func TestChannel_Send(t *testing.T) {
	ctx := context.Background()
	courier := Participant{ID: "delivery-1", Name: "Pedro Repartidor", Role: domain.RoleDelivery}
	client := Participant{ID: "client-1", Name: "Ana Cliente", Role: domain.RoleClient}

	t.Run("appends the message and notifies the recipient role", func(t *testing.T) {
		ch, st, notes := setup(t)
		order := &domain.Order{ID: "o1", ClientID: client.ID, Status: domain.OrderStatusOnTheWay, CreatedAt: time.Now().UTC()}
		if err := st.Create(ctx, order); err != nil {
			t.Fatalf("failed to seed order: %v", err)
		}

		updated, err := ch.Send(ctx, "o1", courier, client, "Estoy en la puerta")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(updated.Messages) != 1 {
			t.Fatalf("expected 1 message, got %d", len(updated.Messages))
		}
		msg := updated.Messages[0]
		if msg.ID == "" {
			t.Error("expected generated message id")
		}
		if msg.IsRead {
			t.Error("new messages must start unread")
		}
		if msg.SenderID != courier.ID || msg.RecipientID != client.ID {
			t.Errorf("wrong participants: %+v", msg)
		}

		var clientNotes []domain.Notification
		for _, n := range *notes {
			if n.Role == domain.RoleClient {
				clientNotes = append(clientNotes, n)
			}
		}
		if len(clientNotes) != 1 {
			t.Fatalf("expected exactly one CLIENT notification, got %d", len(clientNotes))
		}
		if clientNotes[0].Title != "Mensaje del Repartidor" {
			t.Errorf("unexpected title: %s", clientNotes[0].Title)
		}
		if !strings.Contains(clientNotes[0].Message, "Estoy en la puerta") {
			t.Errorf("expected message text in notification: %s", clientNotes[0].Message)
		}
		if clientNotes[0].OrderID != "o1" {
			t.Errorf("wrong order id: %s", clientNotes[0].OrderID)
		}
	})

	t.Run("keeps strict append order", func(t *testing.T) {
		ch, st, _ := setup(t)
		order := &domain.Order{ID: "o2", Status: domain.OrderStatusOnTheWay, CreatedAt: time.Now().UTC()}
		if err := st.Create(ctx, order); err != nil {
			t.Fatalf("failed to seed order: %v", err)
		}

		texts := []string{"Llego en 15 minutos", "Llego en 10 minutos", "Estoy en la puerta"}
		var updated *domain.Order
		var err error
		for _, text := range texts {
			updated, err = ch.Send(ctx, "o2", courier, client, text)
			if err != nil {
				t.Fatalf("send %q failed: %v", text, err)
			}
		}

		if len(updated.Messages) != 3 {
			t.Fatalf("expected 3 messages, got %d", len(updated.Messages))
		}
		for i, text := range texts {
			if updated.Messages[i].Message != text {
				t.Errorf("position %d: expected %q, got %q", i, text, updated.Messages[i].Message)
			}
		}
	})

	t.Run("sender gets a confirmation notification", func(t *testing.T) {
		ch, st, notes := setup(t)
		order := &domain.Order{ID: "o3", Status: domain.OrderStatusOnTheWay, CreatedAt: time.Now().UTC()}
		if err := st.Create(ctx, order); err != nil {
			t.Fatalf("failed to seed order: %v", err)
		}

		if _, err := ch.Send(ctx, "o3", client, courier, "Llamar al llegar"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var confirmations int
		for _, n := range *notes {
			if n.Role == domain.RoleClient && n.Title == "Mensaje enviado" {
				confirmations++
			}
		}
		if confirmations != 1 {
			t.Errorf("expected one sender confirmation, got %d", confirmations)
		}
	})

	t.Run("unknown order emits nothing", func(t *testing.T) {
		ch, _, notes := setup(t)

		_, err := ch.Send(ctx, "missing", courier, client, "Estoy en la puerta")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if len(*notes) != 0 {
			t.Errorf("failed send still published %d notifications", len(*notes))
		}
	})
}
