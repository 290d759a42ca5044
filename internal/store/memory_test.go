package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vrtelolleva/platform/internal/domain"
)

func seedOrder(t *testing.T, s *MemoryStore, status domain.OrderStatus) *domain.Order {
	t.Helper()
	order := &domain.Order{
		ClientID:   "client-1",
		BusinessID: "b1",
		Status:     status,
		Items:      []domain.OrderItem{{ProductID: "p1", UnitPrice: 9500, Quantity: 2}},
		TotalPrice: 21000,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.Create(context.Background(), order); err != nil {
		t.Fatalf("failed to create order: %v", err)
	}
	return order
}

func TestMemoryStore_GetByID(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	t.Run("unknown id returns not found", func(t *testing.T) {
		_, err := s.GetByID(ctx, "missing")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("returns an isolated copy", func(t *testing.T) {
		order := seedOrder(t, s, domain.OrderStatusPending)

		got, err := s.GetByID(ctx, order.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got.Items[0].Quantity = 99

		again, _ := s.GetByID(ctx, order.ID)
		if again.Items[0].Quantity != 2 {
			t.Error("mutation of a returned order leaked into the store")
		}
	})
}

func TestMemoryStore_List(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedOrder(t, s, domain.OrderStatusPending)
	ready := seedOrder(t, s, domain.OrderStatusReadyForPickup)

	got, err := s.List(ctx, Filter{Status: domain.OrderStatusReadyForPickup})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != ready.ID {
		t.Fatalf("expected only the READY_FOR_PICKUP order, got %d orders", len(got))
	}

	got, err = s.List(ctx, Filter{BusinessID: "other"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no orders for unknown business, got %d", len(got))
	}
}

func TestMemoryStore_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("applies mutation when expected status matches", func(t *testing.T) {
		s := NewMemoryStore()
		order := seedOrder(t, s, domain.OrderStatusPending)

		updated, err := s.UpdateStatus(ctx, order.ID, domain.OrderStatusPending, func(o *domain.Order) {
			o.Status = domain.OrderStatusAccepted
			o.PreparationTime = 15
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if updated.Status != domain.OrderStatusAccepted || updated.PreparationTime != 15 {
			t.Errorf("mutation not applied: %+v", updated)
		}
	})

	t.Run("rejects stale expected status without mutating", func(t *testing.T) {
		s := NewMemoryStore()
		order := seedOrder(t, s, domain.OrderStatusCancelled)

		_, err := s.UpdateStatus(ctx, order.ID, domain.OrderStatusInPreparation, func(o *domain.Order) {
			o.Status = domain.OrderStatusReadyForPickup
		})
		if !errors.Is(err, domain.ErrStatusConflict) {
			t.Fatalf("expected ErrStatusConflict, got %v", err)
		}

		got, _ := s.GetByID(ctx, order.ID)
		if got.Status != domain.OrderStatusCancelled {
			t.Errorf("order mutated despite conflict: %s", got.Status)
		}
	})
}

func TestMemoryStore_AppendMessage(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	order := seedOrder(t, s, domain.OrderStatusOnTheWay)

	first := domain.QuickMessage{ID: "m1", OrderID: order.ID, Message: "Llego en 10 minutos"}
	second := domain.QuickMessage{ID: "m2", OrderID: order.ID, Message: "Estoy en la puerta"}

	if _, err := s.AppendMessage(ctx, order.ID, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	updated, err := s.AppendMessage(ctx, order.ID, second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(updated.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(updated.Messages))
	}
	if updated.Messages[0].ID != "m1" || updated.Messages[1].ID != "m2" {
		t.Error("messages not in append order")
	}

	if _, err := s.AppendMessage(ctx, "missing", first); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown order, got %v", err)
	}
}
