// Package store persists orders. Two implementations exist: a Postgres
// repository for real deployments and a mutex-guarded in-memory map for
// the simulation mode and tests. Every status-changing write goes through
// UpdateStatus, which carries an expected-status precondition so that
// concurrent transitions from different roles cannot silently overwrite
// each other.
package store

import (
	"context"

	"github.com/vrtelolleva/platform/internal/domain"
)

type Filter struct {
	BusinessID string
	ClientID   string
	Status     domain.OrderStatus
}

type OrderStore interface {
	// Create assigns the order an id if it has none and persists it.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID returns domain.ErrNotFound for unknown ids.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// List returns orders matching every set filter field, newest first.
	List(ctx context.Context, filter Filter) ([]domain.Order, error)

	// UpdateStatus applies a status transition with a compare-and-swap on
	// the current status: if the stored status differs from expected the
	// order is left untouched and domain.ErrStatusConflict is returned.
	// apply mutates the order (status, prep time, delivery person binding)
	// and runs exactly once on success.
	UpdateStatus(ctx context.Context, id string, expected domain.OrderStatus, apply func(*domain.Order)) (*domain.Order, error)

	// Update applies a non-status mutation (rating flag, delivery person
	// position) last-write-wins.
	Update(ctx context.Context, id string, apply func(*domain.Order)) (*domain.Order, error)

	// AppendMessage appends a quick message to the order's sequence.
	// Messages are strictly append-ordered and never reordered.
	AppendMessage(ctx context.Context, orderID string, msg domain.QuickMessage) (*domain.Order, error)
}

func cloneOrder(o *domain.Order) *domain.Order {
	clone := *o
	clone.Items = append([]domain.OrderItem(nil), o.Items...)
	clone.Messages = append([]domain.QuickMessage(nil), o.Messages...)
	if o.DeliveryPerson != nil {
		dp := *o.DeliveryPerson
		clone.DeliveryPerson = &dp
	}
	return &clone
}
