package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/vrtelolleva/platform/internal/domain"
)

// MemoryStore keeps orders in process memory. It is the storage backend
// for the simulation mode (the stand-in for the original browser-local
// database) and for unit tests. All methods are safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[string]*domain.Order)}
}

func (s *MemoryStore) Create(_ context.Context, order *domain.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.ID] = cloneOrder(order)
	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneOrder(order), nil
}

func (s *MemoryStore) List(_ context.Context, filter Filter) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]domain.Order, 0, len(s.orders))
	for _, order := range s.orders {
		if filter.BusinessID != "" && order.BusinessID != filter.BusinessID {
			continue
		}
		if filter.ClientID != "" && order.ClientID != filter.ClientID {
			continue
		}
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		orders = append(orders, *cloneOrder(order))
	}

	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id string, expected domain.OrderStatus, apply func(*domain.Order)) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if order.Status != expected {
		return nil, domain.ErrStatusConflict
	}

	apply(order)
	return cloneOrder(order), nil
}

func (s *MemoryStore) Update(_ context.Context, id string, apply func(*domain.Order)) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}

	apply(order)
	return cloneOrder(order), nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, orderID string, msg domain.QuickMessage) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}

	order.Messages = append(order.Messages, msg)
	return cloneOrder(order), nil
}
