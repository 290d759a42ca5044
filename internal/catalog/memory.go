package catalog

import (
	"context"
	"sync"

	"github.com/vrtelolleva/platform/internal/domain"
)

// MemoryCatalog serves the simulation mode and tests.
type MemoryCatalog struct {
	mu         sync.RWMutex
	businesses map[string]domain.Business
	products   map[string]domain.Product
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		businesses: make(map[string]domain.Business),
		products:   make(map[string]domain.Product),
	}
}

func (c *MemoryCatalog) AddBusiness(b domain.Business) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.businesses[b.ID] = b
}

func (c *MemoryCatalog) AddProduct(p domain.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ID] = p
}

func (c *MemoryCatalog) GetBusiness(_ context.Context, id string) (*domain.Business, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	b, ok := c.businesses[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &b, nil
}

func (c *MemoryCatalog) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (c *MemoryCatalog) ListProducts(_ context.Context, businessID string) ([]domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var products []domain.Product
	for _, p := range c.products {
		if p.BusinessID == businessID {
			products = append(products, p)
		}
	}
	return products, nil
}
