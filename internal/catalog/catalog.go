// Package catalog is the source of truth for businesses and their product
// prices. The order total is always derived from here: a checkout request
// names products and quantities, never prices.
package catalog

import (
	"context"
	"fmt"

	"github.com/vrtelolleva/platform/internal/domain"
)

type Catalog interface {
	GetBusiness(ctx context.Context, id string) (*domain.Business, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context, businessID string) ([]domain.Product, error)
}

// ItemRequest is a checkout line: a product reference and a quantity.
type ItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Price resolves the requested items against the catalog and returns the
// priced line items plus the order total including the business delivery
// fee. Quantities below one and products from other businesses are
// rejected.
func Price(ctx context.Context, c Catalog, businessID string, items []ItemRequest) ([]domain.OrderItem, int64, error) {
	if len(items) == 0 {
		return nil, 0, fmt.Errorf("%w: order has no items", domain.ErrPreconditionFailed)
	}

	business, err := c.GetBusiness(ctx, businessID)
	if err != nil {
		return nil, 0, fmt.Errorf("resolve business %s: %w", businessID, err)
	}

	priced := make([]domain.OrderItem, 0, len(items))
	var subtotal int64
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, 0, fmt.Errorf("%w: quantity must be at least 1 for product %s", domain.ErrPreconditionFailed, item.ProductID)
		}

		product, err := c.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, 0, fmt.Errorf("resolve product %s: %w", item.ProductID, err)
		}
		if product.BusinessID != businessID {
			return nil, 0, fmt.Errorf("%w: product %s does not belong to business %s", domain.ErrPreconditionFailed, item.ProductID, businessID)
		}

		priced = append(priced, domain.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			UnitPrice:   product.Price,
			Quantity:    item.Quantity,
		})
		subtotal += product.Price * int64(item.Quantity)
	}

	return priced, subtotal + business.DeliveryFee, nil
}
