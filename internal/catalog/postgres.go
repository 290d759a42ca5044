package catalog

import (
	"context"
	"database/sql"

	"github.com/vrtelolleva/platform/internal/domain"
)

type PostgresCatalog struct {
	db *sql.DB
}

func NewPostgresCatalog(db *sql.DB) *PostgresCatalog {
	return &PostgresCatalog{db: db}
}

func (c *PostgresCatalog) GetBusiness(ctx context.Context, id string) (*domain.Business, error) {
	business := &domain.Business{}

	err := c.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(category, ''), delivery_fee, lat, lng, is_open, COALESCE(address, '')
		FROM businesses
		WHERE id = $1
	`, id).Scan(&business.ID, &business.Name, &business.Category,
		&business.DeliveryFee, &business.Location.Lat, &business.Location.Lng,
		&business.IsOpen, &business.Address)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return business, nil
}

func (c *PostgresCatalog) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	product := &domain.Product{}

	err := c.db.QueryRowContext(ctx, `
		SELECT id, business_id, name, price, COALESCE(category, '')
		FROM products
		WHERE id = $1
	`, id).Scan(&product.ID, &product.BusinessID, &product.Name, &product.Price, &product.Category)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return product, nil
}

func (c *PostgresCatalog) ListProducts(ctx context.Context, businessID string) ([]domain.Product, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, business_id, name, price, COALESCE(category, '')
		FROM products
		WHERE business_id = $1
		ORDER BY name
	`, businessID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.BusinessID, &p.Name, &p.Price, &p.Category); err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	return products, rows.Err()
}
