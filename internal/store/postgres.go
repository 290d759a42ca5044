package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/vrtelolleva/platform/internal/domain"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, order *domain.Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if order.ID == "" {
		order.ID = uuid.New().String()
	}

	deliveryPerson, err := marshalDeliveryPerson(order.DeliveryPerson)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, client_id, business_id, business_name, delivery_person_id,
			delivery_person, total_price, status, delivery_address,
			delivery_lat, delivery_lng, special_notes, preparation_time,
			is_rated, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)
	`, order.ID, order.ClientID, order.BusinessID, order.BusinessName,
		order.DeliveryPersonID, deliveryPerson, order.TotalPrice, order.Status,
		order.DeliveryAddress, order.DeliveryLocation.Lat, order.DeliveryLocation.Lng,
		order.SpecialNotes, order.PreparationTime, order.IsRated, order.CreatedAt)
	if err != nil {
		return err
	}

	for _, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, product_name, unit_price, quantity)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.New().String(), order.ID, item.ProductID, item.ProductName, item.UnitPrice, item.Quantity)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	order, err := scanOrder(s.db.QueryRowContext(ctx, selectOrder+` WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	if err := s.loadItems(ctx, order); err != nil {
		return nil, err
	}
	if err := s.loadMessages(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]domain.Order, error) {
	query := selectOrder + ` WHERE ($1 = '' OR business_id = $1)
		AND ($2 = '' OR client_id = $2)
		AND ($3 = '' OR status = $3)
		ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, filter.BusinessID, filter.ClientID, string(filter.Status))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		if err := s.loadItems(ctx, &orders[i]); err != nil {
			return nil, err
		}
		if err := s.loadMessages(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}

	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

// UpdateStatus locks the row, re-checks the expected status, applies the
// mutation in memory and writes the mutable columns back. The row lock
// makes the status check plus write atomic against concurrent transitions.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, expected domain.OrderStatus, apply func(*domain.Order)) (*domain.Order, error) {
	return s.updateLocked(ctx, id, func(order *domain.Order) error {
		if order.Status != expected {
			return domain.ErrStatusConflict
		}
		apply(order)
		return nil
	})
}

func (s *PostgresStore) Update(ctx context.Context, id string, apply func(*domain.Order)) (*domain.Order, error) {
	return s.updateLocked(ctx, id, func(order *domain.Order) error {
		apply(order)
		return nil
	})
}

func (s *PostgresStore) updateLocked(ctx context.Context, id string, apply func(*domain.Order) error) (*domain.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	order, err := scanOrder(tx.QueryRowContext(ctx, selectOrder+` WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	if err := apply(order); err != nil {
		return nil, err
	}

	deliveryPerson, err := marshalDeliveryPerson(order.DeliveryPerson)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE orders SET
			status = $2,
			delivery_person_id = NULLIF($3, ''),
			delivery_person = $4,
			preparation_time = $5,
			is_rated = $6,
			updated_at = NOW()
		WHERE id = $1
	`, order.ID, order.Status, order.DeliveryPersonID, deliveryPerson,
		order.PreparationTime, order.IsRated)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	if err := s.loadItems(ctx, order); err != nil {
		return nil, err
	}
	if err := s.loadMessages(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *PostgresStore) AppendMessage(ctx context.Context, orderID string, msg domain.QuickMessage) (*domain.Order, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO order_messages (id, order_id, sender_id, recipient_id, message, created_at, is_read)
		SELECT $1, $2, $3, $4, $5, $6, $7
		WHERE EXISTS (SELECT 1 FROM orders WHERE id = $2)
	`, msg.ID, orderID, msg.SenderID, msg.RecipientID, msg.Message, msg.CreatedAt, msg.IsRead)
	if err != nil {
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rowsAffected == 0 {
		return nil, domain.ErrNotFound
	}

	return s.GetByID(ctx, orderID)
}

const selectOrder = `
	SELECT id, client_id, business_id, business_name,
		COALESCE(delivery_person_id, ''), delivery_person, total_price,
		status, delivery_address, delivery_lat, delivery_lng,
		COALESCE(special_notes, ''), preparation_time, is_rated, created_at
	FROM orders`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	order := &domain.Order{}
	var deliveryPerson []byte

	err := row.Scan(&order.ID, &order.ClientID, &order.BusinessID,
		&order.BusinessName, &order.DeliveryPersonID, &deliveryPerson,
		&order.TotalPrice, &order.Status, &order.DeliveryAddress,
		&order.DeliveryLocation.Lat, &order.DeliveryLocation.Lng,
		&order.SpecialNotes, &order.PreparationTime, &order.IsRated,
		&order.CreatedAt)
	if err != nil {
		return nil, err
	}

	if len(deliveryPerson) > 0 {
		order.DeliveryPerson = &domain.DeliveryPerson{}
		if err := json.Unmarshal(deliveryPerson, order.DeliveryPerson); err != nil {
			return nil, fmt.Errorf("decode delivery person snapshot: %w", err)
		}
	}
	return order, nil
}

func (s *PostgresStore) loadItems(ctx context.Context, order *domain.Order) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, product_name, unit_price, quantity
		FROM order_items
		WHERE order_id = $1
	`, order.ID)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	order.Items = nil
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.UnitPrice, &item.Quantity); err != nil {
			return err
		}
		order.Items = append(order.Items, item)
	}
	return rows.Err()
}

// loadMessages preserves append order: the serial column, not the
// timestamp, defines the sequence.
func (s *PostgresStore) loadMessages(ctx context.Context, order *domain.Order) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender_id, recipient_id, message, created_at, is_read
		FROM order_messages
		WHERE order_id = $1
		ORDER BY seq
	`, order.ID)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	order.Messages = nil
	for rows.Next() {
		msg := domain.QuickMessage{OrderID: order.ID}
		if err := rows.Scan(&msg.ID, &msg.SenderID, &msg.RecipientID, &msg.Message, &msg.CreatedAt, &msg.IsRead); err != nil {
			return err
		}
		order.Messages = append(order.Messages, msg)
	}
	return rows.Err()
}

func marshalDeliveryPerson(dp *domain.DeliveryPerson) ([]byte, error) {
	if dp == nil {
		return nil, nil
	}
	data, err := json.Marshal(dp)
	if err != nil {
		return nil, fmt.Errorf("encode delivery person snapshot: %w", err)
	}
	return data, nil
}
