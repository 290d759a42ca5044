package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "PENDING"
	OrderStatusAccepted       OrderStatus = "ACCEPTED"
	OrderStatusRejected       OrderStatus = "REJECTED"
	OrderStatusInPreparation  OrderStatus = "IN_PREPARATION"
	OrderStatusReadyForPickup OrderStatus = "READY_FOR_PICKUP"
	OrderStatusOnTheWay       OrderStatus = "ON_THE_WAY"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

// Terminal reports whether no further transition can leave this status.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusRejected, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type OrderItem struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	UnitPrice   int64  `json:"unit_price"` // cents
	Quantity    int    `json:"quantity"`
}

type DeliveryPerson struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Vehicle           string   `json:"vehicle"`
	Rating            float64  `json:"rating"`
	RatingCount       int      `json:"rating_count"`
	IsOnline          bool     `json:"is_online"`
	Location          Location `json:"location"`
	CurrentDeliveries int      `json:"current_deliveries"`
}

type QuickMessage struct {
	ID          string    `json:"id"`
	OrderID     string    `json:"order_id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
	IsRead      bool      `json:"is_read"`
}

type Order struct {
	ID               string          `json:"id"`
	ClientID         string          `json:"client_id"`
	BusinessID       string          `json:"business_id"`
	BusinessName     string          `json:"business_name"`
	DeliveryPersonID string          `json:"delivery_person_id,omitempty"`
	DeliveryPerson   *DeliveryPerson `json:"delivery_person,omitempty"`
	Items            []OrderItem     `json:"items"`
	TotalPrice       int64           `json:"total_price"` // cents, server-derived
	Status           OrderStatus     `json:"status"`
	DeliveryAddress  string          `json:"delivery_address"`
	DeliveryLocation Location        `json:"delivery_location"`
	SpecialNotes     string          `json:"special_notes,omitempty"`
	PreparationTime  int             `json:"preparation_time,omitempty"` // minutes
	IsRated          bool            `json:"is_rated,omitempty"`
	Messages         []QuickMessage  `json:"messages,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Subtotal is the sum of unit price times quantity over all line items.
// The stored total is recomputed from this plus the business delivery
// fee, never trusted from the caller.
func (o *Order) Subtotal() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.UnitPrice * int64(item.Quantity)
	}
	return total
}

// ShortID is the order id suffix shown to users ("Pedido #a1b2c3").
func (o *Order) ShortID() string {
	if len(o.ID) <= 6 {
		return o.ID
	}
	return o.ID[len(o.ID)-6:]
}
