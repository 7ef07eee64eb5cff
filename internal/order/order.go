package order

import (
	"errors"
	"time"
)

var (
	ErrEmptyCart      = errors.New("cannot place an order from an empty cart")
	ErrNotFound       = errors.New("order not found")
	ErrNotCancellable = errors.New("order can no longer be cancelled")
	ErrInvalidStatus  = errors.New("invalid order status")
)

// Order statuses.
const (
	StatusPending   = "pending"
	StatusShipped   = "shipped"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
)

func validStatus(s string) bool {
	switch s {
	case StatusPending, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

type Order struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Items     []Item    `json:"items"`
	Total     int       `json:"total"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Item is a priced line captured at checkout time; later price changes do
// not affect placed orders.
type Item struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Size        string `json:"size"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int    `json:"unit_price"`
}

// OrderPlaced is published when checkout completes.
type OrderPlaced struct {
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id"`
	Total   int    `json:"total"`
	Items   []Item `json:"items"`
}

// OrderCancelled is published when an order is cancelled.
type OrderCancelled struct {
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id"`
	Reason  string `json:"reason,omitempty"`
}
