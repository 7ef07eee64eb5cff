package order

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/example/storefront/internal/cart"
	"github.com/example/storefront/internal/event"
)

// CartAccess is the slice of the cart store checkout needs.
type CartAccess interface {
	FetchByOwner(ctx context.Context, ownerID string) ([]cart.LineItem, error)
	Clear(ctx context.Context, ownerID string) error
}

// OrderStore persists orders.
type OrderStore interface {
	Insert(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	ListAll(ctx context.Context) ([]Order, error)
	UpdateStatus(ctx context.Context, id, status string) error
}

// Service handles checkout and order lifecycle.
type Service struct {
	orders    OrderStore
	carts     CartAccess
	publisher event.Publisher
}

func NewService(orders OrderStore, carts CartAccess, publisher event.Publisher) *Service {
	return &Service{orders: orders, carts: carts, publisher: publisher}
}

// Place creates an order from the user's cart at current prices and clears
// the cart.
func (s *Service) Place(ctx context.Context, userID string) (*Order, error) {
	lines, err := s.carts.FetchByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch cart: %w", err)
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	o := &Order{
		ID:        uuid.New().String(),
		UserID:    userID,
		Status:    StatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	for _, line := range lines {
		o.Items = append(o.Items, Item{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Size:        line.Size,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
		})
		o.Total += line.UnitPrice * line.Quantity
	}

	if err := s.orders.Insert(ctx, o); err != nil {
		return nil, err
	}

	// The order exists; a failed cart clear leaves stale items but must not
	// fail checkout.
	if err := s.carts.Clear(ctx, userID); err != nil {
		log.Printf("[Order] Failed to clear cart for %s after order %s: %v", userID, o.ID, err)
	}

	s.publish(ctx, event.TypeOrderPlaced, userID, OrderPlaced{
		OrderID: o.ID,
		UserID:  userID,
		Total:   o.Total,
		Items:   o.Items,
	})
	return o, nil
}

// Cancel cancels a pending order.
func (s *Service) Cancel(ctx context.Context, orderID, reason string) error {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if o.Status != StatusPending {
		return ErrNotCancellable
	}
	if err := s.orders.UpdateStatus(ctx, orderID, StatusCancelled); err != nil {
		return err
	}

	s.publish(ctx, event.TypeOrderCancelled, o.UserID, OrderCancelled{
		OrderID: orderID,
		UserID:  o.UserID,
		Reason:  reason,
	})
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.orders.Get(ctx, id)
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

func (s *Service) ListAll(ctx context.Context) ([]Order, error) {
	return s.orders.ListAll(ctx)
}

func (s *Service) UpdateStatus(ctx context.Context, id, status string) error {
	return s.orders.UpdateStatus(ctx, id, status)
}

func (s *Service) publish(ctx context.Context, eventType, key string, payload any) {
	if s.publisher == nil {
		return
	}
	env, err := event.New(eventType, key, payload)
	if err != nil {
		return
	}
	if err := s.publisher.Publish(ctx, key, env); err != nil {
		log.Printf("[Order] Failed to publish %s for %s: %v", eventType, key, err)
	}
}
