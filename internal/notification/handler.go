package notification

import (
	"context"
	"encoding/json"
	"log"

	"github.com/example/storefront/internal/email"
	"github.com/example/storefront/internal/event"
	"github.com/example/storefront/internal/order"
)

// UserDirectory resolves a user ID to a deliverable email address.
type UserDirectory interface {
	EmailFor(ctx context.Context, userID string) (string, error)
}

// Handler processes events for sending notifications
type Handler struct {
	emailService *email.Service
	users        UserDirectory
}

// NewHandler creates a new notification handler
func NewHandler(emailSvc *email.Service, users UserDirectory) *Handler {
	return &Handler{
		emailService: emailSvc,
		users:        users,
	}
}

// HandleEvent processes an event from Kafka
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var env event.Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		log.Printf("[Notifier] Failed to unmarshal event: %v", err)
		return err
	}

	switch env.Type {
	case event.TypeOrderPlaced:
		return h.handleOrderPlaced(ctx, env)
	case event.TypeOrderCancelled:
		return h.handleOrderCancelled(ctx, env)
	}
	return nil
}

func (h *Handler) handleOrderPlaced(ctx context.Context, env event.Envelope) error {
	var e order.OrderPlaced
	if err := json.Unmarshal(env.Data, &e); err != nil {
		log.Printf("[Notifier] Failed to unmarshal OrderPlaced event: %v", err)
		return err
	}

	to, err := h.users.EmailFor(ctx, e.UserID)
	if err != nil {
		log.Printf("[Notifier] Failed to resolve email for user %s: %v", e.UserID, err)
		return err
	}

	items := make([]email.OrderItem, len(e.Items))
	for i, it := range e.Items {
		items[i] = email.OrderItem{
			ProductID: it.ProductID,
			Name:      it.ProductName,
			Size:      it.Size,
			Quantity:  it.Quantity,
			Price:     it.UnitPrice,
		}
	}

	if err := h.emailService.SendOrderConfirmation(to, e.OrderID, e.Total, items); err != nil {
		log.Printf("[Notifier] Failed to send order confirmation for %s: %v", e.OrderID, err)
		return err
	}

	log.Printf("[Notifier] Sent order confirmation for %s to %s", e.OrderID, to)
	return nil
}

func (h *Handler) handleOrderCancelled(ctx context.Context, env event.Envelope) error {
	var e order.OrderCancelled
	if err := json.Unmarshal(env.Data, &e); err != nil {
		log.Printf("[Notifier] Failed to unmarshal OrderCancelled event: %v", err)
		return err
	}

	to, err := h.users.EmailFor(ctx, e.UserID)
	if err != nil {
		log.Printf("[Notifier] Failed to resolve email for user %s: %v", e.UserID, err)
		return err
	}

	if err := h.emailService.SendOrderCancellation(to, e.OrderID, e.Reason); err != nil {
		log.Printf("[Notifier] Failed to send cancellation notice for %s: %v", e.OrderID, err)
		return err
	}

	log.Printf("[Notifier] Sent cancellation notice for %s to %s", e.OrderID, to)
	return nil
}
