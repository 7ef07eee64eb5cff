package event

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types carried on the shared topic.
const (
	TypeOrderPlaced    = "order.placed"
	TypeOrderCancelled = "order.cancelled"
	TypeCartMerged     = "cart.merged"
	TypeChatMessage    = "chat.message"
)

// Envelope wraps a domain event payload for transport. The key is the
// identity the event belongs to, so consumers can partition and fan out
// per user.
type Envelope struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// New builds an envelope around a payload.
func New(eventType, key string, payload any) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		ID:        uuid.New().String(),
		Type:      eventType,
		Key:       key,
		Data:      data,
		Timestamp: time.Now(),
	}, nil
}

// Publisher publishes envelopes to the message broker.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}
