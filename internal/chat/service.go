package chat

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/example/storefront/internal/event"
)

// MessageStore persists chat messages.
type MessageStore interface {
	Insert(ctx context.Context, m *Message) error
	List(ctx context.Context, conversationID string, limit int) ([]Message, error)
	Conversations(ctx context.Context) ([]string, error)
}

type Service struct {
	store     MessageStore
	publisher event.Publisher
}

func NewService(store MessageStore, publisher event.Publisher) *Service {
	return &Service{store: store, publisher: publisher}
}

// Post persists a message and publishes it for real-time delivery. The
// conversation is keyed by the customer's user id regardless of sender, so a
// support agent's reply lands in the customer's thread.
func (s *Service) Post(ctx context.Context, conversationID, senderID, senderRole, body string) (*Message, error) {
	if senderID == "" {
		return nil, ErrNoSender
	}
	if body == "" {
		return nil, ErrEmptyBody
	}
	if len(body) > maxBodyLength {
		return nil, ErrBodyTooLong
	}

	m := &Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		SenderID:       senderID,
		SenderRole:     senderRole,
		Body:           body,
		CreatedAt:      time.Now(),
	}
	if err := s.store.Insert(ctx, m); err != nil {
		return nil, err
	}

	if s.publisher != nil {
		env, err := event.New(event.TypeChatMessage, conversationID, MessagePosted{
			MessageID:      m.ID,
			ConversationID: m.ConversationID,
			SenderID:       m.SenderID,
			SenderRole:     m.SenderRole,
			Body:           m.Body,
		})
		if err == nil {
			if err := s.publisher.Publish(ctx, conversationID, env); err != nil {
				log.Printf("[Chat] Failed to publish message %s: %v", m.ID, err)
			}
		}
	}
	return m, nil
}

func (s *Service) History(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	return s.store.List(ctx, conversationID, limit)
}

func (s *Service) Conversations(ctx context.Context) ([]string, error) {
	return s.store.Conversations(ctx)
}
