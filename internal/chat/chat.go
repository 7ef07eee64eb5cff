// Package chat implements the customer support conversation: one thread per
// customer, messages persisted and fanned out to connected clients through
// the event stream.
package chat

import (
	"errors"
	"time"
)

var (
	ErrEmptyBody = errors.New("message body is required")
	ErrNoSender  = errors.New("sender is required")
)

const maxBodyLength = 2000

var ErrBodyTooLong = errors.New("message body exceeds maximum length")

type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	SenderRole     string    `json:"sender_role"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

// MessagePosted is the event payload published per message.
type MessagePosted struct {
	MessageID      string `json:"message_id"`
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	SenderRole     string `json:"sender_role"`
	Body           string `json:"body"`
}
