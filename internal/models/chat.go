package models

import (
	"time"

	"github.com/google/uuid"
)

type Conversation struct {
	ID           uuid.UUID `json:"id"`
	ParticipantA string    `json:"participant_a"`
	ParticipantB string    `json:"participant_b"`
	CreatedAt    time.Time `json:"created_at"`
	LastUpdated  time.Time `json:"last_updated"`
}

func (c *Conversation) Other(email string) string {
	if c.ParticipantA == email {
		return c.ParticipantB
	}
	return c.ParticipantA
}

type ChatMessage struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	Seq            int64     `json:"seq"`
	Sender         string    `json:"sender"`
	Content        string    `json:"content"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

type ConversationSummary struct {
	Conversation
	OtherParticipant string       `json:"other_participant"`
	LastMessage      *ChatMessage `json:"last_message,omitempty"`
}

// ChatListEntry is the chat list row rendered by clients.
type ChatListEntry struct {
	Email           string       `json:"email"`
	Name            string       `json:"name"`
	Avatar          string       `json:"avatar"`
	Role            Role         `json:"role,omitempty"`
	LastMessage     string       `json:"last_message"`
	LastMessageTime time.Time    `json:"last_message_time"`
	Message         *ChatMessage `json:"message,omitempty"`
}

// MessageCursor pages a thread forward by sequence number. Zero values mean
// "from the beginning" and "no limit".
type MessageCursor struct {
	AfterSeq int64
	Limit    int
}

type AppendMessageInput struct {
	UserA          string
	UserB          string
	Sender         string
	Content        string
	IdempotencyKey string
}

type AppendResult struct {
	Conversation *Conversation
	Message      *ChatMessage
	Duplicate    bool
}
