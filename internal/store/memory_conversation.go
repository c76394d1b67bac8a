package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/saeid-a/AlumniNetworkBack/internal/apperr"
	"github.com/saeid-a/AlumniNetworkBack/internal/models"
)

type conversationState struct {
	mu           sync.Mutex
	conversation models.Conversation
	messages     []models.ChatMessage
}

type MemoryConversationStore struct {
	conversations     sync.Map // PairKey -> *conversationState
	idempotencyWindow time.Duration
	now               func() time.Time
}

func NewMemoryConversationStore(idempotencyWindow time.Duration) *MemoryConversationStore {
	return &MemoryConversationStore{
		idempotencyWindow: idempotencyWindow,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryConversationStore) state(a, b string) *conversationState {
	key := PairKey(a, b)
	if existing, ok := s.conversations.Load(key); ok {
		return existing.(*conversationState)
	}

	first, second := CanonicalPair(a, b)
	createdAt := s.now()
	state, _ := s.conversations.LoadOrStore(key, &conversationState{
		conversation: models.Conversation{
			ID:           uuid.New(),
			ParticipantA: first,
			ParticipantB: second,
			CreatedAt:    createdAt,
			LastUpdated:  createdAt,
		},
	})
	return state.(*conversationState)
}

func (s *MemoryConversationStore) GetOrCreateConversation(_ context.Context, a, b string) (*models.Conversation, error) {
	if err := validatePair(a, b); err != nil {
		return nil, err
	}

	state := s.state(a, b)
	state.mu.Lock()
	defer state.mu.Unlock()

	conversation := state.conversation
	return &conversation, nil
}

func (s *MemoryConversationStore) AppendMessage(_ context.Context, input models.AppendMessageInput) (*models.AppendResult, error) {
	content, err := validateAppend(input)
	if err != nil {
		return nil, err
	}

	state := s.state(input.UserA, input.UserB)
	state.mu.Lock()
	defer state.mu.Unlock()

	now := s.now()
	if input.IdempotencyKey != "" && s.idempotencyWindow > 0 {
		for i := len(state.messages) - 1; i >= 0; i-- {
			existing := state.messages[i]
			if now.Sub(existing.Timestamp) > s.idempotencyWindow {
				break
			}
			if existing.Sender == input.Sender && existing.IdempotencyKey == input.IdempotencyKey {
				conversation := state.conversation
				return &models.AppendResult{Conversation: &conversation, Message: &existing, Duplicate: true}, nil
			}
		}
	}

	timestamp := now
	if timestamp.Before(state.conversation.LastUpdated) {
		timestamp = state.conversation.LastUpdated
	}

	message := models.ChatMessage{
		ID:             uuid.New(),
		ConversationID: state.conversation.ID,
		Seq:            int64(len(state.messages)) + 1,
		Sender:         input.Sender,
		Content:        content,
		IdempotencyKey: input.IdempotencyKey,
		Timestamp:      timestamp,
	}
	state.messages = append(state.messages, message)
	state.conversation.LastUpdated = timestamp

	conversation := state.conversation
	return &models.AppendResult{Conversation: &conversation, Message: &message}, nil
}

func (s *MemoryConversationStore) GetMessages(
	_ context.Context,
	a, b string,
	cursor models.MessageCursor,
) ([]models.ChatMessage, error) {
	if err := validatePair(a, b); err != nil {
		return nil, err
	}

	value, ok := s.conversations.Load(PairKey(a, b))
	if !ok {
		return []models.ChatMessage{}, nil
	}
	state := value.(*conversationState)
	state.mu.Lock()
	defer state.mu.Unlock()

	messages := make([]models.ChatMessage, 0)
	for _, message := range state.messages {
		if message.Seq <= cursor.AfterSeq {
			continue
		}
		messages = append(messages, message)
		if cursor.Limit > 0 && len(messages) == cursor.Limit {
			break
		}
	}
	return messages, nil
}

func (s *MemoryConversationStore) ListConversationsFor(_ context.Context, user string) ([]models.ConversationSummary, error) {
	summaries := make([]models.ConversationSummary, 0)
	s.conversations.Range(func(_, value any) bool {
		state := value.(*conversationState)
		if state.conversation.ParticipantA != user && state.conversation.ParticipantB != user {
			return true
		}

		state.mu.Lock()
		n := len(state.messages)
		if n == 0 {
			// Opened but never written to.
			state.mu.Unlock()
			return true
		}
		last := state.messages[n-1]
		summary := models.ConversationSummary{
			Conversation:     state.conversation,
			OtherParticipant: state.conversation.Other(user),
			LastMessage:      &last,
		}
		state.mu.Unlock()

		summaries = append(summaries, summary)
		return true
	})

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].LastUpdated.Equal(summaries[j].LastUpdated) {
			return summaries[i].OtherParticipant < summaries[j].OtherParticipant
		}
		return summaries[i].LastUpdated.After(summaries[j].LastUpdated)
	})
	return summaries, nil
}

// validateAppend checks an append request and returns the trimmed content.
func validateAppend(input models.AppendMessageInput) (string, error) {
	if err := validatePair(input.UserA, input.UserB); err != nil {
		return "", err
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return "", apperr.ErrEmptyContent
	}
	if input.Sender != input.UserA && input.Sender != input.UserB {
		return "", apperr.ErrUnknownSender
	}
	return content, nil
}
