package services

import (
	"context"
	"strings"

	"github.com/saeid-a/AlumniNetworkBack/internal/apperr"
	"github.com/saeid-a/AlumniNetworkBack/internal/models"
)

const maxThreadPageSize = 200

type SendMessageInput struct {
	Sender         string
	Receiver       string
	Content        string
	IdempotencyKey string
}

type MessageDelivery struct {
	Conversation *models.Conversation
	Message      *models.ChatMessage
	Recipient    string
	Duplicate    bool
}

type Thread struct {
	Messages []models.ChatMessage
	Cursor   models.CursorMeta
}

func (s *NetworkService) SendMessage(ctx context.Context, actor string, input SendMessageInput) (*MessageDelivery, error) {
	delivery, err := s.sendMessage(ctx, actor, input)
	switch {
	case err != nil:
		s.metrics.ObserveAppend(apperr.Code(err))
		if apperr.KindOf(err) == apperr.KindUnavailable {
			s.log.Error("message append failed", "sender", input.Sender, "error", err)
		}
		return nil, err
	case delivery.Duplicate:
		s.metrics.ObserveAppend("duplicate")
		return delivery, nil
	}

	s.metrics.ObserveAppend("ok")
	s.publish(ctx, models.Event{
		Type:       models.EventMessage,
		Recipients: []string{delivery.Recipient, delivery.Message.Sender},
		Actor:      delivery.Message.Sender,
		Message:    delivery.Message,
	})
	return delivery, nil
}

func (s *NetworkService) sendMessage(ctx context.Context, actor string, input SendMessageInput) (*MessageDelivery, error) {
	sender := models.NormalizeEmail(input.Sender)
	receiver := models.NormalizeEmail(input.Receiver)
	if sender == "" || receiver == "" {
		return nil, apperr.ErrInvalidInput
	}
	if models.NormalizeEmail(actor) != sender {
		return nil, apperr.ErrForbidden
	}
	if sender == receiver {
		return nil, apperr.ErrSelfRequest
	}
	if strings.TrimSpace(input.Content) == "" {
		return nil, apperr.ErrEmptyContent
	}

	ids := newIdentityCache(s.identities)
	if _, err := ids.require(ctx, sender); err != nil {
		return nil, err
	}
	if _, err := ids.require(ctx, receiver); err != nil {
		return nil, err
	}

	result, err := s.conversations.AppendMessage(ctx, models.AppendMessageInput{
		UserA:          sender,
		UserB:          receiver,
		Sender:         sender,
		Content:        input.Content,
		IdempotencyKey: strings.TrimSpace(input.IdempotencyKey),
	})
	if err != nil {
		return nil, err
	}

	return &MessageDelivery{
		Conversation: result.Conversation,
		Message:      result.Message,
		Recipient:    receiver,
		Duplicate:    result.Duplicate,
	}, nil
}

// GetThread pages a conversation forward from cursor.AfterSeq. The actor must
// be one of the two participants.
func (s *NetworkService) GetThread(ctx context.Context, actor, userA, userB string, cursor models.MessageCursor) (*Thread, error) {
	me := models.NormalizeEmail(actor)
	userA = models.NormalizeEmail(userA)
	userB = models.NormalizeEmail(userB)
	if userA == "" || userB == "" || cursor.AfterSeq < 0 || cursor.Limit < 0 {
		return nil, apperr.ErrInvalidInput
	}
	if me == "" || (me != userA && me != userB) {
		return nil, apperr.ErrForbidden
	}
	if cursor.Limit > maxThreadPageSize {
		cursor.Limit = maxThreadPageSize
	}

	// One extra row tells us whether another page follows.
	query := cursor
	if query.Limit > 0 {
		query.Limit++
	}
	messages, err := s.conversations.GetMessages(ctx, userA, userB, query)
	if err != nil {
		return nil, err
	}

	hasMore := cursor.Limit > 0 && len(messages) > cursor.Limit
	if hasMore {
		messages = messages[:cursor.Limit]
	}
	nextSeq := cursor.AfterSeq
	if n := len(messages); n > 0 {
		nextSeq = messages[n-1].Seq
	}

	return &Thread{
		Messages: messages,
		Cursor: models.CursorMeta{
			AfterSeq: cursor.AfterSeq,
			Limit:    cursor.Limit,
			NextSeq:  nextSeq,
			HasMore:  hasMore,
		},
	}, nil
}

// GetChatList renders one row per conversation, most recent first.
func (s *NetworkService) GetChatList(ctx context.Context, actor, user string) ([]models.ChatListEntry, error) {
	user, err := subject(actor, user)
	if err != nil {
		return nil, err
	}

	summaries, err := s.conversations.ListConversationsFor(ctx, user)
	if err != nil {
		return nil, err
	}

	others := make([]string, 0, len(summaries))
	for _, summary := range summaries {
		others = append(others, summary.OtherParticipant)
	}
	ids := newIdentityCache(s.identities)
	if err := ids.preload(ctx, others); err != nil {
		return nil, err
	}

	entries := make([]models.ChatListEntry, 0, len(summaries))
	for _, summary := range summaries {
		profile := ids.project(summary.OtherParticipant)
		entry := models.ChatListEntry{
			Email:           summary.OtherParticipant,
			Name:            profile.Name,
			Avatar:          profile.Avatar,
			Role:            profile.Role,
			LastMessageTime: summary.LastUpdated,
			Message:         summary.LastMessage,
		}
		if summary.LastMessage != nil {
			entry.LastMessage = summary.LastMessage.Content
			entry.LastMessageTime = summary.LastMessage.Timestamp
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
