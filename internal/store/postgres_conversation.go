package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/AlumniNetworkBack/internal/models"
	"github.com/saeid-a/AlumniNetworkBack/internal/repository"
)

type PostgresConversationStore struct {
	pool              Pool
	guard             *Guard
	idempotencyWindow time.Duration
}

func NewPostgresConversationStore(pool Pool, guard *Guard, idempotencyWindow time.Duration) *PostgresConversationStore {
	return &PostgresConversationStore{pool: pool, guard: guard, idempotencyWindow: idempotencyWindow}
}

func (s *PostgresConversationStore) GetOrCreateConversation(ctx context.Context, a, b string) (*models.Conversation, error) {
	if err := validatePair(a, b); err != nil {
		return nil, err
	}

	first, second := CanonicalPair(a, b)
	var conversation *models.Conversation
	err := s.guard.Do(ctx, "get_or_create_conversation", func(ctx context.Context) error {
		var err error
		conversation, err = repository.NewConversationRepository(s.pool).CreateOrGet(ctx, first, second)
		return err
	})
	if err != nil {
		return nil, err
	}
	return conversation, nil
}

// AppendMessage relies on CreateOrGet's ON CONFLICT DO UPDATE, which row-locks
// the conversation until commit, so appends to one conversation serialize.
func (s *PostgresConversationStore) AppendMessage(ctx context.Context, input models.AppendMessageInput) (*models.AppendResult, error) {
	content, err := validateAppend(input)
	if err != nil {
		return nil, err
	}

	first, second := CanonicalPair(input.UserA, input.UserB)
	var result *models.AppendResult
	err = s.guard.Do(ctx, "append_message", func(ctx context.Context) error {
		return inTx(ctx, s.pool, func(tx pgx.Tx) error {
			conversationRepo := repository.NewConversationRepository(tx)
			messageRepo := repository.NewMessageRepository(tx)

			conversation, err := conversationRepo.CreateOrGet(ctx, first, second)
			if err != nil {
				return err
			}

			if input.IdempotencyKey != "" && s.idempotencyWindow > 0 {
				existing, err := messageRepo.FindRecentByIdempotencyKey(
					ctx,
					conversation.ID,
					input.Sender,
					input.IdempotencyKey,
					s.idempotencyWindow,
				)
				switch {
				case err == nil:
					result = &models.AppendResult{Conversation: conversation, Message: existing, Duplicate: true}
					return nil
				case !errors.Is(err, pgx.ErrNoRows):
					return err
				}
			}

			advanced, seq, err := conversationRepo.AdvanceSequence(ctx, conversation.ID)
			if err != nil {
				return err
			}

			message, err := messageRepo.Create(ctx, &models.ChatMessage{
				ID:             uuid.New(),
				ConversationID: advanced.ID,
				Seq:            seq,
				Sender:         input.Sender,
				Content:        content,
				IdempotencyKey: input.IdempotencyKey,
				Timestamp:      advanced.LastUpdated,
			})
			if err != nil {
				return err
			}

			result = &models.AppendResult{Conversation: advanced, Message: message}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostgresConversationStore) GetMessages(
	ctx context.Context,
	a, b string,
	cursor models.MessageCursor,
) ([]models.ChatMessage, error) {
	if err := validatePair(a, b); err != nil {
		return nil, err
	}

	first, second := CanonicalPair(a, b)
	messages := []models.ChatMessage{}
	err := s.guard.Do(ctx, "get_messages", func(ctx context.Context) error {
		conversation, err := repository.NewConversationRepository(s.pool).GetByPair(ctx, first, second)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		messages, err = repository.NewMessageRepository(s.pool).ListByConversation(ctx, conversation.ID, cursor.AfterSeq, cursor.Limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *PostgresConversationStore) ListConversationsFor(ctx context.Context, user string) ([]models.ConversationSummary, error) {
	var summaries []models.ConversationSummary
	err := s.guard.Do(ctx, "list_conversations", func(ctx context.Context) error {
		var err error
		summaries, err = repository.NewConversationRepository(s.pool).ListForParticipant(ctx, user)
		return err
	})
	return summaries, err
}
