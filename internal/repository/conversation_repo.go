package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/AlumniNetworkBack/internal/models"
)

type ConversationRepository struct {
	db DBTX
}

func NewConversationRepository(db DBTX) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// CreateOrGet expects participants in canonical order.
func (r *ConversationRepository) CreateOrGet(
	ctx context.Context,
	participantA string,
	participantB string,
) (*models.Conversation, error) {
	query := `
		INSERT INTO conversations (id, participant_a, participant_b)
		VALUES ($1, $2, $3)
		ON CONFLICT (participant_a, participant_b)
		DO UPDATE SET last_updated = conversations.last_updated
		RETURNING id, participant_a, participant_b, created_at, last_updated
	`

	return scanConversation(r.db.QueryRow(ctx, query, uuid.New(), participantA, participantB))
}

func (r *ConversationRepository) GetByPair(
	ctx context.Context,
	participantA string,
	participantB string,
) (*models.Conversation, error) {
	query := `
		SELECT id, participant_a, participant_b, created_at, last_updated
		FROM conversations
		WHERE participant_a = $1 AND participant_b = $2
	`

	return scanConversation(r.db.QueryRow(ctx, query, participantA, participantB))
}

// AdvanceSequence reserves the next message position. The returned timestamp
// never precedes the previous message in the conversation.
func (r *ConversationRepository) AdvanceSequence(ctx context.Context, conversationID uuid.UUID) (*models.Conversation, int64, error) {
	query := `
		UPDATE conversations
		SET next_seq = next_seq + 1,
		    last_updated = GREATEST(clock_timestamp(), last_updated)
		WHERE id = $1
		RETURNING id, participant_a, participant_b, created_at, last_updated, next_seq
	`

	var conversation models.Conversation
	var seq int64
	err := r.db.QueryRow(ctx, query, conversationID).Scan(
		&conversation.ID,
		&conversation.ParticipantA,
		&conversation.ParticipantB,
		&conversation.CreatedAt,
		&conversation.LastUpdated,
		&seq,
	)
	if err != nil {
		return nil, 0, err
	}
	return &conversation, seq, nil
}

func (r *ConversationRepository) ListForParticipant(
	ctx context.Context,
	participant string,
) ([]models.ConversationSummary, error) {
	query := `
		SELECT
			c.id,
			c.participant_a,
			c.participant_b,
			c.created_at,
			c.last_updated,
			lm.id,
			lm.seq,
			lm.sender,
			lm.content,
			lm.created_at
		FROM conversations c
		JOIN LATERAL (
			SELECT id, seq, sender, content, created_at
			FROM messages
			WHERE conversation_id = c.id
			ORDER BY seq DESC
			LIMIT 1
		) lm ON TRUE
		WHERE c.participant_a = $1 OR c.participant_b = $1
		ORDER BY c.last_updated DESC, c.id DESC
	`

	rows, err := r.db.Query(ctx, query, participant)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]models.ConversationSummary, 0)
	for rows.Next() {
		var summary models.ConversationSummary
		var messageID *uuid.UUID
		var messageSeq sql.NullInt64
		var messageSender sql.NullString
		var messageContent sql.NullString
		var messageCreatedAt sql.NullTime

		if err := rows.Scan(
			&summary.ID,
			&summary.ParticipantA,
			&summary.ParticipantB,
			&summary.CreatedAt,
			&summary.LastUpdated,
			&messageID,
			&messageSeq,
			&messageSender,
			&messageContent,
			&messageCreatedAt,
		); err != nil {
			return nil, err
		}

		summary.OtherParticipant = summary.Other(participant)
		if messageID != nil {
			summary.LastMessage = &models.ChatMessage{
				ID:             *messageID,
				ConversationID: summary.ID,
				Seq:            messageSeq.Int64,
				Sender:         messageSender.String,
				Content:        messageContent.String,
				Timestamp:      messageCreatedAt.Time,
			}
		}

		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return summaries, nil
}

func scanConversation(row pgx.Row) (*models.Conversation, error) {
	var conversation models.Conversation
	if err := row.Scan(
		&conversation.ID,
		&conversation.ParticipantA,
		&conversation.ParticipantB,
		&conversation.CreatedAt,
		&conversation.LastUpdated,
	); err != nil {
		return nil, err
	}
	return &conversation, nil
}
