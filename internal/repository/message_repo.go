package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/saeid-a/AlumniNetworkBack/internal/models"
)

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

const messageColumns = `id, conversation_id, seq, sender, content, idempotency_key, created_at`

func (r *MessageRepository) Create(ctx context.Context, message *models.ChatMessage) (*models.ChatMessage, error) {
	query := `
		INSERT INTO messages (id, conversation_id, seq, sender, content, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + messageColumns

	var created models.ChatMessage
	err := r.db.QueryRow(ctx, query,
		message.ID,
		message.ConversationID,
		message.Seq,
		message.Sender,
		message.Content,
		message.IdempotencyKey,
		message.Timestamp,
	).Scan(
		&created.ID,
		&created.ConversationID,
		&created.Seq,
		&created.Sender,
		&created.Content,
		&created.IdempotencyKey,
		&created.Timestamp,
	)
	if err != nil {
		return nil, err
	}

	return &created, nil
}

// FindRecentByIdempotencyKey returns the newest message from sender carrying
// key that is younger than window, or pgx.ErrNoRows.
func (r *MessageRepository) FindRecentByIdempotencyKey(
	ctx context.Context,
	conversationID uuid.UUID,
	sender string,
	key string,
	window time.Duration,
) (*models.ChatMessage, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE conversation_id = $1
		  AND sender = $2
		  AND idempotency_key = $3
		  AND created_at >= clock_timestamp() - make_interval(secs => $4)
		ORDER BY seq DESC
		LIMIT 1
	`

	var message models.ChatMessage
	err := r.db.QueryRow(ctx, query, conversationID, sender, key, window.Seconds()).Scan(
		&message.ID,
		&message.ConversationID,
		&message.Seq,
		&message.Sender,
		&message.Content,
		&message.IdempotencyKey,
		&message.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// ListByConversation returns messages in append order. limit <= 0 means all.
func (r *MessageRepository) ListByConversation(
	ctx context.Context,
	conversationID uuid.UUID,
	afterSeq int64,
	limit int,
) ([]models.ChatMessage, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE conversation_id = $1 AND seq > $2
		ORDER BY seq ASC
		LIMIT $3
	`

	var limitArg any
	if limit > 0 {
		limitArg = limit
	}

	rows, err := r.db.Query(ctx, query, conversationID, afterSeq, limitArg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.ChatMessage, 0)
	for rows.Next() {
		var message models.ChatMessage
		if err := rows.Scan(
			&message.ID,
			&message.ConversationID,
			&message.Seq,
			&message.Sender,
			&message.Content,
			&message.IdempotencyKey,
			&message.Timestamp,
		); err != nil {
			return nil, err
		}

		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}
