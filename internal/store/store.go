// Package store implements the relationship and conversation stores.
//
// Every mutation runs in one critical section scoped to the unordered pair of
// users it touches: a pair mutex in the memory stores, a transaction holding a
// pair advisory lock in the Postgres stores. Operations on different pairs
// never contend. Emails passed in are expected to be normalized already.
package store

import (
	"context"

	"github.com/saeid-a/AlumniNetworkBack/internal/models"
)

type RelationshipStore interface {
	SendRequest(ctx context.Context, from, to string) (*models.ConnectionRequest, error)
	WithdrawRequest(ctx context.Context, from, to string) error
	// RespondToRequest returns the connection entry for from's side on accept
	// and nil on decline.
	RespondToRequest(ctx context.Context, from, to string, decision models.Decision) (*models.Connection, error)
	Disconnect(ctx context.Context, a, b string) error
	ListConnections(ctx context.Context, user string) ([]models.Connection, error)
	ListPendingRequestsReceived(ctx context.Context, user string) ([]models.ConnectionRequest, error)
	ListPendingRequestsSent(ctx context.Context, user string) ([]models.ConnectionRequest, error)
	Relationship(ctx context.Context, a, b string) (models.RelationshipStatus, error)
}

type ConversationStore interface {
	GetOrCreateConversation(ctx context.Context, a, b string) (*models.Conversation, error)
	AppendMessage(ctx context.Context, input models.AppendMessageInput) (*models.AppendResult, error)
	// GetMessages returns an empty slice when the pair never talked.
	GetMessages(ctx context.Context, a, b string, cursor models.MessageCursor) ([]models.ChatMessage, error)
	ListConversationsFor(ctx context.Context, user string) ([]models.ConversationSummary, error)
}

// IdentityResolver is the read-only view of the users owned by the profile
// service. GetByEmail returns apperr.ErrUserNotFound for unknown emails.
type IdentityResolver interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByEmails(ctx context.Context, emails []string) ([]models.User, error)
	ListAll(ctx context.Context) ([]models.User, error)
}

func statusFor(forward, reverse, connected bool) models.RelationshipStatus {
	switch {
	case connected:
		return models.RelationshipConnected
	case forward && reverse:
		return models.RelationshipMutualPending
	case forward:
		return models.RelationshipPendingSent
	case reverse:
		return models.RelationshipPendingReceived
	default:
		return models.RelationshipNone
	}
}
