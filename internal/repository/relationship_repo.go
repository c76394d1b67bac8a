package repository

import (
	"context"
	"time"

	"github.com/saeid-a/AlumniNetworkBack/internal/models"
)

type RelationshipRepository struct {
	db DBTX
}

func NewRelationshipRepository(db DBTX) *RelationshipRepository {
	return &RelationshipRepository{db: db}
}

// LockPair takes a transaction-scoped advisory lock on the unordered pair key.
// It must run inside a transaction; the lock is released on commit or rollback.
func (r *RelationshipRepository) LockPair(ctx context.Context, pairKey string) error {
	_, err := r.db.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtextextended($1, 0))", pairKey)
	return err
}

type PairState struct {
	Forward   bool
	Reverse   bool
	Connected bool
}

// PairState reports PENDING(a,b), PENDING(b,a) and whether a connection exists.
func (r *RelationshipRepository) PairState(ctx context.Context, a, b string) (PairState, error) {
	query := `
		SELECT
			EXISTS (SELECT 1 FROM connection_requests WHERE from_email = $1 AND to_email = $2),
			EXISTS (SELECT 1 FROM connection_requests WHERE from_email = $2 AND to_email = $1),
			EXISTS (SELECT 1 FROM connections WHERE user_email = $1 AND other_email = $2)
	`
	var state PairState
	err := r.db.QueryRow(ctx, query, a, b).Scan(&state.Forward, &state.Reverse, &state.Connected)
	return state, err
}

func (r *RelationshipRepository) InsertRequest(ctx context.Context, from, to string) (*models.ConnectionRequest, error) {
	query := `
		INSERT INTO connection_requests (from_email, to_email)
		VALUES ($1, $2)
		RETURNING from_email, to_email, created_at
	`
	var request models.ConnectionRequest
	if err := r.db.QueryRow(ctx, query, from, to).Scan(
		&request.FromEmail,
		&request.ToEmail,
		&request.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &request, nil
}

// DeleteRequest reports whether a row was removed.
func (r *RelationshipRepository) DeleteRequest(ctx context.Context, from, to string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM connection_requests
		WHERE from_email = $1 AND to_email = $2
	`, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// InsertConnectionPair writes both mirrored adjacency rows with one timestamp.
func (r *RelationshipRepository) InsertConnectionPair(ctx context.Context, a, b string) (time.Time, error) {
	var createdAt time.Time
	err := r.db.QueryRow(ctx, `
		WITH ts AS (SELECT NOW() AS created_at)
		INSERT INTO connections (user_email, other_email, created_at)
		SELECT $1, $2, created_at FROM ts
		UNION ALL
		SELECT $2, $1, created_at FROM ts
		RETURNING created_at
	`, a, b).Scan(&createdAt)
	return createdAt, err
}

func (r *RelationshipRepository) DeleteConnectionPair(ctx context.Context, a, b string) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM connections
		WHERE (user_email = $1 AND other_email = $2)
		   OR (user_email = $2 AND other_email = $1)
	`, a, b)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *RelationshipRepository) ListConnections(ctx context.Context, user string) ([]models.Connection, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_email, other_email, created_at
		FROM connections
		WHERE user_email = $1
		ORDER BY created_at ASC, other_email ASC
	`, user)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	connections := make([]models.Connection, 0)
	for rows.Next() {
		var connection models.Connection
		if err := rows.Scan(&connection.UserEmail, &connection.OtherEmail, &connection.CreatedAt); err != nil {
			return nil, err
		}
		connections = append(connections, connection)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return connections, nil
}

func (r *RelationshipRepository) ListRequestsTo(ctx context.Context, user string) ([]models.ConnectionRequest, error) {
	return r.listRequests(ctx, `
		SELECT from_email, to_email, created_at
		FROM connection_requests
		WHERE to_email = $1
		ORDER BY created_at ASC, from_email ASC
	`, user)
}

func (r *RelationshipRepository) ListRequestsFrom(ctx context.Context, user string) ([]models.ConnectionRequest, error) {
	return r.listRequests(ctx, `
		SELECT from_email, to_email, created_at
		FROM connection_requests
		WHERE from_email = $1
		ORDER BY created_at ASC, to_email ASC
	`, user)
}

func (r *RelationshipRepository) listRequests(ctx context.Context, query string, user string) ([]models.ConnectionRequest, error) {
	rows, err := r.db.Query(ctx, query, user)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]models.ConnectionRequest, 0)
	for rows.Next() {
		var request models.ConnectionRequest
		if err := rows.Scan(&request.FromEmail, &request.ToEmail, &request.CreatedAt); err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return requests, nil
}
