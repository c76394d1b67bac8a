package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/AlumniNetworkBack/internal/apperr"
	"github.com/saeid-a/AlumniNetworkBack/internal/models"
	"github.com/saeid-a/AlumniNetworkBack/internal/repository"
)

type PostgresRelationshipStore struct {
	pool  Pool
	guard *Guard
}

func NewPostgresRelationshipStore(pool Pool, guard *Guard) *PostgresRelationshipStore {
	return &PostgresRelationshipStore{pool: pool, guard: guard}
}

// inPairTx runs fn in a transaction holding the advisory lock for the pair.
func (s *PostgresRelationshipStore) inPairTx(
	ctx context.Context,
	operation string,
	a, b string,
	fn func(ctx context.Context, repo *repository.RelationshipRepository) error,
) error {
	return s.guard.Do(ctx, operation, func(ctx context.Context) error {
		return inTx(ctx, s.pool, func(tx pgx.Tx) error {
			repo := repository.NewRelationshipRepository(tx)
			if err := repo.LockPair(ctx, PairKey(a, b)); err != nil {
				return err
			}
			return fn(ctx, repo)
		})
	})
}

func (s *PostgresRelationshipStore) SendRequest(ctx context.Context, from, to string) (*models.ConnectionRequest, error) {
	if err := validatePair(from, to); err != nil {
		return nil, err
	}

	var request *models.ConnectionRequest
	err := s.inPairTx(ctx, "send_request", from, to, func(ctx context.Context, repo *repository.RelationshipRepository) error {
		state, err := repo.PairState(ctx, from, to)
		if err != nil {
			return err
		}
		if state.Connected {
			return apperr.ErrAlreadyConnected
		}
		if state.Forward {
			return apperr.ErrAlreadyRequested
		}

		request, err = repo.InsertRequest(ctx, from, to)
		return translatePgError(err, apperr.ErrAlreadyRequested)
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

func (s *PostgresRelationshipStore) WithdrawRequest(ctx context.Context, from, to string) error {
	if err := validatePair(from, to); err != nil {
		return err
	}

	return s.inPairTx(ctx, "withdraw_request", from, to, func(ctx context.Context, repo *repository.RelationshipRepository) error {
		deleted, err := repo.DeleteRequest(ctx, from, to)
		if err != nil {
			return err
		}
		if !deleted {
			return apperr.ErrNoSuchRequest
		}
		return nil
	})
}

func (s *PostgresRelationshipStore) RespondToRequest(
	ctx context.Context,
	from, to string,
	decision models.Decision,
) (*models.Connection, error) {
	if err := validatePair(from, to); err != nil {
		return nil, err
	}
	if !decision.Valid() {
		return nil, apperr.ErrInvalidDecision
	}

	var connection *models.Connection
	err := s.inPairTx(ctx, "respond_request", from, to, func(ctx context.Context, repo *repository.RelationshipRepository) error {
		deleted, err := repo.DeleteRequest(ctx, from, to)
		if err != nil {
			return err
		}
		if !deleted {
			return apperr.ErrNoSuchRequest
		}
		if decision == models.DecisionDeclined {
			return nil
		}

		if _, err := repo.DeleteRequest(ctx, to, from); err != nil {
			return err
		}
		createdAt, err := repo.InsertConnectionPair(ctx, from, to)
		if err != nil {
			return translatePgError(err, apperr.ErrAlreadyConnected)
		}
		connection = &models.Connection{UserEmail: from, OtherEmail: to, CreatedAt: createdAt}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return connection, nil
}

func (s *PostgresRelationshipStore) Disconnect(ctx context.Context, a, b string) error {
	if err := validatePair(a, b); err != nil {
		return err
	}

	return s.inPairTx(ctx, "disconnect", a, b, func(ctx context.Context, repo *repository.RelationshipRepository) error {
		removed, err := repo.DeleteConnectionPair(ctx, a, b)
		if err != nil {
			return err
		}
		if removed == 0 {
			return apperr.ErrNotConnected
		}
		return nil
	})
}

func (s *PostgresRelationshipStore) ListConnections(ctx context.Context, user string) ([]models.Connection, error) {
	var connections []models.Connection
	err := s.guard.Do(ctx, "list_connections", func(ctx context.Context) error {
		var err error
		connections, err = repository.NewRelationshipRepository(s.pool).ListConnections(ctx, user)
		return err
	})
	return connections, err
}

func (s *PostgresRelationshipStore) ListPendingRequestsReceived(ctx context.Context, user string) ([]models.ConnectionRequest, error) {
	var requests []models.ConnectionRequest
	err := s.guard.Do(ctx, "list_pending_received", func(ctx context.Context) error {
		var err error
		requests, err = repository.NewRelationshipRepository(s.pool).ListRequestsTo(ctx, user)
		return err
	})
	return requests, err
}

func (s *PostgresRelationshipStore) ListPendingRequestsSent(ctx context.Context, user string) ([]models.ConnectionRequest, error) {
	var requests []models.ConnectionRequest
	err := s.guard.Do(ctx, "list_pending_sent", func(ctx context.Context) error {
		var err error
		requests, err = repository.NewRelationshipRepository(s.pool).ListRequestsFrom(ctx, user)
		return err
	})
	return requests, err
}

func (s *PostgresRelationshipStore) Relationship(ctx context.Context, a, b string) (models.RelationshipStatus, error) {
	if err := validatePair(a, b); err != nil {
		return "", err
	}

	var status models.RelationshipStatus
	err := s.guard.Do(ctx, "relationship", func(ctx context.Context) error {
		state, err := repository.NewRelationshipRepository(s.pool).PairState(ctx, a, b)
		if err != nil {
			return err
		}
		status = statusFor(state.Forward, state.Reverse, state.Connected)
		return nil
	})
	return status, err
}
