package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/AlumniNetworkBack/internal/apperr"
	"github.com/saeid-a/AlumniNetworkBack/internal/models"
	"github.com/saeid-a/AlumniNetworkBack/internal/repository"
)

type PostgresIdentityResolver struct {
	users *repository.UserRepository
	guard *Guard
}

func NewPostgresIdentityResolver(db repository.DBTX, guard *Guard) *PostgresIdentityResolver {
	return &PostgresIdentityResolver{users: repository.NewUserRepository(db), guard: guard}
}

func (r *PostgresIdentityResolver) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user *models.User
	err := r.guard.Do(ctx, "get_user", func(ctx context.Context) error {
		var err error
		user, err = r.users.GetByEmail(ctx, email)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.ErrUserNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *PostgresIdentityResolver) GetByEmails(ctx context.Context, emails []string) ([]models.User, error) {
	var users []models.User
	err := r.guard.Do(ctx, "get_users", func(ctx context.Context) error {
		var err error
		users, err = r.users.GetByEmails(ctx, emails)
		return err
	})
	return users, err
}

func (r *PostgresIdentityResolver) ListAll(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.guard.Do(ctx, "list_users", func(ctx context.Context) error {
		var err error
		users, err = r.users.ListAll(ctx)
		return err
	})
	return users, err
}
