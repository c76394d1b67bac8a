package services

import (
	"context"
	"errors"

	"github.com/saeid-a/AlumniNetworkBack/internal/apperr"
	"github.com/saeid-a/AlumniNetworkBack/internal/models"
	"github.com/saeid-a/AlumniNetworkBack/internal/store"
)

// identityCache memoizes lookups for the lifetime of one service call.
// It is not safe for concurrent use and must not outlive the call.
type identityCache struct {
	resolver store.IdentityResolver
	users    map[string]*models.User
	missing  map[string]struct{}
}

func newIdentityCache(resolver store.IdentityResolver) *identityCache {
	return &identityCache{
		resolver: resolver,
		users:    make(map[string]*models.User),
		missing:  make(map[string]struct{}),
	}
}

// require returns the user or apperr.ErrUserNotFound, and rejects users
// whose role is neither student nor alumni.
func (c *identityCache) require(ctx context.Context, email string) (*models.User, error) {
	if user, ok := c.users[email]; ok {
		return user, nil
	}
	if _, ok := c.missing[email]; ok {
		return nil, apperr.ErrUserNotFound
	}

	user, err := c.resolver.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrUserNotFound) {
			c.missing[email] = struct{}{}
		}
		return nil, err
	}
	if !user.Role.Valid() {
		return nil, apperr.ErrUnknownRole
	}
	c.users[email] = user
	return user, nil
}

// preload fetches every email not yet seen in one round trip.
func (c *identityCache) preload(ctx context.Context, emails []string) error {
	pending := make([]string, 0, len(emails))
	seen := make(map[string]struct{}, len(emails))
	for _, email := range emails {
		if _, ok := c.users[email]; ok {
			continue
		}
		if _, ok := c.missing[email]; ok {
			continue
		}
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		pending = append(pending, email)
	}
	if len(pending) == 0 {
		return nil
	}

	users, err := c.resolver.GetByEmails(ctx, pending)
	if err != nil {
		return err
	}
	for i := range users {
		user := users[i]
		c.users[user.Email] = &user
		delete(seen, user.Email)
	}
	for email := range seen {
		c.missing[email] = struct{}{}
	}
	return nil
}

func (c *identityCache) seed(users []models.User) {
	for i := range users {
		user := users[i]
		c.users[user.Email] = &user
	}
}

// project renders email as a listing entry. Users the resolver no longer
// knows render as "Unknown" with the default avatar.
func (c *identityCache) project(email string) models.UserProjection {
	if user, ok := c.users[email]; ok {
		return models.ProjectUser(user)
	}
	return models.UserProjection{
		Email:  email,
		Name:   UnknownUserName,
		Avatar: models.DefaultAvatarURL,
	}
}
