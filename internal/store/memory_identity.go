package store

import (
	"context"
	"sort"
	"sync"

	"github.com/saeid-a/AlumniNetworkBack/internal/apperr"
	"github.com/saeid-a/AlumniNetworkBack/internal/models"
)

// MemoryIdentityResolver serves users from process memory. It backs the
// memory store driver and tests.
type MemoryIdentityResolver struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewMemoryIdentityResolver(users ...models.User) *MemoryIdentityResolver {
	r := &MemoryIdentityResolver{users: make(map[string]models.User, len(users))}
	for _, user := range users {
		r.Put(user)
	}
	return r
}

func (r *MemoryIdentityResolver) Put(user models.User) {
	user.Email = models.NormalizeEmail(user.Email)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.Email] = user
}

func (r *MemoryIdentityResolver) Remove(email string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, models.NormalizeEmail(email))
}

func (r *MemoryIdentityResolver) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[email]
	if !ok {
		return nil, apperr.ErrUserNotFound
	}
	return &user, nil
}

func (r *MemoryIdentityResolver) GetByEmails(_ context.Context, emails []string) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]models.User, 0, len(emails))
	seen := make(map[string]struct{}, len(emails))
	for _, email := range emails {
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		if user, ok := r.users[email]; ok {
			users = append(users, user)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

func (r *MemoryIdentityResolver) ListAll(_ context.Context) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]models.User, 0, len(r.users))
	for _, user := range r.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Name == users[j].Name {
			return users[i].Email < users[j].Email
		}
		return users[i].Name < users[j].Name
	})
	return users, nil
}
