package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/saeid-a/AlumniNetworkBack/internal/apperr"
	"github.com/saeid-a/AlumniNetworkBack/internal/logger"
	"github.com/saeid-a/AlumniNetworkBack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testDBOnce sync.Once
	testDBPool *pgxpool.Pool
	testDBErr  error

	pgUserSeq atomic.Int64
)

func TestPostgresRelationshipStoreContract(t *testing.T) {
	pool := integrationTestPool(t)
	guard := NewGuard(GuardConfig{Name: "relationships_test"}, logger.Nop(), nil)

	runRelationshipContract(t, func(*testing.T) RelationshipStore {
		return NewPostgresRelationshipStore(pool, guard)
	}, postgresFixture(pool))
}

func TestPostgresConversationStoreContract(t *testing.T) {
	pool := integrationTestPool(t)
	guard := NewGuard(GuardConfig{Name: "conversations_test"}, logger.Nop(), nil)

	runConversationContract(t, func(*testing.T) ConversationStore {
		return NewPostgresConversationStore(pool, guard, 10*time.Minute)
	}, postgresFixture(pool))
}

func TestPostgresRelationshipStoreUnknownUser(t *testing.T) {
	pool := integrationTestPool(t)
	s := NewPostgresRelationshipStore(pool, NewGuard(GuardConfig{Name: "relationships_test"}, logger.Nop(), nil))
	known := postgresFixture(pool).newUser(t, models.RoleStudent)

	_, err := s.SendRequest(context.Background(), known, "ghost-"+known)
	assert.ErrorIs(t, err, apperr.ErrUserNotFound)
}

func TestPostgresIdentityResolver(t *testing.T) {
	pool := integrationTestPool(t)
	r := NewPostgresIdentityResolver(pool, NewGuard(GuardConfig{Name: "identity_test"}, logger.Nop(), nil))
	email := postgresFixture(pool).newUser(t, models.RoleAlumni)
	ctx := context.Background()

	user, err := r.GetByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAlumni, user.Role)

	_, err = r.GetByEmail(ctx, "missing-"+email)
	assert.ErrorIs(t, err, apperr.ErrUserNotFound)

	users, err := r.GetByEmails(ctx, []string{email, "missing-" + email})
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func integrationTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	testDBOnce.Do(func() {
		_ = godotenv.Load(".env")
		_ = godotenv.Load(filepath.Join("..", "..", ".env"))

		dbURL := os.Getenv("DB_URL")
		if dbURL == "" {
			testDBErr = fmt.Errorf("DB_URL is not set")
			return
		}

		cfg, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			testDBErr = err
			return
		}

		testDBPool, testDBErr = pgxpool.NewWithConfig(context.Background(), cfg)
		if testDBErr != nil {
			return
		}
		testDBErr = testDBPool.Ping(context.Background())
	})

	if testDBErr != nil {
		t.Skipf("skipping integration test: %v", testDBErr)
	}
	return testDBPool
}

// postgresFixture inserts throwaway users and removes everything they touched
// when the test finishes. Migrations must already be applied.
func postgresFixture(pool *pgxpool.Pool) fixture {
	return fixture{
		newUser: func(t *testing.T, role models.Role) string {
			t.Helper()
			ctx := context.Background()
			email := fmt.Sprintf("store-test-%s-%d-%d@uni.edu", role, time.Now().UnixNano(), pgUserSeq.Add(1))

			_, err := pool.Exec(ctx,
				`INSERT INTO users (email, name, role) VALUES ($1, $2, $3)`,
				email, "Test "+string(role), string(role),
			)
			require.NoError(t, err, "insert user")

			t.Cleanup(func() { cleanupTestUsers(t, pool, email) })
			return email
		},
	}
}

func cleanupTestUsers(t *testing.T, pool *pgxpool.Pool, emails ...string) {
	t.Helper()
	ctx := context.Background()

	if _, err := pool.Exec(ctx, "DELETE FROM conversations WHERE participant_a = ANY($1) OR participant_b = ANY($1)", emails); err != nil {
		t.Fatalf("cleanup conversations: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM users WHERE email = ANY($1)", emails); err != nil {
		t.Fatalf("cleanup users: %v", err)
	}
}
