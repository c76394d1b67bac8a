package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/saeid-a/AlumniNetworkBack/internal/apperr"
	"github.com/saeid-a/AlumniNetworkBack/internal/models"
)

// pairState is the whole relationship between two users. Only the owning
// pair's mutex may read or write it.
type pairState struct {
	mu          sync.Mutex
	first       string
	second      string
	requests    map[string]time.Time // keyed by the requester
	connectedAt *time.Time
}

func (p *pairState) other(email string) string {
	if p.first == email {
		return p.second
	}
	return p.first
}

func (p *pairState) involves(email string) bool {
	return p.first == email || p.second == email
}

type MemoryRelationshipStore struct {
	pairs sync.Map // PairKey -> *pairState
	now   func() time.Time
}

func NewMemoryRelationshipStore() *MemoryRelationshipStore {
	return &MemoryRelationshipStore{now: func() time.Time { return time.Now().UTC() }}
}

func (s *MemoryRelationshipStore) pair(a, b string) *pairState {
	first, second := CanonicalPair(a, b)
	state, _ := s.pairs.LoadOrStore(PairKey(a, b), &pairState{
		first:    first,
		second:   second,
		requests: make(map[string]time.Time),
	})
	return state.(*pairState)
}

// existing returns the pair's state without creating it. Operations that
// only act on an existing request or connection use it.
func (s *MemoryRelationshipStore) existing(a, b string) (*pairState, bool) {
	value, ok := s.pairs.Load(PairKey(a, b))
	if !ok {
		return nil, false
	}
	return value.(*pairState), true
}

func (s *MemoryRelationshipStore) SendRequest(_ context.Context, from, to string) (*models.ConnectionRequest, error) {
	if err := validatePair(from, to); err != nil {
		return nil, err
	}

	state := s.pair(from, to)
	state.mu.Lock()
	defer state.mu.Unlock()

	if state.connectedAt != nil {
		return nil, apperr.ErrAlreadyConnected
	}
	if _, pending := state.requests[from]; pending {
		return nil, apperr.ErrAlreadyRequested
	}

	createdAt := s.now()
	state.requests[from] = createdAt
	return &models.ConnectionRequest{FromEmail: from, ToEmail: to, CreatedAt: createdAt}, nil
}

func (s *MemoryRelationshipStore) WithdrawRequest(_ context.Context, from, to string) error {
	if err := validatePair(from, to); err != nil {
		return err
	}

	state, ok := s.existing(from, to)
	if !ok {
		return apperr.ErrNoSuchRequest
	}
	state.mu.Lock()
	defer state.mu.Unlock()

	if _, pending := state.requests[from]; !pending {
		return apperr.ErrNoSuchRequest
	}
	delete(state.requests, from)
	return nil
}

func (s *MemoryRelationshipStore) RespondToRequest(
	_ context.Context,
	from, to string,
	decision models.Decision,
) (*models.Connection, error) {
	if err := validatePair(from, to); err != nil {
		return nil, err
	}
	if !decision.Valid() {
		return nil, apperr.ErrInvalidDecision
	}

	state, ok := s.existing(from, to)
	if !ok {
		return nil, apperr.ErrNoSuchRequest
	}
	state.mu.Lock()
	defer state.mu.Unlock()

	if _, pending := state.requests[from]; !pending {
		return nil, apperr.ErrNoSuchRequest
	}
	delete(state.requests, from)

	if decision == models.DecisionDeclined {
		return nil, nil
	}

	// A connection supersedes the reverse request, if any.
	delete(state.requests, to)
	connectedAt := s.now()
	state.connectedAt = &connectedAt
	return &models.Connection{UserEmail: from, OtherEmail: to, CreatedAt: connectedAt}, nil
}

func (s *MemoryRelationshipStore) Disconnect(_ context.Context, a, b string) error {
	if err := validatePair(a, b); err != nil {
		return err
	}

	state, ok := s.existing(a, b)
	if !ok {
		return apperr.ErrNotConnected
	}
	state.mu.Lock()
	defer state.mu.Unlock()

	if state.connectedAt == nil {
		return apperr.ErrNotConnected
	}
	state.connectedAt = nil
	return nil
}

func (s *MemoryRelationshipStore) ListConnections(_ context.Context, user string) ([]models.Connection, error) {
	connections := make([]models.Connection, 0)
	s.each(user, func(state *pairState) {
		if state.connectedAt != nil {
			connections = append(connections, models.Connection{
				UserEmail:  user,
				OtherEmail: state.other(user),
				CreatedAt:  *state.connectedAt,
			})
		}
	})
	sort.Slice(connections, func(i, j int) bool {
		if connections[i].CreatedAt.Equal(connections[j].CreatedAt) {
			return connections[i].OtherEmail < connections[j].OtherEmail
		}
		return connections[i].CreatedAt.Before(connections[j].CreatedAt)
	})
	return connections, nil
}

func (s *MemoryRelationshipStore) ListPendingRequestsReceived(_ context.Context, user string) ([]models.ConnectionRequest, error) {
	requests := make([]models.ConnectionRequest, 0)
	s.each(user, func(state *pairState) {
		other := state.other(user)
		if createdAt, ok := state.requests[other]; ok {
			requests = append(requests, models.ConnectionRequest{FromEmail: other, ToEmail: user, CreatedAt: createdAt})
		}
	})
	sortRequests(requests, func(r models.ConnectionRequest) string { return r.FromEmail })
	return requests, nil
}

func (s *MemoryRelationshipStore) ListPendingRequestsSent(_ context.Context, user string) ([]models.ConnectionRequest, error) {
	requests := make([]models.ConnectionRequest, 0)
	s.each(user, func(state *pairState) {
		if createdAt, ok := state.requests[user]; ok {
			requests = append(requests, models.ConnectionRequest{FromEmail: user, ToEmail: state.other(user), CreatedAt: createdAt})
		}
	})
	sortRequests(requests, func(r models.ConnectionRequest) string { return r.ToEmail })
	return requests, nil
}

func (s *MemoryRelationshipStore) Relationship(_ context.Context, a, b string) (models.RelationshipStatus, error) {
	if err := validatePair(a, b); err != nil {
		return "", err
	}
	state, ok := s.existing(a, b)
	if !ok {
		return models.RelationshipNone, nil
	}
	state.mu.Lock()
	defer state.mu.Unlock()

	_, forward := state.requests[a]
	_, reverse := state.requests[b]
	return statusFor(forward, reverse, state.connectedAt != nil), nil
}

// each visits every pair involving user, holding that pair's lock during fn.
func (s *MemoryRelationshipStore) each(user string, fn func(state *pairState)) {
	s.pairs.Range(func(_, value any) bool {
		state := value.(*pairState)
		if !state.involves(user) {
			return true
		}
		state.mu.Lock()
		fn(state)
		state.mu.Unlock()
		return true
	})
}

func sortRequests(requests []models.ConnectionRequest, counterpart func(models.ConnectionRequest) string) {
	sort.Slice(requests, func(i, j int) bool {
		if requests[i].CreatedAt.Equal(requests[j].CreatedAt) {
			return counterpart(requests[i]) < counterpart(requests[j])
		}
		return requests[i].CreatedAt.Before(requests[j].CreatedAt)
	})
}
