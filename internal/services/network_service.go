package services

import (
	"context"
	"sync"
	"time"

	"github.com/saeid-a/AlumniNetworkBack/internal/apperr"
	"github.com/saeid-a/AlumniNetworkBack/internal/logger"
	"github.com/saeid-a/AlumniNetworkBack/internal/metrics"
	"github.com/saeid-a/AlumniNetworkBack/internal/models"
	"github.com/saeid-a/AlumniNetworkBack/internal/store"
	"golang.org/x/sync/errgroup"
)

const (
	UnknownUserName = "Unknown"

	mutualLookupConcurrency = 8
)

// Notifier receives events after the store has committed them. Delivery is
// best effort; a failed publish never undoes the change.
type Notifier interface {
	Publish(ctx context.Context, event models.Event) error
}

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, models.Event) error { return nil }

// NetworkService composes the relationship and conversation stores with the
// identity resolver. It holds no state of its own.
type NetworkService struct {
	relationships store.RelationshipStore
	conversations store.ConversationStore
	identities    store.IdentityResolver
	notifier      Notifier
	metrics       *metrics.Collector
	log           *logger.Logger
	now           func() time.Time
}

func NewNetworkService(
	relationships store.RelationshipStore,
	conversations store.ConversationStore,
	identities store.IdentityResolver,
	notifier Notifier,
	collector *metrics.Collector,
	log *logger.Logger,
) *NetworkService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &NetworkService{
		relationships: relationships,
		conversations: conversations,
		identities:    identities,
		notifier:      notifier,
		metrics:       collector,
		log:           log.With("component", "network_service"),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// subject resolves whose data a read is about. An empty subject means the
// actor; anything else must be the actor.
func subject(actor, requested string) (string, error) {
	actor = models.NormalizeEmail(actor)
	requested = models.NormalizeEmail(requested)
	if actor == "" {
		return "", apperr.ErrForbidden
	}
	if requested == "" {
		return actor, nil
	}
	if requested != actor {
		return "", apperr.ErrForbidden
	}
	return actor, nil
}

func (s *NetworkService) ListConnections(ctx context.Context, actor, user string) ([]models.ConnectionView, error) {
	user, err := subject(actor, user)
	if err != nil {
		return nil, err
	}

	connections, err := s.relationships.ListConnections(ctx, user)
	if err != nil {
		return nil, err
	}

	ids := newIdentityCache(s.identities)
	others := make([]string, 0, len(connections))
	for _, connection := range connections {
		others = append(others, connection.OtherEmail)
	}
	if err := ids.preload(ctx, others); err != nil {
		return nil, err
	}
	return connectionViews(ids, connections), nil
}

func (s *NetworkService) ListPendingRequestsReceived(ctx context.Context, actor, user string) ([]models.PendingRequestView, error) {
	user, err := subject(actor, user)
	if err != nil {
		return nil, err
	}

	requests, err := s.relationships.ListPendingRequestsReceived(ctx, user)
	if err != nil {
		return nil, err
	}

	ids := newIdentityCache(s.identities)
	if err := ids.preload(ctx, requesters(requests)); err != nil {
		return nil, err
	}
	return requestViews(ids, requests, func(r models.ConnectionRequest) string { return r.FromEmail }), nil
}

func (s *NetworkService) ListPendingRequestsSent(ctx context.Context, actor, user string) ([]models.PendingRequestView, error) {
	user, err := subject(actor, user)
	if err != nil {
		return nil, err
	}

	requests, err := s.relationships.ListPendingRequestsSent(ctx, user)
	if err != nil {
		return nil, err
	}

	ids := newIdentityCache(s.identities)
	if err := ids.preload(ctx, recipients(requests)); err != nil {
		return nil, err
	}
	return requestViews(ids, requests, func(r models.ConnectionRequest) string { return r.ToEmail }), nil
}

// GetNetworkView gathers everything the network page shows in one call.
// Recommended users are everyone except the user, their connections and
// anyone with a pending request in either direction, ranked by match score.
func (s *NetworkService) GetNetworkView(ctx context.Context, actor, user string) (*models.NetworkView, error) {
	user, err := subject(actor, user)
	if err != nil {
		return nil, err
	}

	var (
		connections []models.Connection
		received    []models.ConnectionRequest
		sent        []models.ConnectionRequest
		everyone    []models.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		connections, err = s.relationships.ListConnections(gctx, user)
		return err
	})
	g.Go(func() error {
		var err error
		received, err = s.relationships.ListPendingRequestsReceived(gctx, user)
		return err
	})
	g.Go(func() error {
		var err error
		sent, err = s.relationships.ListPendingRequestsSent(gctx, user)
		return err
	})
	g.Go(func() error {
		var err error
		everyone, err = s.identities.ListAll(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ids := newIdentityCache(s.identities)
	ids.seed(everyone)

	excluded := map[string]struct{}{user: {}}
	for _, connection := range connections {
		excluded[connection.OtherEmail] = struct{}{}
	}
	for _, request := range received {
		excluded[request.FromEmail] = struct{}{}
	}
	for _, request := range sent {
		excluded[request.ToEmail] = struct{}{}
	}

	mutual, err := s.mutualConnections(ctx, user, connections)
	if err != nil {
		return nil, err
	}

	var me *models.User
	candidates := make([]models.User, 0, len(everyone))
	for i := range everyone {
		candidate := everyone[i]
		if candidate.Email == user {
			me = &everyone[i]
		}
		if _, skip := excluded[candidate.Email]; skip {
			continue
		}
		if !candidate.Role.Valid() {
			continue
		}
		candidates = append(candidates, candidate)
	}
	recommended := rankRecommendations(me, candidates, mutual)

	return &models.NetworkView{
		Connections:     connectionViews(ids, connections),
		PendingReceived: requestViews(ids, received, func(r models.ConnectionRequest) string { return r.FromEmail }),
		PendingSent:     requestViews(ids, sent, func(r models.ConnectionRequest) string { return r.ToEmail }),
		Recommended:     recommended,
	}, nil
}

// mutualConnections counts, for every second-degree contact, how many of the
// user's connections they share.
func (s *NetworkService) mutualConnections(ctx context.Context, user string, connections []models.Connection) (map[string]int, error) {
	var mu sync.Mutex
	mutual := make(map[string]int)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(mutualLookupConcurrency)
	for _, connection := range connections {
		friend := connection.OtherEmail
		g.Go(func() error {
			theirs, err := s.relationships.ListConnections(gctx, friend)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for _, second := range theirs {
				if second.OtherEmail != user {
					mutual[second.OtherEmail]++
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return mutual, nil
}

// ListContacts returns every known user except the actor, paginated. A
// non-positive limit returns everything.
func (s *NetworkService) ListContacts(ctx context.Context, actor string, page, limit int) ([]models.UserProjection, int, error) {
	me, err := subject(actor, "")
	if err != nil {
		return nil, 0, err
	}
	if limit > 0 && page <= 0 {
		return nil, 0, apperr.ErrInvalidInput
	}

	users, err := s.identities.ListAll(ctx)
	if err != nil {
		return nil, 0, err
	}

	contacts := make([]models.UserProjection, 0, len(users))
	for i := range users {
		if users[i].Email == me || !users[i].Role.Valid() {
			continue
		}
		contacts = append(contacts, models.ProjectUser(&users[i]))
	}

	total := len(contacts)
	if limit <= 0 {
		return contacts, total, nil
	}
	start := (page - 1) * limit
	if start >= total {
		return []models.UserProjection{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return contacts[start:end], total, nil
}

func connectionViews(ids *identityCache, connections []models.Connection) []models.ConnectionView {
	views := make([]models.ConnectionView, 0, len(connections))
	for _, connection := range connections {
		views = append(views, models.ConnectionView{
			UserProjection: ids.project(connection.OtherEmail),
			ConnectedAt:    connection.CreatedAt,
		})
	}
	return views
}

func requestViews(
	ids *identityCache,
	requests []models.ConnectionRequest,
	counterpart func(models.ConnectionRequest) string,
) []models.PendingRequestView {
	views := make([]models.PendingRequestView, 0, len(requests))
	for _, request := range requests {
		views = append(views, models.PendingRequestView{
			UserProjection: ids.project(counterpart(request)),
			RequestedAt:    request.CreatedAt,
		})
	}
	return views
}

func requesters(requests []models.ConnectionRequest) []string {
	emails := make([]string, 0, len(requests))
	for _, request := range requests {
		emails = append(emails, request.FromEmail)
	}
	return emails
}

func recipients(requests []models.ConnectionRequest) []string {
	emails := make([]string, 0, len(requests))
	for _, request := range requests {
		emails = append(emails, request.ToEmail)
	}
	return emails
}

func (s *NetworkService) publish(ctx context.Context, event models.Event) {
	event.OccurredAt = s.now()
	if err := s.notifier.Publish(ctx, event); err != nil {
		s.log.Warn("event publish failed", "type", event.Type, "error", err)
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return apperr.Code(err)
}
