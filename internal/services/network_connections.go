package services

import (
	"context"

	"github.com/saeid-a/AlumniNetworkBack/internal/apperr"
	"github.com/saeid-a/AlumniNetworkBack/internal/models"
)

// actingPair normalizes a directed pair and checks that the actor is the
// endpoint allowed to perform the operation.
func actingPair(actor, from, to, allowed string) (string, string, error) {
	actor = models.NormalizeEmail(actor)
	from = models.NormalizeEmail(from)
	to = models.NormalizeEmail(to)
	if from == "" || to == "" {
		return "", "", apperr.ErrInvalidInput
	}
	if from == to {
		return "", "", apperr.ErrSelfRequest
	}

	expected := from
	if allowed == "to" {
		expected = to
	}
	if actor == "" || actor != expected {
		return "", "", apperr.ErrForbidden
	}
	return from, to, nil
}

func (s *NetworkService) SendConnectionRequest(ctx context.Context, actor, from, to string) (*models.ConnectionRequest, error) {
	request, err := s.sendConnectionRequest(ctx, actor, from, to)
	s.metrics.ObserveTransition("send_request", outcome(err))
	if err != nil {
		return nil, err
	}

	s.publish(ctx, models.Event{
		Type:       models.EventConnectionRequested,
		Recipients: []string{request.ToEmail},
		Actor:      request.FromEmail,
		Request:    request,
	})
	return request, nil
}

func (s *NetworkService) sendConnectionRequest(ctx context.Context, actor, from, to string) (*models.ConnectionRequest, error) {
	from, to, err := actingPair(actor, from, to, "from")
	if err != nil {
		return nil, err
	}

	ids := newIdentityCache(s.identities)
	if _, err := ids.require(ctx, from); err != nil {
		return nil, err
	}
	if _, err := ids.require(ctx, to); err != nil {
		return nil, err
	}

	return s.relationships.SendRequest(ctx, from, to)
}

func (s *NetworkService) WithdrawConnectionRequest(ctx context.Context, actor, from, to string) error {
	from, to, err := actingPair(actor, from, to, "from")
	if err == nil {
		err = s.relationships.WithdrawRequest(ctx, from, to)
	}
	s.metrics.ObserveTransition("withdraw_request", outcome(err))
	if err != nil {
		return err
	}

	s.publish(ctx, models.Event{
		Type:       models.EventConnectionWithdrawn,
		Recipients: []string{to},
		Actor:      from,
		Request:    &models.ConnectionRequest{FromEmail: from, ToEmail: to},
	})
	return nil
}

// respondOperation keeps the metric label set closed over the known decisions.
func respondOperation(decision models.Decision) string {
	if !decision.Valid() {
		return "respond_invalid"
	}
	return "respond_" + string(decision)
}

// RespondToConnectionRequest is called by the recipient of the request. On
// accept it returns the connection as seen from the requester's side; on
// decline it returns nil.
func (s *NetworkService) RespondToConnectionRequest(
	ctx context.Context,
	actor, from, to string,
	decision models.Decision,
) (*models.Connection, error) {
	connection, err := s.respondToConnectionRequest(ctx, actor, from, to, decision)
	s.metrics.ObserveTransition(respondOperation(decision), outcome(err))
	if err != nil {
		return nil, err
	}

	from, to = models.NormalizeEmail(from), models.NormalizeEmail(to)
	event := models.Event{
		Type:       models.EventConnectionDeclined,
		Recipients: []string{from},
		Actor:      to,
		Request:    &models.ConnectionRequest{FromEmail: from, ToEmail: to},
	}
	if connection != nil {
		event.Type = models.EventConnectionAccepted
		event.Connection = connection
	}
	s.publish(ctx, event)
	return connection, nil
}

func (s *NetworkService) respondToConnectionRequest(
	ctx context.Context,
	actor, from, to string,
	decision models.Decision,
) (*models.Connection, error) {
	if !decision.Valid() {
		return nil, apperr.ErrInvalidDecision
	}
	from, to, err := actingPair(actor, from, to, "to")
	if err != nil {
		return nil, err
	}
	return s.relationships.RespondToRequest(ctx, from, to, decision)
}

func (s *NetworkService) Disconnect(ctx context.Context, actor, other string) error {
	me := models.NormalizeEmail(actor)
	other = models.NormalizeEmail(other)
	var err error
	switch {
	case me == "":
		err = apperr.ErrForbidden
	case other == "":
		err = apperr.ErrInvalidInput
	case me == other:
		err = apperr.ErrSelfRequest
	default:
		err = s.relationships.Disconnect(ctx, me, other)
	}
	s.metrics.ObserveTransition("disconnect", outcome(err))
	if err != nil {
		return err
	}

	s.publish(ctx, models.Event{
		Type:       models.EventDisconnected,
		Recipients: []string{other},
		Actor:      me,
		Connection: &models.Connection{UserEmail: other, OtherEmail: me},
	})
	return nil
}

// GetRelationship reports the pair state from the actor's side.
func (s *NetworkService) GetRelationship(ctx context.Context, actor, other string) (models.RelationshipStatus, error) {
	me := models.NormalizeEmail(actor)
	other = models.NormalizeEmail(other)
	if me == "" {
		return "", apperr.ErrForbidden
	}
	if other == "" {
		return "", apperr.ErrInvalidInput
	}
	if me == other {
		return models.RelationshipNone, nil
	}
	return s.relationships.Relationship(ctx, me, other)
}
