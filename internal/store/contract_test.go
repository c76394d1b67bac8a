package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/saeid-a/AlumniNetworkBack/internal/apperr"
	"github.com/saeid-a/AlumniNetworkBack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The contract suites run against every store implementation. The fixture
// hands out fresh emails so suites can share one database.
type fixture struct {
	newUser func(t *testing.T, role models.Role) string
}

func runRelationshipContract(t *testing.T, newStore func(t *testing.T) RelationshipStore, fx fixture) {
	ctx := context.Background()

	t.Run("accept materializes a symmetric connection", func(t *testing.T) {
		s := newStore(t)
		student := fx.newUser(t, models.RoleStudent)
		alumni := fx.newUser(t, models.RoleAlumni)

		_, err := s.SendRequest(ctx, student, alumni)
		require.NoError(t, err)

		connection, err := s.RespondToRequest(ctx, student, alumni, models.DecisionAccepted)
		require.NoError(t, err)
		require.NotNil(t, connection)
		assert.Equal(t, student, connection.UserEmail)
		assert.Equal(t, alumni, connection.OtherEmail)

		fromSide, err := s.ListConnections(ctx, student)
		require.NoError(t, err)
		require.Len(t, fromSide, 1)
		assert.Equal(t, alumni, fromSide[0].OtherEmail)

		toSide, err := s.ListConnections(ctx, alumni)
		require.NoError(t, err)
		require.Len(t, toSide, 1)
		assert.Equal(t, student, toSide[0].OtherEmail)
		assert.True(t, fromSide[0].CreatedAt.Equal(toSide[0].CreatedAt))

		pending, err := s.ListPendingRequestsReceived(ctx, alumni)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("second send is AlreadyRequested", func(t *testing.T) {
		s := newStore(t)
		a := fx.newUser(t, models.RoleStudent)
		b := fx.newUser(t, models.RoleAlumni)

		_, err := s.SendRequest(ctx, a, b)
		require.NoError(t, err)
		_, err = s.SendRequest(ctx, a, b)
		assert.ErrorIs(t, err, apperr.ErrAlreadyRequested)
	})

	t.Run("send after connection is AlreadyConnected in both directions", func(t *testing.T) {
		s := newStore(t)
		a := fx.newUser(t, models.RoleStudent)
		b := fx.newUser(t, models.RoleAlumni)

		_, err := s.SendRequest(ctx, a, b)
		require.NoError(t, err)
		_, err = s.RespondToRequest(ctx, a, b, models.DecisionAccepted)
		require.NoError(t, err)

		_, err = s.SendRequest(ctx, a, b)
		assert.ErrorIs(t, err, apperr.ErrAlreadyConnected)
		_, err = s.SendRequest(ctx, b, a)
		assert.ErrorIs(t, err, apperr.ErrAlreadyConnected)
	})

	t.Run("decline returns the pair to none", func(t *testing.T) {
		s := newStore(t)
		student := fx.newUser(t, models.RoleStudent)
		alumni := fx.newUser(t, models.RoleAlumni)

		_, err := s.SendRequest(ctx, student, alumni)
		require.NoError(t, err)
		connection, err := s.RespondToRequest(ctx, student, alumni, models.DecisionDeclined)
		require.NoError(t, err)
		assert.Nil(t, connection)

		pending, err := s.ListPendingRequestsReceived(ctx, alumni)
		require.NoError(t, err)
		assert.Empty(t, pending)

		status, err := s.Relationship(ctx, student, alumni)
		require.NoError(t, err)
		assert.Equal(t, models.RelationshipNone, status)

		_, err = s.SendRequest(ctx, student, alumni)
		assert.NoError(t, err)
	})

	t.Run("withdraw removes only an existing request", func(t *testing.T) {
		s := newStore(t)
		a := fx.newUser(t, models.RoleStudent)
		b := fx.newUser(t, models.RoleAlumni)

		assert.ErrorIs(t, s.WithdrawRequest(ctx, a, b), apperr.ErrNoSuchRequest)

		_, err := s.SendRequest(ctx, a, b)
		require.NoError(t, err)
		require.NoError(t, s.WithdrawRequest(ctx, a, b))
		assert.ErrorIs(t, s.WithdrawRequest(ctx, a, b), apperr.ErrNoSuchRequest)

		sent, err := s.ListPendingRequestsSent(ctx, a)
		require.NoError(t, err)
		assert.Empty(t, sent)
	})

	t.Run("respond without request is NoSuchRequest", func(t *testing.T) {
		s := newStore(t)
		a := fx.newUser(t, models.RoleStudent)
		b := fx.newUser(t, models.RoleAlumni)

		_, err := s.RespondToRequest(ctx, a, b, models.DecisionAccepted)
		assert.ErrorIs(t, err, apperr.ErrNoSuchRequest)
	})

	t.Run("opposite requests coexist as mutual pending", func(t *testing.T) {
		s := newStore(t)
		a := fx.newUser(t, models.RoleStudent)
		b := fx.newUser(t, models.RoleAlumni)

		_, err := s.SendRequest(ctx, a, b)
		require.NoError(t, err)
		_, err = s.SendRequest(ctx, b, a)
		require.NoError(t, err)

		status, err := s.Relationship(ctx, a, b)
		require.NoError(t, err)
		assert.Equal(t, models.RelationshipMutualPending, status)

		connections, err := s.ListConnections(ctx, a)
		require.NoError(t, err)
		assert.Empty(t, connections)

		_, err = s.RespondToRequest(ctx, b, a, models.DecisionAccepted)
		require.NoError(t, err)

		received, err := s.ListPendingRequestsReceived(ctx, b)
		require.NoError(t, err)
		assert.Empty(t, received, "accepting discards the reverse request")

		status, err = s.Relationship(ctx, b, a)
		require.NoError(t, err)
		assert.Equal(t, models.RelationshipConnected, status)
	})

	t.Run("relationship is reported from the caller's side", func(t *testing.T) {
		s := newStore(t)
		a := fx.newUser(t, models.RoleStudent)
		b := fx.newUser(t, models.RoleAlumni)

		_, err := s.SendRequest(ctx, a, b)
		require.NoError(t, err)

		fromA, err := s.Relationship(ctx, a, b)
		require.NoError(t, err)
		fromB, err := s.Relationship(ctx, b, a)
		require.NoError(t, err)
		assert.Equal(t, models.RelationshipPendingSent, fromA)
		assert.Equal(t, models.RelationshipPendingReceived, fromB)

		received, err := s.ListPendingRequestsReceived(ctx, b)
		require.NoError(t, err)
		require.Len(t, received, 1)
		assert.Equal(t, a, received[0].FromEmail)
	})

	t.Run("disconnect clears both sides", func(t *testing.T) {
		s := newStore(t)
		a := fx.newUser(t, models.RoleStudent)
		b := fx.newUser(t, models.RoleAlumni)

		assert.ErrorIs(t, s.Disconnect(ctx, a, b), apperr.ErrNotConnected)

		_, err := s.SendRequest(ctx, a, b)
		require.NoError(t, err)
		_, err = s.RespondToRequest(ctx, a, b, models.DecisionAccepted)
		require.NoError(t, err)

		require.NoError(t, s.Disconnect(ctx, b, a))

		for _, user := range []string{a, b} {
			connections, err := s.ListConnections(ctx, user)
			require.NoError(t, err)
			assert.Empty(t, connections)
		}
		_, err = s.SendRequest(ctx, b, a)
		assert.NoError(t, err)
	})

	t.Run("self requests are rejected", func(t *testing.T) {
		s := newStore(t)
		a := fx.newUser(t, models.RoleStudent)

		_, err := s.SendRequest(ctx, a, a)
		assert.ErrorIs(t, err, apperr.ErrSelfRequest)
	})

	t.Run("concurrent accept and decline have exactly one winner", func(t *testing.T) {
		for round := 0; round < 10; round++ {
			s := newStore(t)
			a := fx.newUser(t, models.RoleStudent)
			b := fx.newUser(t, models.RoleAlumni)

			_, err := s.SendRequest(ctx, a, b)
			require.NoError(t, err)

			var wg sync.WaitGroup
			errs := make([]error, 2)
			for i, decision := range []models.Decision{models.DecisionAccepted, models.DecisionDeclined} {
				wg.Add(1)
				go func(i int, decision models.Decision) {
					defer wg.Done()
					_, errs[i] = s.RespondToRequest(ctx, a, b, decision)
				}(i, decision)
			}
			wg.Wait()

			successes := 0
			for _, err := range errs {
				if err == nil {
					successes++
					continue
				}
				assert.ErrorIs(t, err, apperr.ErrNoSuchRequest)
			}
			assert.Equal(t, 1, successes, "round %d", round)

			left, err := s.ListConnections(ctx, a)
			require.NoError(t, err)
			right, err := s.ListConnections(ctx, b)
			require.NoError(t, err)
			assert.Equal(t, len(left), len(right), "symmetry after race")
		}
	})

	t.Run("concurrent sends create one request", func(t *testing.T) {
		s := newStore(t)
		a := fx.newUser(t, models.RoleStudent)
		b := fx.newUser(t, models.RoleAlumni)

		const senders = 8
		var wg sync.WaitGroup
		errs := make(chan error, senders)
		for i := 0; i < senders; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.SendRequest(ctx, a, b)
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		created := 0
		for err := range errs {
			if err == nil {
				created++
				continue
			}
			assert.ErrorIs(t, err, apperr.ErrAlreadyRequested)
		}
		assert.Equal(t, 1, created)
	})
}

func runConversationContract(t *testing.T, newStore func(t *testing.T) ConversationStore, fx fixture) {
	ctx := context.Background()

	t.Run("canonical key is order independent", func(t *testing.T) {
		s := newStore(t)
		a := fx.newUser(t, models.RoleStudent)
		b := fx.newUser(t, models.RoleAlumni)

		ab, err := s.GetOrCreateConversation(ctx, a, b)
		require.NoError(t, err)
		ba, err := s.GetOrCreateConversation(ctx, b, a)
		require.NoError(t, err)
		assert.Equal(t, ab.ID, ba.ID)
	})

	t.Run("concurrent get or create converges", func(t *testing.T) {
		s := newStore(t)
		a := fx.newUser(t, models.RoleStudent)
		b := fx.newUser(t, models.RoleAlumni)

		const callers = 8
		ids := make([]string, callers)
		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				first, second := a, b
				if i%2 == 1 {
					first, second = b, a
				}
				conversation, err := s.GetOrCreateConversation(ctx, first, second)
				if assert.NoError(t, err) {
					ids[i] = conversation.ID.String()
				}
			}(i)
		}
		wg.Wait()
		for _, id := range ids {
			assert.Equal(t, ids[0], id)
		}
	})

	t.Run("round trip of a single message", func(t *testing.T) {
		s := newStore(t)
		a := fx.newUser(t, models.RoleStudent)
		b := fx.newUser(t, models.RoleAlumni)

		result, err := s.AppendMessage(ctx, models.AppendMessageInput{UserA: a, UserB: b, Sender: a, Content: "hi"})
		require.NoError(t, err)
		assert.False(t, result.Duplicate)

		messages, err := s.GetMessages(ctx, a, b, models.MessageCursor{})
		require.NoError(t, err)
		require.Len(t, messages, 1)
		assert.Equal(t, a, messages[0].Sender)
		assert.Equal(t, "hi", messages[0].Content)
		assert.Equal(t, int64(1), messages[0].Seq)
	})

	t.Run("validation errors", func(t *testing.T) {
		s := newStore(t)
		a := fx.newUser(t, models.RoleStudent)
		b := fx.newUser(t, models.RoleAlumni)
		c := fx.newUser(t, models.RoleAlumni)

		_, err := s.AppendMessage(ctx, models.AppendMessageInput{UserA: a, UserB: b, Sender: a, Content: "  \n\t"})
		assert.ErrorIs(t, err, apperr.ErrEmptyContent)

		_, err = s.AppendMessage(ctx, models.AppendMessageInput{UserA: a, UserB: b, Sender: c, Content: "hello"})
		assert.ErrorIs(t, err, apperr.ErrUnknownSender)

		messages, err := s.GetMessages(ctx, a, b, models.MessageCursor{})
		require.NoError(t, err)
		assert.Empty(t, messages)
	})

	t.Run("concurrent appends keep submission order per sender and dense sequence", func(t *testing.T) {
		s := newStore(t)
		a := fx.newUser(t, models.RoleStudent)
		b := fx.newUser(t, models.RoleAlumni)

		const perSender = 15
		var wg sync.WaitGroup
		for _, sender := range []string{a, b} {
			wg.Add(1)
			go func(sender string) {
				defer wg.Done()
				for i := 0; i < perSender; i++ {
					_, err := s.AppendMessage(ctx, models.AppendMessageInput{
						UserA:   b,
						UserB:   a,
						Sender:  sender,
						Content: fmt.Sprintf("%s-%02d", sender, i),
					})
					assert.NoError(t, err)
				}
			}(sender)
		}
		wg.Wait()

		messages, err := s.GetMessages(ctx, a, b, models.MessageCursor{})
		require.NoError(t, err)
		require.Len(t, messages, 2*perSender)

		next := map[string]int{a: 0, b: 0}
		for i, message := range messages {
			assert.Equal(t, int64(i+1), message.Seq)
			if i > 0 {
				assert.False(t, message.Timestamp.Before(messages[i-1].Timestamp), "timestamps never go backwards")
			}
			assert.Equal(t, fmt.Sprintf("%s-%02d", message.Sender, next[message.Sender]), message.Content)
			next[message.Sender]++
		}
	})

	t.Run("cursor pages forward", func(t *testing.T) {
		s := newStore(t)
		a := fx.newUser(t, models.RoleStudent)
		b := fx.newUser(t, models.RoleAlumni)

		for i := 0; i < 5; i++ {
			_, err := s.AppendMessage(ctx, models.AppendMessageInput{UserA: a, UserB: b, Sender: a, Content: fmt.Sprintf("m%d", i)})
			require.NoError(t, err)
		}

		page, err := s.GetMessages(ctx, a, b, models.MessageCursor{AfterSeq: 2, Limit: 2})
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "m2", page[0].Content)
		assert.Equal(t, "m3", page[1].Content)
	})

	t.Run("idempotency key suppresses retries", func(t *testing.T) {
		s := newStore(t)
		a := fx.newUser(t, models.RoleStudent)
		b := fx.newUser(t, models.RoleAlumni)

		input := models.AppendMessageInput{UserA: a, UserB: b, Sender: a, Content: "retry me", IdempotencyKey: "k-1"}
		first, err := s.AppendMessage(ctx, input)
		require.NoError(t, err)
		second, err := s.AppendMessage(ctx, input)
		require.NoError(t, err)

		assert.True(t, second.Duplicate)
		assert.Equal(t, first.Message.ID, second.Message.ID)

		// same key from the other participant is a different message
		_, err = s.AppendMessage(ctx, models.AppendMessageInput{UserA: a, UserB: b, Sender: b, Content: "retry me", IdempotencyKey: "k-1"})
		require.NoError(t, err)
		// without a key retries do duplicate
		_, err = s.AppendMessage(ctx, models.AppendMessageInput{UserA: a, UserB: b, Sender: a, Content: "retry me"})
		require.NoError(t, err)

		messages, err := s.GetMessages(ctx, a, b, models.MessageCursor{})
		require.NoError(t, err)
		assert.Len(t, messages, 3)
	})

	t.Run("conversation list is newest first with last message", func(t *testing.T) {
		s := newStore(t)
		me := fx.newUser(t, models.RoleStudent)
		older := fx.newUser(t, models.RoleAlumni)
		newer := fx.newUser(t, models.RoleAlumni)

		_, err := s.AppendMessage(ctx, models.AppendMessageInput{UserA: me, UserB: older, Sender: older, Content: "first"})
		require.NoError(t, err)
		_, err = s.AppendMessage(ctx, models.AppendMessageInput{UserA: me, UserB: newer, Sender: me, Content: "second"})
		require.NoError(t, err)
		_, err = s.AppendMessage(ctx, models.AppendMessageInput{UserA: me, UserB: newer, Sender: newer, Content: "third"})
		require.NoError(t, err)

		summaries, err := s.ListConversationsFor(ctx, me)
		require.NoError(t, err)
		require.Len(t, summaries, 2)
		assert.Equal(t, newer, summaries[0].OtherParticipant)
		require.NotNil(t, summaries[0].LastMessage)
		assert.Equal(t, "third", summaries[0].LastMessage.Content)
		assert.Equal(t, older, summaries[1].OtherParticipant)
		assert.False(t, summaries[0].LastUpdated.Before(summaries[1].LastUpdated))
	})

	t.Run("conversations without messages are not listed", func(t *testing.T) {
		s := newStore(t)
		me := fx.newUser(t, models.RoleStudent)
		silent := fx.newUser(t, models.RoleAlumni)
		talker := fx.newUser(t, models.RoleAlumni)

		_, err := s.GetOrCreateConversation(ctx, me, silent)
		require.NoError(t, err)
		_, err = s.AppendMessage(ctx, models.AppendMessageInput{UserA: me, UserB: talker, Sender: talker, Content: "hello"})
		require.NoError(t, err)

		summaries, err := s.ListConversationsFor(ctx, me)
		require.NoError(t, err)
		require.Len(t, summaries, 1)
		assert.Equal(t, talker, summaries[0].OtherParticipant)

		summaries, err = s.ListConversationsFor(ctx, silent)
		require.NoError(t, err)
		assert.Empty(t, summaries)
	})
}
