package chatws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/saeid-a/AlumniNetworkBack/internal/apperr"
	"github.com/saeid-a/AlumniNetworkBack/internal/logger"
	"github.com/saeid-a/AlumniNetworkBack/internal/models"
	"github.com/saeid-a/AlumniNetworkBack/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	incoming chan []byte
	closed   chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{incoming: make(chan []byte, 8), closed: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	payload, ok := <-c.incoming
	if !ok {
		return 0, nil, io.EOF
	}
	return 1, payload, nil
}

func (c *fakeConn) WriteMessage(int, []byte) error { return nil }

func (c *fakeConn) Close() error {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
	return nil
}

type stubSender struct {
	lastActor string
	lastInput services.SendMessageInput
	err       error
}

func (s *stubSender) SendMessage(_ context.Context, actor string, input services.SendMessageInput) (*services.MessageDelivery, error) {
	s.lastActor = actor
	s.lastInput = input
	if s.err != nil {
		return nil, s.err
	}
	return &services.MessageDelivery{
		Message:   &models.ChatMessage{Sender: actor, Content: input.Content, Seq: 1, Timestamp: time.Now()},
		Recipient: input.Receiver,
	}, nil
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(NewLocalBus(), logger.Nop())
	require.NoError(t, hub.Start(ctx))
	return hub
}

func recvFrame(t *testing.T, ch <-chan []byte) Frame {
	t.Helper()
	select {
	case payload, ok := <-ch:
		require.True(t, ok, "client channel closed")
		var frame Frame
		require.NoError(t, json.Unmarshal(payload, &frame))
		return frame
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for frame")
	}
	return Frame{}
}

func assertNoFrame(t *testing.T, ch <-chan []byte) {
	t.Helper()
	select {
	case payload := <-ch:
		t.Fatalf("unexpected frame: %s", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubDeliversOnlyToRecipients(t *testing.T) {
	hub := startHub(t)

	ana := NewClient(hub, newFakeConn(), "ana@uni.edu")
	anaSecondTab := NewClient(hub, newFakeConn(), "ana@uni.edu")
	ben := NewClient(hub, newFakeConn(), "ben@uni.edu")
	for _, client := range []*Client{ana, anaSecondTab, ben} {
		hub.Register(client)
	}

	require.NoError(t, hub.Publish(context.Background(), models.Event{
		Type:       models.EventConnectionRequested,
		Recipients: []string{"ana@uni.edu", "ana@uni.edu"},
		Actor:      "ben@uni.edu",
		Request:    &models.ConnectionRequest{FromEmail: "ben@uni.edu", ToEmail: "ana@uni.edu"},
	}))

	for _, client := range []*Client{ana, anaSecondTab} {
		frame := recvFrame(t, client.send)
		assert.Equal(t, string(models.EventConnectionRequested), frame.Type)
		require.NotNil(t, frame.Request)
		assert.Equal(t, "ben@uni.edu", frame.Request.FromEmail)
	}
	assertNoFrame(t, ana.send)
	assertNoFrame(t, ben.send)
}

func TestHubUnregisterClosesClient(t *testing.T) {
	hub := startHub(t)
	client := NewClient(hub, newFakeConn(), "ana@uni.edu")
	hub.Register(client)
	hub.Unregister(client)

	select {
	case _, ok := <-client.send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for close")
	}
}

func TestReadPumpRoutesMessagesThroughService(t *testing.T) {
	hub := startHub(t)
	conn := newFakeConn()
	client := NewClient(hub, conn, "ana@uni.edu")
	hub.Register(client)
	service := &stubSender{}

	done := make(chan struct{})
	go func() {
		client.ReadPump(service)
		close(done)
	}()

	conn.incoming <- []byte(`{"type":"message","to":"ben@uni.edu","content":"hi","idempotency_key":"k1"}`)
	ack := recvFrame(t, client.send)
	assert.Equal(t, frameAck, ack.Type)
	require.NotNil(t, ack.Message)
	assert.Equal(t, "hi", ack.Message.Content)
	assert.Equal(t, "ana@uni.edu", service.lastActor)
	assert.Equal(t, "ben@uni.edu", service.lastInput.Receiver)
	assert.Equal(t, "k1", service.lastInput.IdempotencyKey)

	conn.incoming <- []byte(`{"type":"typing"}`)
	unsupported := recvFrame(t, client.send)
	assert.Equal(t, frameError, unsupported.Type)

	service.err = apperr.ErrEmptyContent
	conn.incoming <- []byte(`{"type":"message","to":"ben@uni.edu","content":" "}`)
	rejected := recvFrame(t, client.send)
	assert.Equal(t, frameError, rejected.Type)
	assert.Equal(t, "EmptyContent", rejected.Code)

	close(conn.incoming)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("read pump did not exit")
	}
}

type failingBus struct{}

func (failingBus) Publish(context.Context, models.Event) error { return nil }
func (failingBus) Close() error                                { return nil }
func (failingBus) StartForwarder(context.Context, func(models.Event)) error {
	return errors.New("subscribe failed")
}

func TestHubStartFailsWhenBusCannotSubscribe(t *testing.T) {
	hub := NewHub(failingBus{}, logger.Nop())
	assert.Error(t, hub.Start(context.Background()))
}
