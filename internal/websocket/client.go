package chatws

import (
	"context"
	"encoding/json"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/saeid-a/AlumniNetworkBack/internal/apperr"
	"github.com/saeid-a/AlumniNetworkBack/internal/services"
)

const sendTimeout = 10 * time.Second

// Conn is the part of *websocket.Conn the pumps use.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type Client struct {
	hub   *Hub
	conn  Conn
	email string
	send  chan []byte
}

type sender interface {
	SendMessage(ctx context.Context, actor string, input services.SendMessageInput) (*services.MessageDelivery, error)
}

type incomingFrame struct {
	Type           string `json:"type"`
	To             string `json:"to"`
	Content        string `json:"content"`
	IdempotencyKey string `json:"idempotency_key"`
}

func NewClient(hub *Hub, conn Conn, email string) *Client {
	return &Client{
		hub:   hub,
		conn:  conn,
		email: email,
		send:  make(chan []byte, 32),
	}
}

// ReadPump routes "message" frames through the network service until the
// socket closes. Delivery to the participants happens through the hub once
// the append has committed; the sender also gets an ack.
func (c *Client) ReadPump(service sender) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var incoming incomingFrame
		if err := json.Unmarshal(payload, &incoming); err != nil {
			writeError(c, "invalid message payload", apperr.Code(apperr.ErrInvalidInput))
			continue
		}
		if incoming.Type != "message" {
			writeError(c, "unsupported message type", apperr.Code(apperr.ErrInvalidInput))
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		delivery, err := service.SendMessage(ctx, c.email, services.SendMessageInput{
			Sender:         c.email,
			Receiver:       incoming.To,
			Content:        incoming.Content,
			IdempotencyKey: incoming.IdempotencyKey,
		})
		cancel()
		if err != nil {
			writeError(c, apperr.Message(err), apperr.Code(err))
			continue
		}

		writeFrame(c, Frame{
			Type:      frameAck,
			Actor:     c.email,
			Message:   delivery.Message,
			Timestamp: formatTimestamp(delivery.Message.Timestamp),
		})
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func writeError(client *Client, message, code string) {
	writeFrame(client, Frame{
		Type:      frameError,
		Error:     message,
		Code:      code,
		Timestamp: formatTimestamp(time.Now()),
	})
}

func writeFrame(client *Client, frame Frame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		return
	}
	defer func() {
		// send may already be closed by the hub
		_ = recover()
	}()
	select {
	case client.send <- payload:
	default:
		client.hub.Unregister(client)
	}
}
