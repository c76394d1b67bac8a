package chatws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/saeid-a/AlumniNetworkBack/internal/logger"
	"github.com/saeid-a/AlumniNetworkBack/internal/models"
)

// Hub tracks open sockets per email and fans committed events out to them.
// Events enter through a Bus so every instance behind a load balancer sees
// them; the hub only ever delivers to its own local sockets.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan models.Event
	done       chan struct{}
	stopOnce   sync.Once

	bus Bus
	log *logger.Logger
}

// Frame is what a socket receives.
type Frame struct {
	Type       string                    `json:"type"`
	Actor      string                    `json:"actor,omitempty"`
	Message    *models.ChatMessage       `json:"message,omitempty"`
	Request    *models.ConnectionRequest `json:"request,omitempty"`
	Connection *models.Connection        `json:"connection,omitempty"`
	Error      string                    `json:"error,omitempty"`
	Code       string                    `json:"code,omitempty"`
	Timestamp  string                    `json:"timestamp"`
}

const (
	frameAck   = "ack"
	frameError = "error"
)

func NewHub(bus Bus, log *logger.Logger) *Hub {
	if bus == nil {
		bus = NewLocalBus()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan models.Event, 64),
		done:       make(chan struct{}),
		bus:        bus,
		log:        log.With("component", "chat_hub"),
	}
}

// Start subscribes the hub to its bus and runs the delivery loop until ctx
// is cancelled.
func (h *Hub) Start(ctx context.Context) error {
	if err := h.bus.StartForwarder(ctx, h.enqueue); err != nil {
		return err
	}
	go h.Run(ctx)
	return nil
}

func (h *Hub) Run(ctx context.Context) {
	defer h.stop()
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			set, ok := h.clients[client.email]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.email] = set
			}
			set[client] = struct{}{}
		case client := <-h.unregister:
			h.drop(client)
		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

func (h *Hub) stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		for _, set := range h.clients {
			for client := range set {
				close(client.send)
			}
		}
		h.clients = make(map[string]map[*Client]struct{})
	})
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish hands a committed event to the bus. It satisfies the network
// service's notifier.
func (h *Hub) Publish(ctx context.Context, event models.Event) error {
	return h.bus.Publish(ctx, event)
}

func (h *Hub) enqueue(event models.Event) {
	select {
	case h.broadcast <- event:
	case <-h.done:
	}
}

func (h *Hub) drop(client *Client) {
	set, ok := h.clients[client.email]
	if !ok {
		return
	}
	if _, exists := set[client]; exists {
		delete(set, client)
		close(client.send)
	}
	if len(set) == 0 {
		delete(h.clients, client.email)
	}
}

func (h *Hub) deliver(event models.Event) {
	encoded, err := json.Marshal(frameFor(event))
	if err != nil {
		h.log.Warn("encode event failed", "type", event.Type, "error", err)
		return
	}

	seen := make(map[string]struct{}, len(event.Recipients))
	for _, email := range event.Recipients {
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		h.sendToUser(email, encoded)
	}
}

func (h *Hub) sendToUser(email string, payload []byte) {
	set, ok := h.clients[email]
	if !ok {
		return
	}

	for client := range set {
		select {
		case client.send <- payload:
		default:
			h.log.Warn("dropping slow websocket client", "email", email)
			delete(set, client)
			close(client.send)
		}
	}
	if len(set) == 0 {
		delete(h.clients, email)
	}
}

func frameFor(event models.Event) Frame {
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	return Frame{
		Type:       string(event.Type),
		Actor:      event.Actor,
		Message:    event.Message,
		Request:    event.Request,
		Connection: event.Connection,
		Timestamp:  formatTimestamp(occurred),
	}
}

func formatTimestamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339Nano)
}
