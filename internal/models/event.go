package models

import "time"

type EventType string

const (
	EventMessage             EventType = "message"
	EventConnectionRequested EventType = "connection_requested"
	EventConnectionWithdrawn EventType = "connection_withdrawn"
	EventConnectionAccepted  EventType = "connection_accepted"
	EventConnectionDeclined  EventType = "connection_declined"
	EventDisconnected        EventType = "disconnected"
)

// Event is published after a committed change. Recipients are the emails
// whose open sockets should hear about it.
type Event struct {
	Type       EventType          `json:"type"`
	Recipients []string           `json:"recipients"`
	Actor      string             `json:"actor"`
	Message    *ChatMessage       `json:"message,omitempty"`
	Request    *ConnectionRequest `json:"request,omitempty"`
	Connection *Connection        `json:"connection,omitempty"`
	OccurredAt time.Time          `json:"occurred_at"`
}
