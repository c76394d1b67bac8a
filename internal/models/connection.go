package models

import "time"

type ConnectionRequest struct {
	FromEmail string    `json:"from_email"`
	ToEmail   string    `json:"to_email"`
	CreatedAt time.Time `json:"created_at"`
}

// Connection is one side of a mirrored adjacency pair.
type Connection struct {
	UserEmail  string    `json:"user_email"`
	OtherEmail string    `json:"other_email"`
	CreatedAt  time.Time `json:"created_at"`
}

type Decision string

const (
	DecisionAccepted Decision = "accepted"
	DecisionDeclined Decision = "declined"
)

func (d Decision) Valid() bool {
	return d == DecisionAccepted || d == DecisionDeclined
}

// RelationshipStatus is the pair state seen from one endpoint.
type RelationshipStatus string

const (
	RelationshipNone            RelationshipStatus = "none"
	RelationshipPendingSent     RelationshipStatus = "pending_sent"
	RelationshipPendingReceived RelationshipStatus = "pending_received"
	RelationshipMutualPending   RelationshipStatus = "mutual_pending"
	RelationshipConnected       RelationshipStatus = "connected"
)

type ConnectionView struct {
	UserProjection
	ConnectedAt time.Time `json:"connected_at"`
}

type PendingRequestView struct {
	UserProjection
	RequestedAt time.Time `json:"requested_at"`
}

// RecommendedUser is a suggested connection with the score it was ranked by.
type RecommendedUser struct {
	UserProjection
	MutualConnections int `json:"mutual_connections"`
	MatchScore        int `json:"match_score"`
}

type NetworkView struct {
	Connections     []ConnectionView     `json:"connections"`
	PendingReceived []PendingRequestView `json:"pending_received"`
	PendingSent     []PendingRequestView `json:"pending_sent"`
	Recommended     []RecommendedUser    `json:"recommended"`
}
