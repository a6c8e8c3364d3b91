package chat

import "time"

// ---------------------------------------------
// Server -> client payloads
// ---------------------------------------------

// DirectDelivery is the getMessage payload. The receiver id is implicit: the
// frame only ever goes to the recipient's own connection.
type DirectDelivery struct {
	SenderID string `json:"senderId"`
	Text     string `json:"text"`
	FileURL  string `json:"fileUrl,omitempty"`
}

// GroupJoined acknowledges a joinGroup back to the joiner.
type GroupJoined struct {
	UserID  string `json:"userId"`
	GroupID string `json:"groupId"`
}

// ---------------------------------------------
// Database models
// ---------------------------------------------

// StoredMessage is a persisted direct message as served on the history API.
type StoredMessage struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Body       string    `json:"body"`
	FileURL    string    `json:"file_url,omitempty"`
	SentAt     time.Time `json:"sent_at"`
}

// StoredGroupMessage is a persisted group message.
type StoredGroupMessage struct {
	ID         string    `json:"id"`
	GroupID    string    `json:"group_id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Body       string    `json:"body"`
	FileURL    string    `json:"file_url,omitempty"`
	SentAt     time.Time `json:"sent_at"`
}

// ---------------------------------------------
// Bus payloads
// ---------------------------------------------

const (
	busKindDirect = "direct"
	busKindGroup  = "group"
)

// busFrame is the envelope routed messages travel in between instances.
// Exactly one of Direct/Group is set, matching Kind.
type busFrame struct {
	Kind   string         `json:"kind"`
	Direct *DirectMessage `json:"direct,omitempty"`
	Group  *GroupMessage  `json:"group,omitempty"`
}
