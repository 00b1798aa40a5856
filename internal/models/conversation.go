package models

import (
	"time"

	"github.com/google/uuid"
)

// Group is a chat with a mutable named member set and a single admin, the
// creator. The member set itself is not stored on the row; it is materialized
// from the membership event log.
type Group struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedBy uuid.UUID `json:"created_by"`
	PhotoURL  *string   `json:"photo_url"`
	CreatedAt time.Time `json:"created_at"`
}

type MemberAction string

const (
	MemberActionAdd    MemberAction = "add"
	MemberActionRemove MemberAction = "remove"
)

// MemberEvent is one entry of the append-only membership log. The current
// member set of a group is the set of users whose latest event is an add.
type MemberEvent struct {
	Seq       int64        `json:"seq"`
	GroupID   uuid.UUID    `json:"group_id"`
	UserID    uuid.UUID    `json:"user_id"`
	ActorID   uuid.UUID    `json:"actor_id"`
	Action    MemberAction `json:"action"`
	CreatedAt time.Time    `json:"created_at"`
}

// GroupWithMembers bundles a group with its materialized member set.
type GroupWithMembers struct {
	Group
	Members []uuid.UUID `json:"members"`
}

// ConversationSummary backs the conversation-list view: one row per direct
// chat or group the user belongs to, with the last-message preview and the
// unread count derived from a bounded recent window.
type ConversationSummary struct {
	ConversationID string     `json:"conversation_id"`
	Kind           string     `json:"kind"` // "direct" or "group"
	Title          string     `json:"title"`
	PhotoURL       *string    `json:"photo_url"`
	PeerID         *uuid.UUID `json:"peer_id,omitempty"`
	GroupID        *uuid.UUID `json:"group_id,omitempty"`
	LastMessage    *Message   `json:"last_message,omitempty"`
	UnreadCount    int        `json:"unread_count"`
}
