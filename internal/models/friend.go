package models

import (
	"time"

	"github.com/google/uuid"
)

// FriendEdge is one direction of a confirmed friendship. Edges always exist
// in pairs; a one-sided edge must never be observable. DisplayName and
// PhotoURL are snapshots of the friend's profile taken when the request was
// accepted and are deliberately not kept in sync with later profile edits.
type FriendEdge struct {
	OwnerID     uuid.UUID `json:"owner_id"`
	FriendID    uuid.UUID `json:"friend_id"`
	DisplayName string    `json:"display_name"`
	PhotoURL    *string   `json:"photo_url"`
	AddedAt     time.Time `json:"added_at"`
}

// FriendRequest is a pending, unidirectional proposal stored under the
// recipient. It is deleted on accept or reject; no request survives
// resolution.
type FriendRequest struct {
	ID          uuid.UUID `json:"id"`
	RecipientID uuid.UUID `json:"recipient_id"`
	SenderID    uuid.UUID `json:"sender_id"`
	SenderName  string    `json:"sender_name"`
	SenderPhoto *string   `json:"sender_photo"`
	CreatedAt   time.Time `json:"created_at"`
}
