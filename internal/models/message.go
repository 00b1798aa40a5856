package models

import (
	"time"

	"github.com/google/uuid"
)

type MessageKind string

const (
	MessageKindText   MessageKind = "text"
	MessageKindImage  MessageKind = "image"
	MessageKindSystem MessageKind = "system"
)

// Message is one entry of a conversation's append-only log. Everything but
// the Seen flag is immutable after insert. Consumers must sort by
// (CreatedAt, Seq); Seq breaks timestamp ties in insertion order and must
// never be used to reorder across a Seen update.
type Message struct {
	Seq            int64       `json:"seq"`
	ID             uuid.UUID   `json:"id"`
	ConversationID string      `json:"conversation_id"`
	SenderID       uuid.UUID   `json:"sender_id"`
	SenderName     *string     `json:"sender_name,omitempty"`
	Kind           MessageKind `json:"kind"`
	Text           string      `json:"text"`
	ImageURL       *string     `json:"image_url,omitempty"`
	Seen           bool        `json:"seen"`
	CreatedAt      time.Time   `json:"created_at"`
}

// SendMessageParams carries the caller-supplied part of a message; the server
// assigns everything else.
type SendMessageParams struct {
	Text     string
	ImageURL *string
}
