package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/AzimPial/Chat-Us/internal/models"
	"github.com/AzimPial/Chat-Us/internal/realtime"
)

var (
	ErrEmptyMessage         = errors.New("message has no text and no image")
	ErrNotParticipant       = errors.New("not a participant of this conversation")
	ErrConversationNotFound = errors.New("conversation not found")
)

const messageColumns = `seq, id, conversation_id, sender_id, sender_name, kind, body, image_url, seen, created_at`

// DefaultRecentWindow bounds the recent-message window used for previews and
// unread counts.
const DefaultRecentWindow = 20

// MessageService owns the append-only per-conversation message log. Ordering
// is by server-assigned created_at with the insertion sequence breaking ties;
// the only mutation ever applied to a stored message is seen false->true.
type MessageService struct {
	db     DBConn
	events EventPublisher
}

func NewMessageService(db DBConn, events EventPublisher) *MessageService {
	return &MessageService{db: db, events: events}
}

// participants resolves the members of a conversation and reports whether
// userID is one of them. Direct conversations exist only while the friend
// edge does.
func (s *MessageService) participants(ctx context.Context, conversationID string, userID uuid.UUID) ([]uuid.UUID, bool, error) {
	if a, b, ok := ParseDirectConversationID(conversationID); ok {
		if userID != a && userID != b {
			return nil, false, nil
		}
		other := a
		if other == userID {
			other = b
		}
		var edgeExists bool
		err := s.db.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM friends WHERE owner_id = $1 AND friend_id = $2)`,
			userID, other,
		).Scan(&edgeExists)
		if err != nil {
			return nil, false, fmt.Errorf("checking direct conversation edge: %w", err)
		}
		return []uuid.UUID{a, b}, edgeExists, nil
	}

	groupID, err := uuid.Parse(conversationID)
	if err != nil {
		return nil, false, ErrConversationNotFound
	}
	members, err := groupMembers(ctx, s.db, groupID)
	if err != nil {
		return nil, false, err
	}
	if len(members) == 0 {
		return nil, false, ErrConversationNotFound
	}
	for _, m := range members {
		if m == userID {
			return members, true, nil
		}
	}
	return members, false, nil
}

// CanAccess reports whether userID may read or subscribe to a conversation.
func (s *MessageService) CanAccess(ctx context.Context, conversationID string, userID uuid.UUID) (bool, error) {
	_, ok, err := s.participants(ctx, conversationID, userID)
	if err != nil {
		if errors.Is(err, ErrConversationNotFound) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

// Send appends a message. The timestamp is assigned by the database, never
// trusted from the caller; kind is derived from the payload.
func (s *MessageService) Send(ctx context.Context, conversationID string, sender uuid.UUID, params models.SendMessageParams) (*models.Message, error) {
	hasImage := params.ImageURL != nil && *params.ImageURL != ""
	if params.Text == "" && !hasImage {
		return nil, ErrEmptyMessage
	}

	members, ok, err := s.participants(ctx, conversationID, sender)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotParticipant
	}

	kind := models.MessageKindText
	if hasImage {
		kind = models.MessageKindImage
	}

	var senderName *string
	err = s.db.QueryRow(ctx, `SELECT display_name FROM users WHERE id = $1`, sender).Scan(&senderName)
	if err != nil {
		return nil, fmt.Errorf("loading sender name: %w", err)
	}

	msg := &models.Message{}
	err = s.db.QueryRow(ctx,
		`INSERT INTO messages (conversation_id, sender_id, sender_name, kind, body, image_url)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+messageColumns,
		conversationID, sender, senderName, kind, params.Text, params.ImageURL,
	).Scan(&msg.Seq, &msg.ID, &msg.ConversationID, &msg.SenderID, &msg.SenderName, &msg.Kind, &msg.Text, &msg.ImageURL, &msg.Seen, &msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("appending message: %w", err)
	}

	publish(ctx, s.events, realtime.TopicConversation(conversationID), realtime.KindAppend, msg)
	for _, member := range members {
		publish(ctx, s.events, realtime.TopicConversations(member), realtime.KindChanged, nil)
	}

	return msg, nil
}

// History returns the full log in ascending (created_at, seq) order.
func (s *MessageService) History(ctx context.Context, conversationID string, viewer uuid.UUID) ([]models.Message, error) {
	ok, err := s.CanAccess(ctx, conversationID, viewer)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotParticipant
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+messageColumns+`
		 FROM messages WHERE conversation_id = $1
		 ORDER BY created_at ASC, seq ASC`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// Recent returns the bounded tail in descending order, newest first. It backs
// last-message previews and unread counts without loading full history.
func (s *MessageService) Recent(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = DefaultRecentWindow
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+messageColumns+`
		 FROM messages WHERE conversation_id = $1
		 ORDER BY created_at DESC, seq DESC
		 LIMIT $2`,
		conversationID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("loading recent messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// MarkSeen flips the seen flag of a single message. It is idempotent and
// silent: already-seen and absent messages are no-ops. A sender can never
// mark its own message, and system messages are never marked.
func (s *MessageService) MarkSeen(ctx context.Context, conversationID string, messageID, viewer uuid.UUID) error {
	ok, err := s.CanAccess(ctx, conversationID, viewer)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotParticipant
	}

	affected, err := s.db.Exec(ctx,
		`UPDATE messages SET seen = true
		 WHERE id = $1 AND conversation_id = $2 AND sender_id <> $3 AND kind <> 'system' AND seen = false`,
		messageID, conversationID, viewer,
	)
	if err != nil {
		return fmt.Errorf("marking message seen: %w", err)
	}
	if affected == 0 {
		return nil
	}

	publish(ctx, s.events, realtime.TopicConversation(conversationID), realtime.KindUpdate, map[string]any{
		"id":   messageID,
		"seen": true,
	})
	return nil
}

// UnreadCount counts unseen messages from other senders inside the recent
// window. System messages never trigger unread counters.
func UnreadCount(window []models.Message, viewer uuid.UUID) int {
	count := 0
	for _, m := range window {
		if m.Kind == models.MessageKindSystem {
			continue
		}
		if !m.Seen && m.SenderID != viewer {
			count++
		}
	}
	return count
}

func scanMessages(rows Rows) ([]models.Message, error) {
	messages := []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.Seq, &m.ID, &m.ConversationID, &m.SenderID, &m.SenderName, &m.Kind, &m.Text, &m.ImageURL, &m.Seen, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading messages: %w", err)
	}
	return messages, nil
}
