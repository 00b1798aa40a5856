package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/AzimPial/Chat-Us/internal/logging"
	"github.com/AzimPial/Chat-Us/internal/models"
	"github.com/AzimPial/Chat-Us/internal/realtime"
)

var (
	ErrSelfRequest      = errors.New("cannot send friend request to yourself")
	ErrRequestExists    = errors.New("friend request already exists")
	ErrAlreadyFriends   = errors.New("already friends")
	ErrRequestNotFound  = errors.New("friend request not found")
)

// FriendNotifier delivers best-effort notification emails for relationship
// changes. May be nil.
type FriendNotifier interface {
	SendFriendRequestReceived(ctx context.Context, toEmail, senderName string) error
	SendFriendRequestAccepted(ctx context.Context, toEmail, accepterName string) error
}

// FriendService owns the relationship graph: symmetric friend edges plus
// pending one-directional requests stored under the recipient.
type FriendService struct {
	db       DBConn
	events   EventPublisher
	notifier FriendNotifier
	async    func(fn func())
}

func NewFriendService(db DBConn, events EventPublisher, notifier FriendNotifier) *FriendService {
	return &FriendService{
		db:       db,
		events:   events,
		notifier: notifier,
		async:    func(fn func()) { go fn() },
	}
}

// SetAsync overrides the goroutine scheduler for notification side effects.
func (s *FriendService) SetAsync(fn func(fn func())) {
	s.async = fn
}

// snapshotName is the denormalized display name written into requests and
// edges. Accounts that never completed their profile show up as "Unknown",
// matching what recipients would have seen anyway.
func snapshotName(displayName *string) string {
	if displayName == nil || *displayName == "" {
		return "Unknown"
	}
	return *displayName
}

// SendRequest appends a pending request under the recipient, carrying a
// snapshot of the sender's profile. Duplicate requests for the same pair and
// requests between existing friends are rejected.
func (s *FriendService) SendRequest(ctx context.Context, from, to uuid.UUID) (*models.FriendRequest, error) {
	if from == to {
		return nil, ErrSelfRequest
	}

	var edgeExists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM friends WHERE owner_id = $1 AND friend_id = $2)`,
		from, to,
	).Scan(&edgeExists)
	if err != nil {
		return nil, fmt.Errorf("checking friendship: %w", err)
	}
	if edgeExists {
		return nil, ErrAlreadyFriends
	}

	// A live request in either direction blocks a new one; otherwise both
	// sides could hold mutual pending requests for the same pair.
	var requestExists bool
	err = s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM friend_requests
		 WHERE (recipient_id, sender_id) IN (($1, $2), ($2, $1)))`,
		to, from,
	).Scan(&requestExists)
	if err != nil {
		return nil, fmt.Errorf("checking existing request: %w", err)
	}
	if requestExists {
		return nil, ErrRequestExists
	}

	var senderName, recipientEmail *string
	var senderPhoto *string
	err = s.db.QueryRow(ctx,
		`SELECT s.display_name, s.photo_url, r.email
		 FROM users s, users r
		 WHERE s.id = $1 AND r.id = $2`,
		from, to,
	).Scan(&senderName, &senderPhoto, &recipientEmail)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading sender profile: %w", err)
	}

	request := &models.FriendRequest{}
	err = s.db.QueryRow(ctx,
		`INSERT INTO friend_requests (recipient_id, sender_id, sender_name, sender_photo)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, recipient_id, sender_id, sender_name, sender_photo, created_at`,
		to, from, snapshotName(senderName), senderPhoto,
	).Scan(&request.ID, &request.RecipientID, &request.SenderID, &request.SenderName, &request.SenderPhoto, &request.CreatedAt)
	if isUniqueViolation(err) {
		return nil, ErrRequestExists
	}
	if err != nil {
		return nil, fmt.Errorf("creating friend request: %w", err)
	}

	publish(ctx, s.events, realtime.TopicRequests(to), realtime.KindChanged, nil)

	if s.notifier != nil && recipientEmail != nil {
		email, name := *recipientEmail, request.SenderName
		s.async(func() {
			if err := s.notifier.SendFriendRequestReceived(context.Background(), email, name); err != nil {
				logging.Warn("Friend request email failed", map[string]interface{}{"error": err.Error()})
			}
		})
	}

	return request, nil
}

// ResolveRequest consumes a pending request. On accept both directional edges
// are written with profile snapshots fetched now, and the request is deleted,
// all in one transaction; a one-sided edge is never observable. On reject the
// request is simply deleted.
func (s *FriendService) ResolveRequest(ctx context.Context, owner, requestID uuid.UUID, accept bool) error {
	request := &models.FriendRequest{}
	err := s.db.QueryRow(ctx,
		`SELECT id, recipient_id, sender_id, sender_name, sender_photo, created_at
		 FROM friend_requests WHERE id = $1`,
		requestID,
	).Scan(&request.ID, &request.RecipientID, &request.SenderID, &request.SenderName, &request.SenderPhoto, &request.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrRequestNotFound
	}
	if err != nil {
		return fmt.Errorf("loading friend request: %w", err)
	}
	if request.RecipientID != owner {
		return ErrRequestNotFound
	}

	if !accept {
		if _, err := s.db.Exec(ctx, `DELETE FROM friend_requests WHERE id = $1`, requestID); err != nil {
			return fmt.Errorf("deleting friend request: %w", err)
		}
		publish(ctx, s.events, realtime.TopicRequests(owner), realtime.KindChanged, nil)
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var ownerName, senderName *string
	var ownerPhoto, senderPhoto *string
	var senderEmail string
	err = tx.QueryRow(ctx,
		`SELECT o.display_name, o.photo_url, f.display_name, f.photo_url, f.email
		 FROM users o, users f
		 WHERE o.id = $1 AND f.id = $2`,
		owner, request.SenderID,
	).Scan(&ownerName, &ownerPhoto, &senderName, &senderPhoto, &senderEmail)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("loading profiles for snapshot: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO friends (owner_id, friend_id, display_name, photo_url)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (owner_id, friend_id) DO NOTHING`,
		owner, request.SenderID, snapshotName(senderName), senderPhoto,
	)
	if err != nil {
		return fmt.Errorf("writing owner edge: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO friends (owner_id, friend_id, display_name, photo_url)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (owner_id, friend_id) DO NOTHING`,
		request.SenderID, owner, snapshotName(ownerName), ownerPhoto,
	)
	if err != nil {
		return fmt.Errorf("writing reciprocal edge: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM friend_requests WHERE id = $1`, requestID); err != nil {
		return fmt.Errorf("deleting resolved request: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing request resolution: %w", err)
	}

	publish(ctx, s.events, realtime.TopicRequests(owner), realtime.KindChanged, nil)
	publish(ctx, s.events, realtime.TopicFriends(owner), realtime.KindChanged, nil)
	publish(ctx, s.events, realtime.TopicFriends(request.SenderID), realtime.KindChanged, nil)

	if s.notifier != nil {
		email, name := senderEmail, snapshotName(ownerName)
		s.async(func() {
			if err := s.notifier.SendFriendRequestAccepted(context.Background(), email, name); err != nil {
				logging.Warn("Friend accept email failed", map[string]interface{}{"error": err.Error()})
			}
		})
	}

	return nil
}

// RemoveFriend deletes both directional edges. Deletion is idempotent: an
// already-missing edge is treated as removed.
func (s *FriendService) RemoveFriend(ctx context.Context, a, b uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM friends WHERE owner_id = $1 AND friend_id = $2`, a, b); err != nil {
		return fmt.Errorf("deleting edge: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM friends WHERE owner_id = $1 AND friend_id = $2`, b, a); err != nil {
		return fmt.Errorf("deleting reciprocal edge: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing removal: %w", err)
	}

	publish(ctx, s.events, realtime.TopicFriends(a), realtime.KindChanged, nil)
	publish(ctx, s.events, realtime.TopicFriends(b), realtime.KindChanged, nil)
	return nil
}

func (s *FriendService) ListFriends(ctx context.Context, owner uuid.UUID) ([]models.FriendEdge, error) {
	rows, err := s.db.Query(ctx,
		`SELECT owner_id, friend_id, display_name, photo_url, added_at
		 FROM friends WHERE owner_id = $1
		 ORDER BY display_name, friend_id`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("listing friends: %w", err)
	}
	defer rows.Close()

	friends := []models.FriendEdge{}
	for rows.Next() {
		var f models.FriendEdge
		if err := rows.Scan(&f.OwnerID, &f.FriendID, &f.DisplayName, &f.PhotoURL, &f.AddedAt); err != nil {
			return nil, fmt.Errorf("scanning friend: %w", err)
		}
		friends = append(friends, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading friends: %w", err)
	}
	return friends, nil
}

func (s *FriendService) ListRequests(ctx context.Context, owner uuid.UUID) ([]models.FriendRequest, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, recipient_id, sender_id, sender_name, sender_photo, created_at
		 FROM friend_requests WHERE recipient_id = $1
		 ORDER BY created_at DESC`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("listing requests: %w", err)
	}
	defer rows.Close()

	requests := []models.FriendRequest{}
	for rows.Next() {
		var r models.FriendRequest
		if err := rows.Scan(&r.ID, &r.RecipientID, &r.SenderID, &r.SenderName, &r.SenderPhoto, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning request: %w", err)
		}
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading requests: %w", err)
	}
	return requests, nil
}

// IsFriend reports whether an edge from a to b exists.
func (s *FriendService) IsFriend(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var isFriend bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM friends WHERE owner_id = $1 AND friend_id = $2)`,
		a, b,
	).Scan(&isFriend)
	if err != nil {
		return false, fmt.Errorf("checking friendship: %w", err)
	}
	return isFriend, nil
}
