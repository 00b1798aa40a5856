package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/AzimPial/Chat-Us/internal/models"
	"github.com/AzimPial/Chat-Us/internal/realtime"
)

var (
	ErrGroupNotFound     = errors.New("group not found")
	ErrForbidden         = errors.New("not allowed")
	ErrInvalidOperation  = errors.New("invalid operation")
	ErrEmptyGroupName    = errors.New("group name is empty")
)

// DirectConversationID derives the identity of a two-party chat. Both
// participants compute the identical identifier regardless of argument
// order; this is a protocol contract and must not change.
func DirectConversationID(a, b uuid.UUID) string {
	sa, sb := a.String(), b.String()
	if sa < sb {
		return sa + "_" + sb
	}
	return sb + "_" + sa
}

// ParseDirectConversationID is the inverse of DirectConversationID; ok is
// false when the id does not name a direct conversation.
func ParseDirectConversationID(id string) (a, b uuid.UUID, ok bool) {
	parts := strings.Split(id, "_")
	if len(parts) != 2 {
		return uuid.Nil, uuid.Nil, false
	}
	a, errA := uuid.Parse(parts[0])
	b, errB := uuid.Parse(parts[1])
	if errA != nil || errB != nil {
		return uuid.Nil, uuid.Nil, false
	}
	return a, b, true
}

// groupMembers materializes the current member set from the append-only
// membership log: a user is a member when their latest event is an add.
func groupMembers(ctx context.Context, q Queryer, groupID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.Query(ctx,
		`SELECT user_id FROM (
		     SELECT DISTINCT ON (user_id) user_id, action
		     FROM group_member_events
		     WHERE group_id = $1
		     ORDER BY user_id, seq DESC
		 ) latest
		 WHERE action = 'add'
		 ORDER BY user_id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("materializing members: %w", err)
	}
	defer rows.Close()

	members := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning member: %w", err)
		}
		members = append(members, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading members: %w", err)
	}
	return members, nil
}

// ConversationService owns group lifecycle and the conversation-list view.
// Membership is an append-only event log, so two concurrent adds both land;
// every structural mutation writes its system message in the same
// transaction as the change.
type ConversationService struct {
	db       DBConn
	messages *MessageService
	events   EventPublisher
}

func NewConversationService(db DBConn, messages *MessageService, events EventPublisher) *ConversationService {
	return &ConversationService{db: db, messages: messages, events: events}
}

func (s *ConversationService) displayName(ctx context.Context, q Queryer, id uuid.UUID) (string, error) {
	var name *string
	err := q.QueryRow(ctx, `SELECT display_name FROM users WHERE id = $1`, id).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("loading display name: %w", err)
	}
	return snapshotName(name), nil
}

// appendSystemMessage writes a synthetic audit entry into the group's log
// inside the caller's transaction.
func appendSystemMessage(ctx context.Context, q Queryer, conversationID string, actor uuid.UUID, actorName, body string) (*models.Message, error) {
	msg := &models.Message{}
	err := q.QueryRow(ctx,
		`INSERT INTO messages (conversation_id, sender_id, sender_name, kind, body)
		 VALUES ($1, $2, $3, 'system', $4)
		 RETURNING `+messageColumns,
		conversationID, actor, actorName, body,
	).Scan(&msg.Seq, &msg.ID, &msg.ConversationID, &msg.SenderID, &msg.SenderName, &msg.Kind, &msg.Text, &msg.ImageURL, &msg.Seen, &msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("appending system message: %w", err)
	}
	return msg, nil
}

func (s *ConversationService) publishGroupChange(ctx context.Context, groupID uuid.UUID, members []uuid.UUID, systemMessages []*models.Message) {
	convID := groupID.String()
	for _, msg := range systemMessages {
		publish(ctx, s.events, realtime.TopicConversation(convID), realtime.KindAppend, msg)
	}
	for _, member := range members {
		publish(ctx, s.events, realtime.TopicConversations(member), realtime.KindChanged, nil)
	}
}

// CreateGroup creates a group with the creator implicitly included in the
// initial member set. The group row, the membership events and the creation
// audit entry land atomically.
func (s *ConversationService) CreateGroup(ctx context.Context, creator uuid.UUID, name string, initialMembers []uuid.UUID) (*models.GroupWithMembers, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyGroupName
	}

	members := []uuid.UUID{creator}
	seen := map[uuid.UUID]struct{}{creator: {}}
	for _, m := range initialMembers {
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		members = append(members, m)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	creatorName, err := s.displayName(ctx, tx, creator)
	if err != nil {
		return nil, err
	}

	group := &models.Group{}
	err = tx.QueryRow(ctx,
		`INSERT INTO groups (name, created_by)
		 VALUES ($1, $2)
		 RETURNING id, name, created_by, photo_url, created_at`,
		name, creator,
	).Scan(&group.ID, &group.Name, &group.CreatedBy, &group.PhotoURL, &group.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating group: %w", err)
	}

	for _, member := range members {
		_, err = tx.Exec(ctx,
			`INSERT INTO group_member_events (group_id, user_id, actor_id, action)
			 VALUES ($1, $2, $3, 'add')`,
			group.ID, member, creator,
		)
		if err != nil {
			return nil, fmt.Errorf("recording initial member: %w", err)
		}
	}

	var systemMessages []*models.Message
	msg, err := appendSystemMessage(ctx, tx, group.ID.String(), creator, creatorName,
		fmt.Sprintf("%s created the group %q", creatorName, name))
	if err != nil {
		return nil, err
	}
	systemMessages = append(systemMessages, msg)

	for _, member := range members[1:] {
		memberName, err := s.displayName(ctx, tx, member)
		if err != nil {
			return nil, err
		}
		msg, err := appendSystemMessage(ctx, tx, group.ID.String(), creator, creatorName,
			fmt.Sprintf("%s added %s", creatorName, memberName))
		if err != nil {
			return nil, err
		}
		systemMessages = append(systemMessages, msg)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing group creation: %w", err)
	}

	s.publishGroupChange(ctx, group.ID, members, systemMessages)

	return &models.GroupWithMembers{Group: *group, Members: members}, nil
}

// GetGroup loads a group and its materialized member set.
func (s *ConversationService) GetGroup(ctx context.Context, id uuid.UUID) (*models.GroupWithMembers, error) {
	group := &models.Group{}
	err := s.db.QueryRow(ctx,
		`SELECT id, name, created_by, photo_url, created_at FROM groups WHERE id = $1`, id,
	).Scan(&group.ID, &group.Name, &group.CreatedBy, &group.PhotoURL, &group.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading group: %w", err)
	}

	members, err := groupMembers(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return &models.GroupWithMembers{Group: *group, Members: members}, nil
}

// Rename changes the group name. Only the creator may rename.
func (s *ConversationService) Rename(ctx context.Context, id, actor uuid.UUID, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return ErrEmptyGroupName
	}

	group, err := s.GetGroup(ctx, id)
	if err != nil {
		return err
	}
	if group.CreatedBy != actor {
		return ErrForbidden
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	actorName, err := s.displayName(ctx, tx, actor)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `UPDATE groups SET name = $2 WHERE id = $1`, id, newName); err != nil {
		return fmt.Errorf("renaming group: %w", err)
	}

	msg, err := appendSystemMessage(ctx, tx, id.String(), actor, actorName,
		fmt.Sprintf("%s renamed the group to %q", actorName, newName))
	if err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing rename: %w", err)
	}

	s.publishGroupChange(ctx, id, group.Members, []*models.Message{msg})
	return nil
}

// AddMember appends an add event. Any current member may add; adding an
// existing member is a no-op.
func (s *ConversationService) AddMember(ctx context.Context, id, actor, target uuid.UUID) error {
	group, err := s.GetGroup(ctx, id)
	if err != nil {
		return err
	}
	if !containsID(group.Members, actor) {
		return ErrForbidden
	}
	if containsID(group.Members, target) {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	actorName, err := s.displayName(ctx, tx, actor)
	if err != nil {
		return err
	}
	targetName, err := s.displayName(ctx, tx, target)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO group_member_events (group_id, user_id, actor_id, action)
		 VALUES ($1, $2, $3, 'add')`,
		id, target, actor,
	)
	if err != nil {
		return fmt.Errorf("recording member add: %w", err)
	}

	msg, err := appendSystemMessage(ctx, tx, id.String(), actor, actorName,
		fmt.Sprintf("%s added %s", actorName, targetName))
	if err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing member add: %w", err)
	}

	s.publishGroupChange(ctx, id, append(group.Members, target), []*models.Message{msg})
	return nil
}

// RemoveMember appends a remove event. Only the creator may remove others,
// and no one removes the creator; the creator exits via LeaveGroup only.
func (s *ConversationService) RemoveMember(ctx context.Context, id, actor, target uuid.UUID) error {
	group, err := s.GetGroup(ctx, id)
	if err != nil {
		return err
	}
	if actor != group.CreatedBy {
		return ErrForbidden
	}
	if target == group.CreatedBy {
		return ErrInvalidOperation
	}
	if !containsID(group.Members, target) {
		return nil
	}

	return s.removeWithAudit(ctx, group, actor, target, "%s removed %s")
}

// LeaveGroup removes the actor from the group, creator included.
func (s *ConversationService) LeaveGroup(ctx context.Context, id, actor uuid.UUID) error {
	group, err := s.GetGroup(ctx, id)
	if err != nil {
		return err
	}
	if !containsID(group.Members, actor) {
		return nil
	}

	return s.removeWithAudit(ctx, group, actor, actor, "%s left the group")
}

func (s *ConversationService) removeWithAudit(ctx context.Context, group *models.GroupWithMembers, actor, target uuid.UUID, format string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	actorName, err := s.displayName(ctx, tx, actor)
	if err != nil {
		return err
	}

	var body string
	if actor == target {
		body = fmt.Sprintf(format, actorName)
	} else {
		targetName, err := s.displayName(ctx, tx, target)
		if err != nil {
			return err
		}
		body = fmt.Sprintf(format, actorName, targetName)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO group_member_events (group_id, user_id, actor_id, action)
		 VALUES ($1, $2, $3, 'remove')`,
		group.ID, target, actor,
	)
	if err != nil {
		return fmt.Errorf("recording member remove: %w", err)
	}

	msg, err := appendSystemMessage(ctx, tx, group.ID.String(), actor, actorName, body)
	if err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing member remove: %w", err)
	}

	// The removed member still gets a final list update.
	s.publishGroupChange(ctx, group.ID, group.Members, []*models.Message{msg})
	return nil
}

// ListGroups returns the groups the user currently belongs to.
func (s *ConversationService) ListGroups(ctx context.Context, userID uuid.UUID) ([]models.Group, error) {
	rows, err := s.db.Query(ctx,
		`SELECT g.id, g.name, g.created_by, g.photo_url, g.created_at
		 FROM groups g
		 JOIN (
		     SELECT DISTINCT ON (group_id) group_id, action
		     FROM group_member_events
		     WHERE user_id = $1
		     ORDER BY group_id, seq DESC
		 ) latest ON latest.group_id = g.id
		 WHERE latest.action = 'add'
		 ORDER BY g.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing groups: %w", err)
	}
	defer rows.Close()

	groups := []models.Group{}
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedBy, &g.PhotoURL, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading groups: %w", err)
	}
	return groups, nil
}

// ListSummaries builds the conversation-list view: one row per friend (direct
// chat) and per group, with last-message preview and unread count from the
// bounded recent window.
func (s *ConversationService) ListSummaries(ctx context.Context, userID uuid.UUID) ([]models.ConversationSummary, error) {
	summaries := []models.ConversationSummary{}

	friendRows, err := s.db.Query(ctx,
		`SELECT friend_id, display_name, photo_url FROM friends WHERE owner_id = $1 ORDER BY display_name, friend_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing friend conversations: %w", err)
	}
	type friendRow struct {
		id    uuid.UUID
		name  string
		photo *string
	}
	friendList := []friendRow{}
	for friendRows.Next() {
		var f friendRow
		if err := friendRows.Scan(&f.id, &f.name, &f.photo); err != nil {
			friendRows.Close()
			return nil, fmt.Errorf("scanning friend conversation: %w", err)
		}
		friendList = append(friendList, f)
	}
	friendRows.Close()
	if err := friendRows.Err(); err != nil {
		return nil, fmt.Errorf("reading friend conversations: %w", err)
	}

	for _, f := range friendList {
		peer := f.id
		convID := DirectConversationID(userID, peer)
		summary := models.ConversationSummary{
			ConversationID: convID,
			Kind:           "direct",
			Title:          f.name,
			PhotoURL:       f.photo,
			PeerID:         &peer,
		}
		if err := s.fillPreview(ctx, &summary, userID); err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}

	groups, err := s.ListGroups(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		groupID := g.ID
		summary := models.ConversationSummary{
			ConversationID: groupID.String(),
			Kind:           "group",
			Title:          g.Name,
			PhotoURL:       g.PhotoURL,
			GroupID:        &groupID,
		}
		if err := s.fillPreview(ctx, &summary, userID); err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

func (s *ConversationService) fillPreview(ctx context.Context, summary *models.ConversationSummary, viewer uuid.UUID) error {
	window, err := s.messages.Recent(ctx, summary.ConversationID, DefaultRecentWindow)
	if err != nil {
		return err
	}
	if len(window) > 0 {
		last := window[0]
		summary.LastMessage = &last
	}
	summary.UnreadCount = UnreadCount(window, viewer)
	return nil
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
