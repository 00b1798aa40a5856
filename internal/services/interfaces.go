package services

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/AzimPial/Chat-Us/internal/models"
)

// UserServiceInterface defines the contract for identity operations.
type UserServiceInterface interface {
	Create(ctx context.Context, params models.CreateUserParams) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, params models.UpdateProfileParams) (*models.User, error)
}

// AuthServiceInterface defines the contract for authentication operations.
type AuthServiceInterface interface {
	HashPassword(password string) (string, error)
	VerifyPassword(hash, password string) bool
	CreateSession(ctx context.Context, userID uuid.UUID) (token string, err error)
	ValidateSession(ctx context.Context, token string) (*models.User, error)
	DeleteSession(ctx context.Context, token string) error
}

// FriendServiceInterface defines the contract for relationship operations.
type FriendServiceInterface interface {
	SendRequest(ctx context.Context, from, to uuid.UUID) (*models.FriendRequest, error)
	ResolveRequest(ctx context.Context, owner, requestID uuid.UUID, accept bool) error
	RemoveFriend(ctx context.Context, a, b uuid.UUID) error
	ListFriends(ctx context.Context, owner uuid.UUID) ([]models.FriendEdge, error)
	ListRequests(ctx context.Context, owner uuid.UUID) ([]models.FriendRequest, error)
	IsFriend(ctx context.Context, a, b uuid.UUID) (bool, error)
}

// ConversationServiceInterface defines the contract for group and
// conversation-list operations.
type ConversationServiceInterface interface {
	CreateGroup(ctx context.Context, creator uuid.UUID, name string, initialMembers []uuid.UUID) (*models.GroupWithMembers, error)
	GetGroup(ctx context.Context, id uuid.UUID) (*models.GroupWithMembers, error)
	Rename(ctx context.Context, id, actor uuid.UUID, newName string) error
	AddMember(ctx context.Context, id, actor, target uuid.UUID) error
	RemoveMember(ctx context.Context, id, actor, target uuid.UUID) error
	LeaveGroup(ctx context.Context, id, actor uuid.UUID) error
	ListSummaries(ctx context.Context, userID uuid.UUID) ([]models.ConversationSummary, error)
}

// MessageServiceInterface defines the contract for message-log operations.
type MessageServiceInterface interface {
	Send(ctx context.Context, conversationID string, sender uuid.UUID, params models.SendMessageParams) (*models.Message, error)
	History(ctx context.Context, conversationID string, viewer uuid.UUID) ([]models.Message, error)
	Recent(ctx context.Context, conversationID string, limit int) ([]models.Message, error)
	MarkSeen(ctx context.Context, conversationID string, messageID, viewer uuid.UUID) error
	CanAccess(ctx context.Context, conversationID string, userID uuid.UUID) (bool, error)
}

// MediaServiceInterface defines the contract for blob storage.
type MediaServiceInterface interface {
	Put(path string, r io.Reader) (string, error)
	Resolve(reference string) string
	Open(reference string) (io.ReadCloser, error)
}

// EmailServiceInterface defines the contract for notification mail.
type EmailServiceInterface interface {
	SendFriendRequestReceived(ctx context.Context, toEmail, senderName string) error
	SendFriendRequestAccepted(ctx context.Context, toEmail, accepterName string) error
}
