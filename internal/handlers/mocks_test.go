package handlers

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/AzimPial/Chat-Us/internal/models"
)

type mockUserService struct {
	CreateFunc        func(ctx context.Context, params models.CreateUserParams) (*models.User, error)
	GetByIDFunc       func(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmailFunc    func(ctx context.Context, email string) (*models.User, error)
	GetProfileFunc    func(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	UpdateProfileFunc func(ctx context.Context, id uuid.UUID, params models.UpdateProfileParams) (*models.User, error)
}

func (m *mockUserService) Create(ctx context.Context, params models.CreateUserParams) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, params)
	}
	return nil, nil
}

func (m *mockUserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockUserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, nil
}

func (m *mockUserService) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	if m.GetProfileFunc != nil {
		return m.GetProfileFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockUserService) UpdateProfile(ctx context.Context, id uuid.UUID, params models.UpdateProfileParams) (*models.User, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, id, params)
	}
	return nil, nil
}

type mockAuthService struct {
	HashPasswordFunc    func(password string) (string, error)
	VerifyPasswordFunc  func(hash, password string) bool
	CreateSessionFunc   func(ctx context.Context, userID uuid.UUID) (string, error)
	ValidateSessionFunc func(ctx context.Context, token string) (*models.User, error)
	DeleteSessionFunc   func(ctx context.Context, token string) error
}

func (m *mockAuthService) HashPassword(password string) (string, error) {
	if m.HashPasswordFunc != nil {
		return m.HashPasswordFunc(password)
	}
	return "hashed_" + password, nil
}

func (m *mockAuthService) VerifyPassword(hash, password string) bool {
	if m.VerifyPasswordFunc != nil {
		return m.VerifyPasswordFunc(hash, password)
	}
	return hash == "hashed_"+password
}

func (m *mockAuthService) CreateSession(ctx context.Context, userID uuid.UUID) (string, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, userID)
	}
	return "test_session_token", nil
}

func (m *mockAuthService) ValidateSession(ctx context.Context, token string) (*models.User, error) {
	if m.ValidateSessionFunc != nil {
		return m.ValidateSessionFunc(ctx, token)
	}
	return nil, nil
}

func (m *mockAuthService) DeleteSession(ctx context.Context, token string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, token)
	}
	return nil
}

type mockFriendService struct {
	SendRequestFunc    func(ctx context.Context, from, to uuid.UUID) (*models.FriendRequest, error)
	ResolveRequestFunc func(ctx context.Context, owner, requestID uuid.UUID, accept bool) error
	RemoveFriendFunc   func(ctx context.Context, a, b uuid.UUID) error
	ListFriendsFunc    func(ctx context.Context, owner uuid.UUID) ([]models.FriendEdge, error)
	ListRequestsFunc   func(ctx context.Context, owner uuid.UUID) ([]models.FriendRequest, error)
	IsFriendFunc       func(ctx context.Context, a, b uuid.UUID) (bool, error)
}

func (m *mockFriendService) SendRequest(ctx context.Context, from, to uuid.UUID) (*models.FriendRequest, error) {
	if m.SendRequestFunc != nil {
		return m.SendRequestFunc(ctx, from, to)
	}
	return &models.FriendRequest{}, nil
}

func (m *mockFriendService) ResolveRequest(ctx context.Context, owner, requestID uuid.UUID, accept bool) error {
	if m.ResolveRequestFunc != nil {
		return m.ResolveRequestFunc(ctx, owner, requestID, accept)
	}
	return nil
}

func (m *mockFriendService) RemoveFriend(ctx context.Context, a, b uuid.UUID) error {
	if m.RemoveFriendFunc != nil {
		return m.RemoveFriendFunc(ctx, a, b)
	}
	return nil
}

func (m *mockFriendService) ListFriends(ctx context.Context, owner uuid.UUID) ([]models.FriendEdge, error) {
	if m.ListFriendsFunc != nil {
		return m.ListFriendsFunc(ctx, owner)
	}
	return []models.FriendEdge{}, nil
}

func (m *mockFriendService) ListRequests(ctx context.Context, owner uuid.UUID) ([]models.FriendRequest, error) {
	if m.ListRequestsFunc != nil {
		return m.ListRequestsFunc(ctx, owner)
	}
	return []models.FriendRequest{}, nil
}

func (m *mockFriendService) IsFriend(ctx context.Context, a, b uuid.UUID) (bool, error) {
	if m.IsFriendFunc != nil {
		return m.IsFriendFunc(ctx, a, b)
	}
	return false, nil
}

type mockConversationService struct {
	CreateGroupFunc   func(ctx context.Context, creator uuid.UUID, name string, initialMembers []uuid.UUID) (*models.GroupWithMembers, error)
	GetGroupFunc      func(ctx context.Context, id uuid.UUID) (*models.GroupWithMembers, error)
	RenameFunc        func(ctx context.Context, id, actor uuid.UUID, newName string) error
	AddMemberFunc     func(ctx context.Context, id, actor, target uuid.UUID) error
	RemoveMemberFunc  func(ctx context.Context, id, actor, target uuid.UUID) error
	LeaveGroupFunc    func(ctx context.Context, id, actor uuid.UUID) error
	ListSummariesFunc func(ctx context.Context, userID uuid.UUID) ([]models.ConversationSummary, error)
}

func (m *mockConversationService) CreateGroup(ctx context.Context, creator uuid.UUID, name string, initialMembers []uuid.UUID) (*models.GroupWithMembers, error) {
	if m.CreateGroupFunc != nil {
		return m.CreateGroupFunc(ctx, creator, name, initialMembers)
	}
	return &models.GroupWithMembers{}, nil
}

func (m *mockConversationService) GetGroup(ctx context.Context, id uuid.UUID) (*models.GroupWithMembers, error) {
	if m.GetGroupFunc != nil {
		return m.GetGroupFunc(ctx, id)
	}
	return &models.GroupWithMembers{}, nil
}

func (m *mockConversationService) Rename(ctx context.Context, id, actor uuid.UUID, newName string) error {
	if m.RenameFunc != nil {
		return m.RenameFunc(ctx, id, actor, newName)
	}
	return nil
}

func (m *mockConversationService) AddMember(ctx context.Context, id, actor, target uuid.UUID) error {
	if m.AddMemberFunc != nil {
		return m.AddMemberFunc(ctx, id, actor, target)
	}
	return nil
}

func (m *mockConversationService) RemoveMember(ctx context.Context, id, actor, target uuid.UUID) error {
	if m.RemoveMemberFunc != nil {
		return m.RemoveMemberFunc(ctx, id, actor, target)
	}
	return nil
}

func (m *mockConversationService) LeaveGroup(ctx context.Context, id, actor uuid.UUID) error {
	if m.LeaveGroupFunc != nil {
		return m.LeaveGroupFunc(ctx, id, actor)
	}
	return nil
}

func (m *mockConversationService) ListSummaries(ctx context.Context, userID uuid.UUID) ([]models.ConversationSummary, error) {
	if m.ListSummariesFunc != nil {
		return m.ListSummariesFunc(ctx, userID)
	}
	return []models.ConversationSummary{}, nil
}

type mockMessageService struct {
	SendFunc      func(ctx context.Context, conversationID string, sender uuid.UUID, params models.SendMessageParams) (*models.Message, error)
	HistoryFunc   func(ctx context.Context, conversationID string, viewer uuid.UUID) ([]models.Message, error)
	RecentFunc    func(ctx context.Context, conversationID string, limit int) ([]models.Message, error)
	MarkSeenFunc  func(ctx context.Context, conversationID string, messageID, viewer uuid.UUID) error
	CanAccessFunc func(ctx context.Context, conversationID string, userID uuid.UUID) (bool, error)
}

func (m *mockMessageService) Send(ctx context.Context, conversationID string, sender uuid.UUID, params models.SendMessageParams) (*models.Message, error) {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, conversationID, sender, params)
	}
	return &models.Message{}, nil
}

func (m *mockMessageService) History(ctx context.Context, conversationID string, viewer uuid.UUID) ([]models.Message, error) {
	if m.HistoryFunc != nil {
		return m.HistoryFunc(ctx, conversationID, viewer)
	}
	return []models.Message{}, nil
}

func (m *mockMessageService) Recent(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	if m.RecentFunc != nil {
		return m.RecentFunc(ctx, conversationID, limit)
	}
	return []models.Message{}, nil
}

func (m *mockMessageService) MarkSeen(ctx context.Context, conversationID string, messageID, viewer uuid.UUID) error {
	if m.MarkSeenFunc != nil {
		return m.MarkSeenFunc(ctx, conversationID, messageID, viewer)
	}
	return nil
}

func (m *mockMessageService) CanAccess(ctx context.Context, conversationID string, userID uuid.UUID) (bool, error) {
	if m.CanAccessFunc != nil {
		return m.CanAccessFunc(ctx, conversationID, userID)
	}
	return true, nil
}

type mockMediaService struct {
	PutFunc     func(path string, r io.Reader) (string, error)
	ResolveFunc func(reference string) string
	OpenFunc    func(reference string) (io.ReadCloser, error)
}

func (m *mockMediaService) Put(path string, r io.Reader) (string, error) {
	if m.PutFunc != nil {
		return m.PutFunc(path, r)
	}
	return path, nil
}

func (m *mockMediaService) Resolve(reference string) string {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(reference)
	}
	return "/media/" + reference
}

func (m *mockMediaService) Open(reference string) (io.ReadCloser, error) {
	if m.OpenFunc != nil {
		return m.OpenFunc(reference)
	}
	return io.NopCloser(nil), nil
}
