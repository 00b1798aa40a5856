package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/AzimPial/Chat-Us/internal/models"
	"github.com/AzimPial/Chat-Us/internal/realtime"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
)

const userColumns = `id, email, password_hash, display_name, photo_url, last_seen, created_at, updated_at`

type UserService struct {
	db     DBConn
	events EventPublisher
}

func NewUserService(db DBConn, events EventPublisher) *UserService {
	return &UserService{db: db, events: events}
}

func (s *UserService) Create(ctx context.Context, params models.CreateUserParams) (*models.User, error) {
	var exists bool
	err := s.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)", params.Email).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("checking email existence: %w", err)
	}
	if exists {
		return nil, ErrEmailAlreadyExists
	}

	user := &models.User{}
	err = s.db.QueryRow(ctx,
		`INSERT INTO users (email, password_hash)
		 VALUES ($1, $2)
		 RETURNING `+userColumns,
		params.Email, params.PasswordHash,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.DisplayName, &user.PhotoURL, &user.LastSeen, &user.CreatedAt, &user.UpdatedAt)
	if isUniqueViolation(err) {
		// Concurrent registration won the race between check and insert.
		return nil, ErrEmailAlreadyExists
	}
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.DisplayName, &user.PhotoURL, &user.LastSeen, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by id: %w", err)
	}
	return user, nil
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.DisplayName, &user.PhotoURL, &user.LastSeen, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	return user, nil
}

// GetProfile returns the public projection of a user.
func (s *UserService) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	profile := &models.Profile{}
	err := s.db.QueryRow(ctx,
		`SELECT id, display_name, photo_url, last_seen FROM users WHERE id = $1`, id,
	).Scan(&profile.ID, &profile.DisplayName, &profile.PhotoURL, &profile.LastSeen)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting profile: %w", err)
	}
	return profile, nil
}

// UpdateProfile merges the non-nil fields into the profile; omitted fields are
// left untouched. Each save refreshes last_seen, and the new profile is pushed
// to everyone watching it.
func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, params models.UpdateProfileParams) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRow(ctx,
		`UPDATE users
		 SET display_name = COALESCE($2, display_name),
		     photo_url = COALESCE($3, photo_url),
		     last_seen = now(),
		     updated_at = now()
		 WHERE id = $1
		 RETURNING `+userColumns,
		id, params.DisplayName, params.PhotoURL,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.DisplayName, &user.PhotoURL, &user.LastSeen, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating profile: %w", err)
	}

	publish(ctx, s.events, realtime.TopicProfile(id), realtime.KindUpdate, models.Profile{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		PhotoURL:    user.PhotoURL,
		LastSeen:    user.LastSeen,
	})

	return user, nil
}
