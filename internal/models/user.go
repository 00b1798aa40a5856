package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the identity record. DisplayName and PhotoURL stay nil until the
// profile-completion step runs; an account without them is a valid lifecycle
// stage, not an error.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	DisplayName  *string    `json:"display_name"`
	PhotoURL     *string    `json:"photo_url"`
	LastSeen     *time.Time `json:"last_seen,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ProfileComplete reports whether the profile-completion step has run.
func (u *User) ProfileComplete() bool {
	return u.DisplayName != nil && *u.DisplayName != ""
}

type CreateUserParams struct {
	Email        string
	PasswordHash string
}

// UpdateProfileParams has partial-merge semantics: nil fields are left
// untouched, never nulled.
type UpdateProfileParams struct {
	DisplayName *string
	PhotoURL    *string
}

// Profile is the public projection of a User pushed to profile watchers.
type Profile struct {
	ID          uuid.UUID  `json:"id"`
	DisplayName *string    `json:"display_name"`
	PhotoURL    *string    `json:"photo_url"`
	LastSeen    *time.Time `json:"last_seen,omitempty"`
}

type Session struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
