package domain

import (
	"time"

	projects "github.com/cutroom/cutroom-backend/internal/projects/domain"
)

// User is a registered participant. The Firebase UID is the primary
// identifier and doubles as the actor ID on projects.
type User struct {
	FirebaseUID string        `json:"firebase_uid" db:"firebase_uid"`
	Email       string        `json:"email" db:"email"`
	DisplayName string        `json:"display_name" db:"display_name"`
	PhotoURL    string        `json:"photo_url,omitempty" db:"photo_url"`
	Bio         string        `json:"bio,omitempty" db:"bio"`
	Role        projects.Role `json:"role" db:"role"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
	LastLoginAt *time.Time    `json:"last_login_at,omitempty" db:"last_login_at"`
}

// PublicUser is what other users may see.
type PublicUser struct {
	FirebaseUID string        `json:"firebase_uid"`
	DisplayName string        `json:"display_name"`
	PhotoURL    string        `json:"photo_url,omitempty"`
	Bio         string        `json:"bio,omitempty"`
	Role        projects.Role `json:"role"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		FirebaseUID: u.FirebaseUID,
		DisplayName: u.DisplayName,
		PhotoURL:    u.PhotoURL,
		Bio:         u.Bio,
		Role:        u.Role,
	}
}

// Profile is the caller's own view: the user plus every project they
// participate in.
type Profile struct {
	User
	ProjectIDs []string `json:"project_ids"`
}

// SyncRequest carries the fields accepted when a signed-in user is synced.
// Role is only read the first time.
type SyncRequest struct {
	FirebaseUID string
	Email       string
	DisplayName *string
	PhotoURL    *string
	Role        projects.Role
}

// UpdateRequest represents a partial profile update.
type UpdateRequest struct {
	DisplayName *string
	PhotoURL    *string
	Bio         *string
}
