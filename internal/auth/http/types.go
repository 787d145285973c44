package http

import (
	"context"

	"github.com/cutroom/cutroom-backend/internal/auth/domain"
)

// Profiles is the subset of the auth service the handlers need.
type Profiles interface {
	SyncUser(ctx context.Context, req domain.SyncRequest) (*domain.User, error)
	GetProfile(ctx context.Context, uid string) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, uid string, req domain.UpdateRequest) (*domain.User, error)
	GetUser(ctx context.Context, uid string) (*domain.PublicUser, error)
}

type Handler struct {
	profiles Profiles
}

func New(profiles Profiles) *Handler {
	return &Handler{profiles: profiles}
}

type syncBody struct {
	Email       string  `json:"email,omitempty"`
	DisplayName *string `json:"display_name,omitempty"`
	PhotoURL    *string `json:"photo_url,omitempty"`
	Role        string  `json:"role,omitempty"`
}

type updateBody struct {
	DisplayName *string `json:"display_name,omitempty"`
	PhotoURL    *string `json:"photo_url,omitempty"`
	Bio         *string `json:"bio,omitempty"`
}
