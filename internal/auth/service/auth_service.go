package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/cutroom/cutroom-backend/internal/auth/domain"
	"github.com/cutroom/cutroom-backend/internal/logging"
	projects "github.com/cutroom/cutroom-backend/internal/projects/domain"
)

const (
	maxDisplayName = 100
	maxBio         = 500
)

// UserStore persists user profiles.
type UserStore interface {
	GetByFirebaseUID(ctx context.Context, uid string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	TouchLogin(ctx context.Context, uid string) error
	RoleOf(ctx context.Context, uid string) (projects.Role, error)
}

// ProjectIndex lists the projects a user participates in.
type ProjectIndex interface {
	ProjectIDsByParticipant(ctx context.Context, userID string) ([]string, error)
}

type AuthService struct {
	users    UserStore
	projects ProjectIndex
	validate *validator.Validate
	now      func() time.Time
}

func NewAuthService(users UserStore, projects ProjectIndex) *AuthService {
	return &AuthService{
		users:    users,
		projects: projects,
		validate: validator.New(),
		now:      time.Now,
	}
}

// SyncUser creates the profile on first sign-in and refreshes it afterwards.
// The role is required the first time and ignored once the profile exists.
func (s *AuthService) SyncUser(ctx context.Context, req domain.SyncRequest) (*domain.User, error) {
	const op = "user.sync"
	if strings.TrimSpace(req.FirebaseUID) == "" {
		return nil, projects.Validation(op, "firebase_uid", "is required")
	}
	if err := s.checkFields(op, req.DisplayName, req.PhotoURL, nil); err != nil {
		return nil, err
	}

	existing, err := s.users.GetByFirebaseUID(ctx, req.FirebaseUID)
	switch {
	case err == nil:
		return s.refresh(ctx, existing, req)
	case !errors.Is(err, projects.ErrNotFound):
		return nil, err
	}

	if !req.Role.Valid() {
		return nil, projects.Validation(op, "role", "must be youtuber or editor")
	}
	now := s.now().UTC()
	user := &domain.User{
		FirebaseUID: req.FirebaseUID,
		Email:       req.Email,
		Role:        req.Role,
		LastLoginAt: &now,
	}
	if req.DisplayName != nil {
		user.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	if req.PhotoURL != nil {
		user.PhotoURL = strings.TrimSpace(*req.PhotoURL)
	}

	if err := s.users.Create(ctx, user); err != nil {
		if !errors.Is(err, projects.ErrConflict) {
			return nil, err
		}
		// a concurrent sync created the profile first
		existing, err := s.users.GetByFirebaseUID(ctx, req.FirebaseUID)
		if err != nil {
			return nil, err
		}
		return s.refresh(ctx, existing, req)
	}
	logging.New(ctx).Infof(op, "created %s profile for %s", user.Role, user.FirebaseUID)
	return user, nil
}

func (s *AuthService) refresh(ctx context.Context, user *domain.User, req domain.SyncRequest) (*domain.User, error) {
	changed := false
	if req.Email != "" && req.Email != user.Email {
		user.Email = req.Email
		changed = true
	}
	if req.DisplayName != nil && strings.TrimSpace(*req.DisplayName) != user.DisplayName {
		user.DisplayName = strings.TrimSpace(*req.DisplayName)
		changed = true
	}
	if req.PhotoURL != nil && strings.TrimSpace(*req.PhotoURL) != user.PhotoURL {
		user.PhotoURL = strings.TrimSpace(*req.PhotoURL)
		changed = true
	}
	if changed {
		if err := s.users.Update(ctx, user); err != nil {
			return nil, err
		}
	}
	if err := s.users.TouchLogin(ctx, user.FirebaseUID); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	user.LastLoginAt = &now
	return user, nil
}

// GetProfile returns the caller's profile with the IDs of every project
// they own or are assigned to.
func (s *AuthService) GetProfile(ctx context.Context, uid string) (*domain.Profile, error) {
	user, err := s.users.GetByFirebaseUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	ids, err := s.projects.ProjectIDsByParticipant(ctx, uid)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return &domain.Profile{User: *user, ProjectIDs: ids}, nil
}

// UpdateProfile applies the fields present in req.
func (s *AuthService) UpdateProfile(ctx context.Context, uid string, req domain.UpdateRequest) (*domain.User, error) {
	const op = "user.update"
	if err := s.checkFields(op, req.DisplayName, req.PhotoURL, req.Bio); err != nil {
		return nil, err
	}

	user, err := s.users.GetByFirebaseUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if req.DisplayName != nil {
		user.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	if req.PhotoURL != nil {
		user.PhotoURL = strings.TrimSpace(*req.PhotoURL)
	}
	if req.Bio != nil {
		user.Bio = strings.TrimSpace(*req.Bio)
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser returns the public view of another user.
func (s *AuthService) GetUser(ctx context.Context, uid string) (*domain.PublicUser, error) {
	user, err := s.users.GetByFirebaseUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	pub := user.Public()
	return &pub, nil
}

// RoleOf resolves the registered role of uid for the project service.
func (s *AuthService) RoleOf(ctx context.Context, uid string) (projects.Role, error) {
	return s.users.RoleOf(ctx, uid)
}

func (s *AuthService) checkFields(op string, displayName, photoURL, bio *string) error {
	if displayName != nil && utf8.RuneCountInString(strings.TrimSpace(*displayName)) > maxDisplayName {
		return projects.Validation(op, "display_name", "must be at most 100 characters")
	}
	if bio != nil && utf8.RuneCountInString(strings.TrimSpace(*bio)) > maxBio {
		return projects.Validation(op, "bio", "must be at most 500 characters")
	}
	if photoURL != nil {
		if err := s.validate.Var(strings.TrimSpace(*photoURL), "omitempty,url"); err != nil {
			return projects.Validation(op, "photo_url", "must be a valid URL")
		}
	}
	return nil
}
