package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cutroom/cutroom-backend/internal/auth/domain"
	projects "github.com/cutroom/cutroom-backend/internal/projects/domain"
)

type memStore struct {
	mu      sync.Mutex
	users   map[string]domain.User
	logins  map[string]int
	updates int
	// raceOnCreate simulates another sync winning between Get and Create.
	raceOnCreate bool
}

func newMemStore() *memStore {
	return &memStore{users: map[string]domain.User{}, logins: map[string]int{}}
}

func (m *memStore) GetByFirebaseUID(_ context.Context, uid string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[uid]
	if !ok {
		return nil, projects.E(projects.KindNotFound, "user.get", uid)
	}
	return &u, nil
}

func (m *memStore) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.raceOnCreate {
		m.raceOnCreate = false
		m.users[u.FirebaseUID] = domain.User{FirebaseUID: u.FirebaseUID, Role: projects.RoleEditor, DisplayName: "first"}
	}
	if _, ok := m.users[u.FirebaseUID]; ok {
		return projects.E(projects.KindConflict, "user.create", u.FirebaseUID)
	}
	m.users[u.FirebaseUID] = *u
	return nil
}

func (m *memStore) Update(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.FirebaseUID]; !ok {
		return projects.E(projects.KindNotFound, "user.update", u.FirebaseUID)
	}
	m.updates++
	m.users[u.FirebaseUID] = *u
	return nil
}

func (m *memStore) TouchLogin(_ context.Context, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logins[uid]++
	return nil
}

func (m *memStore) RoleOf(ctx context.Context, uid string) (projects.Role, error) {
	u, err := m.GetByFirebaseUID(ctx, uid)
	if err != nil {
		return "", err
	}
	return u.Role, nil
}

type fixedIndex map[string][]string

func (f fixedIndex) ProjectIDsByParticipant(_ context.Context, uid string) ([]string, error) {
	return f[uid], nil
}

func newService(store *memStore, idx fixedIndex) *AuthService {
	s := NewAuthService(store, idx)
	s.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	return s
}

func ptr[T any](v T) *T { return &v }

func TestSyncUser_CreatesWithRole(t *testing.T) {
	store := newMemStore()
	s := newService(store, nil)

	u, err := s.SyncUser(context.Background(), domain.SyncRequest{
		FirebaseUID: "yt-1",
		Email:       "creator@example.com",
		DisplayName: ptr("  Creator "),
		Role:        projects.RoleYoutuber,
	})
	require.NoError(t, err)
	assert.Equal(t, "Creator", u.DisplayName)
	assert.Equal(t, projects.RoleYoutuber, u.Role)
	require.NotNil(t, u.LastLoginAt)
}

func TestSyncUser_RoleRequiredFirstTime(t *testing.T) {
	s := newService(newMemStore(), nil)

	for _, role := range []projects.Role{"", "admin"} {
		_, err := s.SyncUser(context.Background(), domain.SyncRequest{FirebaseUID: "new", Role: role})
		require.Error(t, err)
		assert.True(t, errors.Is(err, projects.ErrValidation))
	}
}

func TestSyncUser_RoleIgnoredAfterwards(t *testing.T) {
	store := newMemStore()
	s := newService(store, nil)
	ctx := context.Background()

	_, err := s.SyncUser(ctx, domain.SyncRequest{FirebaseUID: "ed-1", Role: projects.RoleEditor})
	require.NoError(t, err)

	u, err := s.SyncUser(ctx, domain.SyncRequest{FirebaseUID: "ed-1", Role: projects.RoleYoutuber, Email: "ed@example.com"})
	require.NoError(t, err)
	assert.Equal(t, projects.RoleEditor, u.Role)
	assert.Equal(t, "ed@example.com", u.Email)
	assert.Equal(t, 1, store.logins["ed-1"])
}

func TestSyncUser_UnchangedSkipsUpdate(t *testing.T) {
	store := newMemStore()
	s := newService(store, nil)
	ctx := context.Background()

	req := domain.SyncRequest{FirebaseUID: "ed-1", Email: "ed@example.com", Role: projects.RoleEditor}
	_, err := s.SyncUser(ctx, req)
	require.NoError(t, err)
	_, err = s.SyncUser(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, 0, store.updates)
	assert.Equal(t, 1, store.logins["ed-1"])
}

func TestSyncUser_ConcurrentCreateFallsBackToRefresh(t *testing.T) {
	store := newMemStore()
	store.raceOnCreate = true
	s := newService(store, nil)

	u, err := s.SyncUser(context.Background(), domain.SyncRequest{FirebaseUID: "ed-9", Role: projects.RoleYoutuber})
	require.NoError(t, err)
	assert.Equal(t, projects.RoleEditor, u.Role)
	assert.Equal(t, 1, store.logins["ed-9"])
}

func TestSyncUser_BadPhotoURL(t *testing.T) {
	s := newService(newMemStore(), nil)
	_, err := s.SyncUser(context.Background(), domain.SyncRequest{
		FirebaseUID: "yt-1", Role: projects.RoleYoutuber, PhotoURL: ptr("not a url"),
	})
	assert.True(t, errors.Is(err, projects.ErrValidation))
}

func TestGetProfile(t *testing.T) {
	store := newMemStore()
	s := newService(store, fixedIndex{"yt-1": {"prj_b", "prj_a"}})
	ctx := context.Background()
	_, err := s.SyncUser(ctx, domain.SyncRequest{FirebaseUID: "yt-1", Role: projects.RoleYoutuber})
	require.NoError(t, err)
	_, err = s.SyncUser(ctx, domain.SyncRequest{FirebaseUID: "ed-1", Role: projects.RoleEditor})
	require.NoError(t, err)

	p, err := s.GetProfile(ctx, "yt-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"prj_b", "prj_a"}, p.ProjectIDs)

	p, err = s.GetProfile(ctx, "ed-1")
	require.NoError(t, err)
	assert.NotNil(t, p.ProjectIDs)
	assert.Empty(t, p.ProjectIDs)

	_, err = s.GetProfile(ctx, "ghost")
	assert.True(t, errors.Is(err, projects.ErrNotFound))
}

func TestUpdateProfile(t *testing.T) {
	store := newMemStore()
	s := newService(store, nil)
	ctx := context.Background()
	_, err := s.SyncUser(ctx, domain.SyncRequest{FirebaseUID: "ed-1", DisplayName: ptr("Ed"), Role: projects.RoleEditor})
	require.NoError(t, err)

	u, err := s.UpdateProfile(ctx, "ed-1", domain.UpdateRequest{Bio: ptr("color grading")})
	require.NoError(t, err)
	assert.Equal(t, "Ed", u.DisplayName)
	assert.Equal(t, "color grading", u.Bio)

	_, err = s.UpdateProfile(ctx, "ed-1", domain.UpdateRequest{Bio: ptr(strings.Repeat("x", 501))})
	assert.True(t, errors.Is(err, projects.ErrValidation))

	_, err = s.UpdateProfile(ctx, "ghost", domain.UpdateRequest{Bio: ptr("hi")})
	assert.True(t, errors.Is(err, projects.ErrNotFound))
}

func TestGetUserAndRoleOf(t *testing.T) {
	store := newMemStore()
	s := newService(store, nil)
	ctx := context.Background()
	_, err := s.SyncUser(ctx, domain.SyncRequest{FirebaseUID: "ed-1", Email: "private@example.com", Role: projects.RoleEditor})
	require.NoError(t, err)

	pub, err := s.GetUser(ctx, "ed-1")
	require.NoError(t, err)
	assert.Equal(t, projects.RoleEditor, pub.Role)

	role, err := s.RoleOf(ctx, "ed-1")
	require.NoError(t, err)
	assert.Equal(t, projects.RoleEditor, role)
}
